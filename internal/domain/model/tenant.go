// Пакет model — доменные модели Dashboard Module.
package model

// TenantRow — каноническое отображение внешнего ключа тенанта
// на внутренний идентификатор в PostgreSQL.
// Все запросы к таблицам simulations и simulation_results_classes
// фильтруются по внутреннему ID, никогда по внешнему Key.
type TenantRow struct {
	// ID — внутренний первичный идентификатор (UUID).
	ID string
	// Key — внешний ключ тенанта (из claim tenant:<key>).
	Key string
	// Name — отображаемое имя тенанта.
	Name string
}
