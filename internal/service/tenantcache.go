// Пакет service — бизнес-логика Dashboard Module.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scolaplan/dashboard-module/internal/domain/model"
)

// Prometheus-метрики кэша тенантов.
var (
	tenantCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_tenant_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш строк тенантов.",
	})
	tenantCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_tenant_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша строк тенантов.",
	})
)

// TenantCache — LRU-кэш строк тенантов (key → внутренняя строка) с TTL.
// Строки тенантов практически не меняются, поэтому короткий TTL
// снимает нагрузку с таблицы tenants на каждом запросе.
type TenantCache struct {
	cache *expirable.LRU[string, *model.TenantRow]
}

// NewTenantCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewTenantCache(maxSize int, ttl time.Duration) *TenantCache {
	cache := expirable.NewLRU[string, *model.TenantRow](maxSize, nil, ttl)
	return &TenantCache{cache: cache}
}

// Get возвращает строку тенанта из кэша по внешнему ключу.
// Возвращает (строка, true) при hit или (nil, false) при miss.
func (c *TenantCache) Get(key string) (*model.TenantRow, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		tenantCacheHitsTotal.Inc()
		return val, true
	}
	tenantCacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет строку тенанта в кэше.
func (c *TenantCache) Set(key string, row *model.TenantRow) {
	c.cache.Add(key, row)
}

// Delete удаляет строку из кэша.
func (c *TenantCache) Delete(key string) {
	c.cache.Remove(key)
}
