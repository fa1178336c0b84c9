package ngsild

import "strings"

// FilterSet — набор сравнений на равенство для выражения q брокера.
// Сравнения соединяются в одно конъюнктивное выражение через ";".
// Пустой набор означает отсутствие параметра q вовсе.
type FilterSet struct {
	comparisons []string
}

// Eq добавляет строковое сравнение: field=="value" (значение в кавычках).
// Пустое значение игнорируется — фильтр по пустой строке не имеет смысла.
func (f *FilterSet) Eq(field, value string) *FilterSet {
	if value != "" {
		f.comparisons = append(f.comparisons, field+`=="`+escapeValue(value)+`"`)
	}
	return f
}

// EqNum добавляет числовое сравнение без кавычек: field==value.
func (f *FilterSet) EqNum(field, value string) *FilterSet {
	if value != "" {
		f.comparisons = append(f.comparisons, field+"=="+value)
	}
	return f
}

// Expr возвращает итоговое выражение q и признак его наличия.
func (f *FilterSet) Expr() (string, bool) {
	if len(f.comparisons) == 0 {
		return "", false
	}
	return strings.Join(f.comparisons, ";"), true
}

// escapeValue экранирует кавычки внутри строкового значения.
func escapeValue(v string) string {
	return strings.ReplaceAll(v, `"`, `\"`)
}
