// Пакет errors — конструкторы стандартных ошибок Dashboard Module.
// Единый формат: {"error": "...", "details": "..."} (details опционально).
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, message — краткое описание,
// details — дополнительные сведения (пустая строка опускается).
func WriteError(w http.ResponseWriter, statusCode int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   message,
		Details: details,
	})
}

// --- Конструкторы для типичных ошибок ---

// Unauthorized — 401 неполная сессия (нет пользователя, токена или тенанта).
func Unauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
}

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusBadRequest, "Validation error", details)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, "")
}

// TenantNotFound — 404 тенант не зарегистрирован в хранилище.
func TenantNotFound(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusNotFound, "Tenant not found", details)
}

// Upstream — 500 ошибка запроса к NGSI-LD брокеру.
// message описывает операцию, details — статус и тело ответа брокера.
func Upstream(w http.ResponseWriter, message, details string) {
	WriteError(w, http.StatusInternalServerError, message, details)
}

// MissingConfiguration — 500 отсутствует обязательная конфигурация.
func MissingConfiguration(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusInternalServerError, "Missing configuration", details)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, "")
}
