// handler.go — основной обработчик API Dashboard Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/scolaplan/dashboard-module/internal/api/errors"
	"github.com/scolaplan/dashboard-module/internal/ngsild"
	"github.com/scolaplan/dashboard-module/internal/repository"
	"github.com/scolaplan/dashboard-module/internal/service"
)

// APIHandler — основной обработчик API Dashboard Module.
type APIHandler struct {
	health      *HealthHandler
	catalog     *service.CatalogService
	simulations *service.SimulationService
	logger      *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	catalog *service.CatalogService,
	simulations *service.SimulationService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:      health,
		catalog:     catalog,
		simulations: simulations,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError транслирует ошибку сервисного слоя в HTTP-ответ.
// message описывает операцию для тела ошибки брокера.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, message string, err error) {
	var upstream *ngsild.UpstreamError
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNoTenant):
		apierrors.Unauthorized(w)
	case errors.Is(err, service.ErrMissingConfiguration):
		apierrors.MissingConfiguration(w, err.Error())
	case errors.Is(err, repository.ErrTenantNotFound):
		apierrors.TenantNotFound(w, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		apierrors.NotFound(w, "Ресурс не найден")
	case errors.As(err, &upstream):
		h.logger.Error("Ошибка запроса к NGSI-LD брокеру",
			slog.Int("status", upstream.Status),
			slog.String("body", upstream.Body),
		)
		apierrors.Upstream(w, message, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("error", err.Error()),
		)
		apierrors.Upstream(w, message, err.Error())
	}
}
