// simulations.go — обработчики симуляций школьного планирования.
// List/create допускают отсутствие тенанта в токене
// (middleware.RequireUser): сервис подставляет ключ по умолчанию, если
// тот настроен. Чтение результатов — только с тенантом из сессии
// (middleware.RequireSession).
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/scolaplan/dashboard-module/internal/api/errors"
	"github.com/scolaplan/dashboard-module/internal/service"
	"github.com/scolaplan/dashboard-module/internal/session"
)

// GetSimulations — GET /api/v1/simulations. Симуляции тенанта, новые первыми.
func (h *APIHandler) GetSimulations(w http.ResponseWriter, r *http.Request) {
	sess := session.From(r.Context())

	sims, err := h.simulations.List(r.Context(), sess.TenantID)
	if err != nil {
		h.writeServiceError(w, "Failed to list simulations", err)
		return
	}
	writeJSON(w, http.StatusOK, sims)
}

// createSimulationResponse — тело ответа POST /api/v1/simulations.
type createSimulationResponse struct {
	SimulationID string `json:"simulationId"`
}

// PostSimulations — POST /api/v1/simulations. Создание симуляции (PENDING).
func (h *APIHandler) PostSimulations(w http.ResponseWriter, r *http.Request) {
	sess := session.From(r.Context())

	var input service.CreateSimulationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}
	input.CreatedBy = sess.CreatedBy()

	sim, err := h.simulations.Create(r.Context(), sess.TenantID, input)
	if err != nil {
		h.writeServiceError(w, "Failed to create simulation", err)
		return
	}
	writeJSON(w, http.StatusCreated, createSimulationResponse{SimulationID: sim.ID})
}

// GetSimulationResults — GET /api/v1/simulation-results?simulationId=...&uai=...&niveau=...
// Строки прогноза по классам, по возрастанию annee.
func (h *APIHandler) GetSimulationResults(w http.ResponseWriter, r *http.Request) {
	sess := session.From(r.Context())
	q := r.URL.Query()

	input := service.ResultsInput{
		SimulationID: q.Get("simulationId"),
		UAI:          q.Get("uai"),
	}
	if niveau := q.Get("niveau"); niveau != "" {
		input.Niveau = &niveau
	}

	results, err := h.simulations.Results(r.Context(), sess.TenantID, input)
	if err != nil {
		h.writeServiceError(w, "Failed to list simulation results", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
