// catalog.go — обработчики справочных данных из NGSI-LD брокера.
// Все endpoints требуют полный идентификационный контекст
// (middleware.RequireSession) — тенант гарантированно присутствует.
package handlers

import (
	"net/http"
	"strconv"

	apierrors "github.com/scolaplan/dashboard-module/internal/api/errors"
	"github.com/scolaplan/dashboard-module/internal/service"
	"github.com/scolaplan/dashboard-module/internal/session"
)

// GetSectors — GET /api/v1/sectors. Список школьных секторов тенанта.
func (h *APIHandler) GetSectors(w http.ResponseWriter, r *http.Request) {
	sess := session.From(r.Context())

	sectors, err := h.catalog.Sectors(r.Context(), sess)
	if err != nil {
		h.writeServiceError(w, "Failed to fetch sectors", err)
		return
	}
	writeJSON(w, http.StatusOK, sectors)
}

// GetSchools — GET /api/v1/schools?secteurId=...
func (h *APIHandler) GetSchools(w http.ResponseWriter, r *http.Request) {
	sess := session.From(r.Context())
	secteurID := r.URL.Query().Get("secteurId")

	schools, err := h.catalog.Schools(r.Context(), sess, secteurID)
	if err != nil {
		h.writeServiceError(w, "Failed to fetch schools", err)
		return
	}
	writeJSON(w, http.StatusOK, schools)
}

// GetClasses — GET /api/v1/classes?uai=...&annee=...&niveau=...
func (h *APIHandler) GetClasses(w http.ResponseWriter, r *http.Request) {
	sess := session.From(r.Context())
	q := r.URL.Query()

	filter := service.ClassesFilter{
		UAI:    q.Get("uai"),
		Niveau: q.Get("niveau"),
	}
	if raw := q.Get("annee"); raw != "" {
		annee, err := strconv.Atoi(raw)
		if err != nil {
			apierrors.ValidationError(w, "параметр annee должен быть годом")
			return
		}
		filter.Annee = annee
	}

	classes, err := h.catalog.Classes(r.Context(), sess, filter)
	if err != nil {
		h.writeServiceError(w, "Failed to fetch classes", err)
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

// GetDemography — GET /api/v1/demography?secteurId=...&anneeDebut=...&anneeFin=...
func (h *APIHandler) GetDemography(w http.ResponseWriter, r *http.Request) {
	sess := session.From(r.Context())
	q := r.URL.Query()

	filter := service.DemographyFilter{SecteurID: q.Get("secteurId")}
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"anneeDebut", &filter.AnneeDebut},
		{"anneeFin", &filter.AnneeFin},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		year, err := strconv.Atoi(raw)
		if err != nil {
			apierrors.ValidationError(w, "параметр "+p.name+" должен быть годом")
			return
		}
		*p.dst = year
	}

	demography, err := h.catalog.Demography(r.Context(), sess, filter)
	if err != nil {
		h.writeServiceError(w, "Failed to fetch demography", err)
		return
	}
	writeJSON(w, http.StatusOK, demography)
}

// GetHousing — GET /api/v1/housing?secteurId=...
func (h *APIHandler) GetHousing(w http.ResponseWriter, r *http.Request) {
	sess := session.From(r.Context())

	housing, err := h.catalog.Housing(r.Context(), sess, r.URL.Query().Get("secteurId"))
	if err != nil {
		h.writeServiceError(w, "Failed to fetch housing constructions", err)
		return
	}
	writeJSON(w, http.StatusOK, housing)
}

// GetMapData — GET /api/v1/map-data. Сектора и школы для карты.
func (h *APIHandler) GetMapData(w http.ResponseWriter, r *http.Request) {
	sess := session.From(r.Context())

	data, err := h.catalog.MapData(r.Context(), sess)
	if err != nil {
		h.writeServiceError(w, "Failed to fetch map data", err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
