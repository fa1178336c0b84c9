package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scolaplan/dashboard-module/internal/domain/model"
)

// MemorySimulationRepository — in-memory реализация SimulationRepository.
// Коллекция держится за мьютексом внутри инжектируемого экземпляра,
// а не в состоянии уровня пакета — нет утечек между тестами и запросами.
// Для dev-режима и тестов; не пригодна для multi-instance развёртывания.
type MemorySimulationRepository struct {
	mu      sync.Mutex
	seq     map[string]int // порядок вставки для разрешения равных CreatedAt
	sims    map[string]*model.Simulation
	results map[string][]resultRow
}

// resultRow — строка результата с привязкой к тенанту и UAI.
type resultRow struct {
	tenantID string
	uai      string
	result   model.SimulationResult
}

// NewMemorySimulationRepository создаёт пустое in-memory хранилище.
func NewMemorySimulationRepository() *MemorySimulationRepository {
	return &MemorySimulationRepository{
		seq:     make(map[string]int),
		sims:    make(map[string]*model.Simulation),
		results: make(map[string][]resultRow),
	}
}

func (r *MemorySimulationRepository) List(_ context.Context, tenantID string) ([]*model.Simulation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sims []*model.Simulation
	for _, sim := range r.sims {
		if sim.TenantID == tenantID {
			cp := *sim
			sims = append(sims, &cp)
		}
	}

	// Новые первыми; при равном CreatedAt — по порядку вставки.
	sort.Slice(sims, func(i, j int) bool {
		if !sims[i].CreatedAt.Equal(sims[j].CreatedAt) {
			return sims[i].CreatedAt.After(sims[j].CreatedAt)
		}
		return r.seq[sims[i].ID] > r.seq[sims[j].ID]
	})

	return sims, nil
}

func (r *MemorySimulationRepository) Create(_ context.Context, params CreateSimulationParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sim := &model.Simulation{
		ID:          uuid.NewString(),
		TenantID:    params.TenantID,
		Name:        params.Name,
		Description: params.Description,
		Status:      model.StatusPending,
		Parameters:  params.Parameters,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}
	r.seq[sim.ID] = len(r.seq)
	r.sims[sim.ID] = sim

	return sim.ID, nil
}

func (r *MemorySimulationRepository) GetByID(_ context.Context, tenantID, id string) (*model.Simulation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sim, ok := r.sims[id]
	if !ok || sim.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *sim
	return &cp, nil
}

func (r *MemorySimulationRepository) ListResults(_ context.Context, filter ResultsFilter) ([]model.SimulationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := []model.SimulationResult{}
	for _, row := range r.results[filter.SimulationID] {
		if row.tenantID != filter.TenantID || row.uai != filter.UAI {
			continue
		}
		if filter.Niveau != nil && row.result.Niveau != *filter.Niveau {
			continue
		}
		results = append(results, row.result)
	}

	// По возрастанию annee
	sort.Slice(results, func(i, j int) bool {
		return results[i].Annee < results[j].Annee
	})

	return results, nil
}

func (r *MemorySimulationRepository) UpdateStatus(_ context.Context, id string, status model.SimulationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sim, ok := r.sims[id]
	if !ok {
		return ErrNotFound
	}
	if !sim.Status.CanTransitionTo(status) {
		return ErrInvalidTransition
	}
	sim.Status = status
	return nil
}

// SeedResult добавляет строку результата (для тестов и dev-наполнения).
func (r *MemorySimulationRepository) SeedResult(tenantID, simulationID, uai string, result model.SimulationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results[simulationID] = append(r.results[simulationID], resultRow{
		tenantID: tenantID,
		uai:      uai,
		result:   result,
	})
}
