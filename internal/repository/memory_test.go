package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/scolaplan/dashboard-module/internal/domain/model"
)

func TestMemoryRepo_CreateAndList(t *testing.T) {
	repo := NewMemorySimulationRepository()
	ctx := context.Background()

	id1, err := repo.Create(ctx, CreateSimulationParams{
		TenantID:   "tenant-1",
		Name:       "Rentrée 2026",
		Parameters: json.RawMessage(`{"horizon": 5}`),
		CreatedBy:  "j.dupont@ville.fr",
	})
	if err != nil {
		t.Fatalf("Create вернул ошибку: %v", err)
	}
	if id1 == "" {
		t.Fatal("Create вернул пустой ID")
	}

	id2, err := repo.Create(ctx, CreateSimulationParams{
		TenantID:   "tenant-1",
		Name:       "Rentrée 2027",
		Parameters: json.RawMessage(`{}`),
		CreatedBy:  "j.dupont@ville.fr",
	})
	if err != nil {
		t.Fatalf("Create вернул ошибку: %v", err)
	}

	// Чужой тенант не виден
	if _, err := repo.Create(ctx, CreateSimulationParams{
		TenantID:   "tenant-2",
		Name:       "Autre",
		Parameters: json.RawMessage(`{}`),
		CreatedBy:  "x",
	}); err != nil {
		t.Fatalf("Create вернул ошибку: %v", err)
	}

	sims, err := repo.List(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("List вернул ошибку: %v", err)
	}
	if len(sims) != 2 {
		t.Fatalf("List вернул %d симуляций, ожидается 2", len(sims))
	}
	// Новые первыми
	if sims[0].ID != id2 || sims[1].ID != id1 {
		t.Errorf("порядок списка: %s, %s — ожидается новые первыми", sims[0].ID, sims[1].ID)
	}
	if sims[0].Status != model.StatusPending {
		t.Errorf("новая симуляция имеет статус %s, ожидается PENDING", sims[0].Status)
	}
}

func TestMemoryRepo_GetByID_TenantScoped(t *testing.T) {
	repo := NewMemorySimulationRepository()
	ctx := context.Background()

	id, _ := repo.Create(ctx, CreateSimulationParams{
		TenantID:   "tenant-1",
		Name:       "S",
		Parameters: json.RawMessage(`{}`),
		CreatedBy:  "x",
	})

	if _, err := repo.GetByID(ctx, "tenant-1", id); err != nil {
		t.Errorf("GetByID своего тенанта вернул ошибку: %v", err)
	}
	// Другой тенант не видит чужую симуляцию
	if _, err := repo.GetByID(ctx, "tenant-2", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID чужого тенанта: ошибка = %v, ожидается ErrNotFound", err)
	}
}

func TestMemoryRepo_ListResults_SortedByAnnee(t *testing.T) {
	repo := NewMemorySimulationRepository()
	ctx := context.Background()

	const simID = "sim-1"
	repo.SeedResult("tenant-1", simID, "0751234A", model.SimulationResult{Annee: 2024, Niveau: "CM2", EffectifPred: 26})
	repo.SeedResult("tenant-1", simID, "0751234A", model.SimulationResult{Annee: 2022, Niveau: "CM2", EffectifPred: 30})
	repo.SeedResult("tenant-1", simID, "0751234A", model.SimulationResult{Annee: 2023, Niveau: "CM2", EffectifPred: 28})
	// Чужой тенант и чужой UAI не попадают в выборку
	repo.SeedResult("tenant-2", simID, "0751234A", model.SimulationResult{Annee: 2021, Niveau: "CM2", EffectifPred: 10})
	repo.SeedResult("tenant-1", simID, "0759999Z", model.SimulationResult{Annee: 2020, Niveau: "CM2", EffectifPred: 11})

	results, err := repo.ListResults(ctx, ResultsFilter{
		TenantID:     "tenant-1",
		SimulationID: simID,
		UAI:          "0751234A",
	})
	if err != nil {
		t.Fatalf("ListResults вернул ошибку: %v", err)
	}

	want := []int{2022, 2023, 2024}
	if len(results) != len(want) {
		t.Fatalf("получено %d строк, ожидается %d", len(results), len(want))
	}
	for i, annee := range want {
		if results[i].Annee != annee {
			t.Errorf("results[%d].Annee = %d, ожидается %d", i, results[i].Annee, annee)
		}
	}
}

func TestMemoryRepo_ListResults_NiveauFilter(t *testing.T) {
	repo := NewMemorySimulationRepository()
	ctx := context.Background()

	const simID = "sim-1"
	repo.SeedResult("t", simID, "U", model.SimulationResult{Annee: 2024, Niveau: "CM1", EffectifPred: 20})
	repo.SeedResult("t", simID, "U", model.SimulationResult{Annee: 2024, Niveau: "CM2", EffectifPred: 25})

	niveau := "CM2"
	results, err := repo.ListResults(ctx, ResultsFilter{
		TenantID: "t", SimulationID: simID, UAI: "U", Niveau: &niveau,
	})
	if err != nil {
		t.Fatalf("ListResults вернул ошибку: %v", err)
	}
	if len(results) != 1 || results[0].Niveau != "CM2" {
		t.Errorf("фильтр по niveau вернул %+v", results)
	}
}

func TestMemoryRepo_UpdateStatus_ForwardOnly(t *testing.T) {
	repo := NewMemorySimulationRepository()
	ctx := context.Background()

	id, _ := repo.Create(ctx, CreateSimulationParams{
		TenantID: "t", Name: "S", Parameters: json.RawMessage(`{}`), CreatedBy: "x",
	})

	if err := repo.UpdateStatus(ctx, id, model.StatusRunning); err != nil {
		t.Fatalf("PENDING → RUNNING: %v", err)
	}
	if err := repo.UpdateStatus(ctx, id, model.StatusPending); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("RUNNING → PENDING должен быть запрещён, ошибка = %v", err)
	}
	if err := repo.UpdateStatus(ctx, id, model.StatusDone); err != nil {
		t.Fatalf("RUNNING → DONE: %v", err)
	}
	if err := repo.UpdateStatus(ctx, id, model.StatusRunning); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("DONE — терминальный статус, ошибка = %v", err)
	}
	if err := repo.UpdateStatus(ctx, "нет-такого", model.StatusRunning); !errors.Is(err, ErrNotFound) {
		t.Errorf("неизвестный ID: ошибка = %v, ожидается ErrNotFound", err)
	}
}
