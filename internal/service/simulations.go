// simulations.go — сервис симуляций школьного планирования.
// Все операции работают через внутренний ID тенанта: внешний ключ
// (из токена) сначала превращается в строку таблицы tenants.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/scolaplan/dashboard-module/internal/domain/model"
	"github.com/scolaplan/dashboard-module/internal/repository"
)

// SimulationService — сервис симуляций.
type SimulationService struct {
	tenantRepo repository.TenantRepository
	simRepo    repository.SimulationRepository
	cache      *TenantCache
	// defaultTenantKey — ключ тенанта по умолчанию. Используется только
	// операциями симуляций, когда токен не содержит тенанта.
	// Пустая строка — фолбэк отключён.
	defaultTenantKey string
	logger           *slog.Logger
}

// NewSimulationService создаёт сервис симуляций.
func NewSimulationService(
	tenantRepo repository.TenantRepository,
	simRepo repository.SimulationRepository,
	cache *TenantCache,
	defaultTenantKey string,
	logger *slog.Logger,
) *SimulationService {
	return &SimulationService{
		tenantRepo:       tenantRepo,
		simRepo:          simRepo,
		cache:            cache,
		defaultTenantKey: defaultTenantKey,
		logger:           logger.With(slog.String("component", "simulation_service")),
	}
}

// resolveTenant превращает внешний ключ тенанта во внутреннюю строку.
// allowDefault — пустой ключ заменяется ключом по умолчанию; фолбэк
// разрешён только для list/create, чтение результатов требует тенанта
// из сессии. Неизвестный ключ — repository.ErrTenantNotFound, без
// тихого фолбэка.
func (s *SimulationService) resolveTenant(ctx context.Context, key string, allowDefault bool) (*model.TenantRow, error) {
	if key == "" {
		if !allowDefault || s.defaultTenantKey == "" {
			return nil, ErrNoTenant
		}
		key = s.defaultTenantKey
	}

	if row, ok := s.cache.Get(key); ok {
		return row, nil
	}

	row, err := s.tenantRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, row)
	return row, nil
}

// List возвращает симуляции тенанта, новые первыми.
func (s *SimulationService) List(ctx context.Context, tenantKey string) ([]*model.Simulation, error) {
	row, err := s.resolveTenant(ctx, tenantKey, true)
	if err != nil {
		return nil, err
	}
	return s.simRepo.List(ctx, row.ID)
}

// CreateSimulationInput — входные данные создания симуляции.
type CreateSimulationInput struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
	CreatedBy   string          `json:"-"`
}

// Create валидирует вход и создаёт симуляцию в статусе PENDING.
// Валидация выполняется до любого обращения к БД.
func (s *SimulationService) Create(ctx context.Context, tenantKey string, input CreateSimulationInput) (*model.Simulation, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: поле name обязательно", ErrValidation)
	}
	if len(input.Parameters) == 0 || string(input.Parameters) == "null" {
		return nil, fmt.Errorf("%w: поле parameters обязательно", ErrValidation)
	}
	if !json.Valid(input.Parameters) {
		return nil, fmt.Errorf("%w: поле parameters — некорректный JSON", ErrValidation)
	}

	row, err := s.resolveTenant(ctx, tenantKey, true)
	if err != nil {
		return nil, err
	}

	id, err := s.simRepo.Create(ctx, repository.CreateSimulationParams{
		TenantID:    row.ID,
		Name:        input.Name,
		Description: input.Description,
		Parameters:  input.Parameters,
		CreatedBy:   input.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Симуляция создана",
		slog.String("simulation_id", id),
		slog.String("tenant", row.Key),
		slog.String("created_by", input.CreatedBy),
	)

	return s.simRepo.GetByID(ctx, row.ID, id)
}

// ResultsInput — параметры выборки результатов симуляции.
type ResultsInput struct {
	SimulationID string
	UAI          string
	Niveau       *string
}

// Results возвращает строки прогноза по классам, по возрастанию annee.
func (s *SimulationService) Results(ctx context.Context, tenantKey string, input ResultsInput) ([]model.SimulationResult, error) {
	if input.SimulationID == "" {
		return nil, fmt.Errorf("%w: параметр simulationId обязателен", ErrValidation)
	}
	if input.UAI == "" {
		return nil, fmt.Errorf("%w: параметр uai обязателен", ErrValidation)
	}

	// Без фолбэка на тенант по умолчанию: результаты читаются только
	// с тенантом из сессии.
	row, err := s.resolveTenant(ctx, tenantKey, false)
	if err != nil {
		return nil, err
	}

	return s.simRepo.ListResults(ctx, repository.ResultsFilter{
		TenantID:     row.ID,
		SimulationID: input.SimulationID,
		UAI:          input.UAI,
		Niveau:       input.Niveau,
	})
}
