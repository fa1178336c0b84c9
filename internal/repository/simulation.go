package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scolaplan/dashboard-module/internal/domain/model"
)

// CreateSimulationParams — параметры создания симуляции.
// Валидация обязательных полей выполняется сервисным слоем
// ДО обращения к репозиторию.
type CreateSimulationParams struct {
	// TenantID — внутренний ID тенанта (не внешний ключ).
	TenantID string
	// Name — имя симуляции.
	Name string
	// Description — описание (опционально).
	Description *string
	// Parameters — параметры прогноза (JSON).
	Parameters json.RawMessage
	// CreatedBy — создатель (email или username).
	CreatedBy string
}

// ResultsFilter — фильтр чтения результатов симуляции.
type ResultsFilter struct {
	// TenantID — внутренний ID тенанта.
	TenantID string
	// SimulationID — ID симуляции.
	SimulationID string
	// UAI — код учебного заведения.
	UAI string
	// Niveau — уровень класса (опционально, nil — все уровни).
	Niveau *string
}

// SimulationRepository — хранилище конфигураций симуляций и их
// результатов. Единственная реализация для продакшена — PostgreSQL;
// in-memory реализация (memory.go) служит тестам и dev-режиму.
type SimulationRepository interface {
	// List возвращает симуляции тенанта, новые первыми.
	List(ctx context.Context, tenantID string) ([]*model.Simulation, error)
	// Create сохраняет новую симуляцию со статусом PENDING
	// и возвращает её ID. Единственный INSERT: при ошибке строка
	// не остаётся.
	Create(ctx context.Context, params CreateSimulationParams) (string, error)
	// GetByID возвращает симуляцию тенанта или ErrNotFound.
	GetByID(ctx context.Context, tenantID, id string) (*model.Simulation, error)
	// ListResults возвращает строки результатов по возрастанию annee.
	ListResults(ctx context.Context, filter ResultsFilter) ([]model.SimulationResult, error)
	// UpdateStatus переводит симуляцию в новый статус.
	// Переходы только вперёд; ErrInvalidTransition при нарушении.
	UpdateStatus(ctx context.Context, id string, status model.SimulationStatus) error
}

// simulationRepo — реализация SimulationRepository поверх PostgreSQL.
type simulationRepo struct {
	db DBTX
	tx *TxRunner
}

// NewSimulationRepository создаёт репозиторий симуляций.
func NewSimulationRepository(pool *pgxpool.Pool) SimulationRepository {
	return &simulationRepo{db: pool, tx: NewTxRunner(pool)}
}

func (r *simulationRepo) List(ctx context.Context, tenantID string) ([]*model.Simulation, error) {
	query := `
		SELECT id, tenant_id, name, description, parameters, status, created_by, created_at
		FROM simulations
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка симуляций: %w", err)
	}
	defer rows.Close()

	var sims []*model.Simulation
	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, err
		}
		sims = append(sims, sim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк симуляций: %w", err)
	}

	return sims, nil
}

func (r *simulationRepo) Create(ctx context.Context, params CreateSimulationParams) (string, error) {
	query := `
		INSERT INTO simulations (tenant_id, name, description, parameters, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id string
	err := r.db.QueryRow(ctx, query,
		params.TenantID, params.Name, params.Description,
		params.Parameters, model.StatusPending, params.CreatedBy,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("ошибка создания симуляции: %w", err)
	}
	return id, nil
}

func (r *simulationRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Simulation, error) {
	query := `
		SELECT id, tenant_id, name, description, parameters, status, created_by, created_at
		FROM simulations
		WHERE tenant_id = $1 AND id = $2`

	sim, err := scanSimulation(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sim, nil
}

func (r *simulationRepo) ListResults(ctx context.Context, filter ResultsFilter) ([]model.SimulationResult, error) {
	query := `
		SELECT annee, niveau, effectif_pred
		FROM simulation_results_classes
		WHERE tenant_id = $1 AND simulation_id = $2 AND uai = $3`
	args := []any{filter.TenantID, filter.SimulationID, filter.UAI}

	if filter.Niveau != nil {
		query += ` AND niveau = $4`
		args = append(args, *filter.Niveau)
	}
	query += ` ORDER BY annee ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения результатов симуляции: %w", err)
	}
	defer rows.Close()

	results := []model.SimulationResult{}
	for rows.Next() {
		var res model.SimulationResult
		if err := rows.Scan(&res.Annee, &res.Niveau, &res.EffectifPred); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки результата: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк результатов: %w", err)
	}

	return results, nil
}

// UpdateStatus читает текущий статус с блокировкой строки и применяет
// переход в одной транзакции — worker и API не могут перегнать друг друга.
func (r *simulationRepo) UpdateStatus(ctx context.Context, id string, status model.SimulationStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: неизвестный статус %q", ErrInvalidTransition, status)
	}

	return r.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		var current model.SimulationStatus
		err := tx.QueryRow(ctx,
			`SELECT status FROM simulations WHERE id = $1 FOR UPDATE`, id,
		).Scan(&current)
		if err != nil {
			if err == pgx.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("ошибка чтения статуса: %w", err)
		}

		if !current.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current, status)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE simulations SET status = $2 WHERE id = $1`, id, status,
		); err != nil {
			return fmt.Errorf("ошибка обновления статуса: %w", err)
		}
		return nil
	})
}

// scanSimulation читает одну строку simulations.
func scanSimulation(row pgx.Row) (*model.Simulation, error) {
	sim := &model.Simulation{}
	err := row.Scan(
		&sim.ID, &sim.TenantID, &sim.Name, &sim.Description,
		&sim.Parameters, &sim.Status, &sim.CreatedBy, &sim.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка чтения строки симуляции: %w", err)
	}
	return sim, nil
}
