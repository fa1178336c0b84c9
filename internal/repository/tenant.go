package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/scolaplan/dashboard-module/internal/domain/model"
)

// TenantRepository — доступ к канонической таблице tenants.
// Таблица заполняется при provisioning, отсюда только читается.
type TenantRepository interface {
	// GetByKey возвращает строку тенанта по внешнему ключу.
	// Возвращает ErrTenantNotFound, если ключ не зарегистрирован.
	GetByKey(ctx context.Context, key string) (*model.TenantRow, error)
}

// tenantRepo — реализация TenantRepository.
type tenantRepo struct {
	db DBTX
}

// NewTenantRepository создаёт репозиторий тенантов.
func NewTenantRepository(db DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) GetByKey(ctx context.Context, key string) (*model.TenantRow, error) {
	query := `
		SELECT id, key, name
		FROM tenants
		WHERE key = $1`

	row := &model.TenantRow{}
	err := r.db.QueryRow(ctx, query, key).Scan(&row.ID, &row.Key, &row.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: ключ %q", ErrTenantNotFound, key)
		}
		return nil, fmt.Errorf("ошибка получения тенанта: %w", err)
	}
	return row, nil
}
