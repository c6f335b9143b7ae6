package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/repository"
)

// ParamStore implements the configuration parameter store on PostgreSQL.
type ParamStore struct {
	pool *pgxpool.Pool
}

// NewParamStore creates a ParamStore backed by the shared pool.
func NewParamStore(pool *pgxpool.Pool) *ParamStore {
	return &ParamStore{pool: pool}
}

var _ repository.ParamStore = (*ParamStore)(nil)

// Get retrieves a single named parameter value.
func (s *ParamStore) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM config_params WHERE name = $1`, name,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("parameter %s: %w", name, apperrors.ErrNotFound)
		}
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	return value, nil
}

// Set upserts a parameter value.
func (s *ParamStore) Set(ctx context.Context, name, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO config_params (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		name, value,
	)
	if err != nil {
		return fmt.Errorf("set parameter %s: %w", name, err)
	}
	return nil
}
