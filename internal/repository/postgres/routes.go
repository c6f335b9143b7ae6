package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/repository"
)

// RouteStore implements the versioned routing backing store on PostgreSQL.
// Every write is conditioned on the version token the caller read, so
// concurrent activate/deactivate calls cannot silently overwrite each
// other (the lost-update weakness of the legacy shared-blob variant).
type RouteStore struct {
	pool *pgxpool.Pool
}

// NewRouteStore creates a RouteStore backed by the shared pool.
func NewRouteStore(pool *pgxpool.Pool) *RouteStore {
	return &RouteStore{pool: pool}
}

var _ repository.RouteStore = (*RouteStore)(nil)

// Snapshot returns the full tenant -> cell-URL mapping.
func (s *RouteStore) Snapshot(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT tenant_id, cell_url FROM routing_entries`)
	if err != nil {
		return nil, fmt.Errorf("read routing snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[string]string)
	for rows.Next() {
		var tenantID, cellURL string
		if err := rows.Scan(&tenantID, &cellURL); err != nil {
			return nil, fmt.Errorf("scan routing entry: %w", err)
		}
		snapshot[tenantID] = cellURL
	}
	return snapshot, rows.Err()
}

// Get fetches a single routing entry with its version token.
func (s *RouteStore) Get(ctx context.Context, tenantID string) (*domain.RoutingEntry, error) {
	var entry domain.RoutingEntry
	err := s.pool.QueryRow(ctx,
		`SELECT tenant_id, cell_url, version, updated_at FROM routing_entries WHERE tenant_id = $1`,
		tenantID,
	).Scan(&entry.TenantID, &entry.CellURL, &entry.Version, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("routing entry %s: %w", tenantID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get routing entry %s: %w", tenantID, err)
	}
	return &entry, nil
}

// Put upserts a routing entry conditioned on expectedVersion.
// expectedVersion 0 requires that no entry exists yet.
func (s *RouteStore) Put(ctx context.Context, tenantID, cellURL string, expectedVersion int64) error {
	if expectedVersion == 0 {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO routing_entries (tenant_id, cell_url, version)
			VALUES ($1, $2, 1)
			ON CONFLICT (tenant_id) DO NOTHING`,
			tenantID, cellURL,
		)
		if err != nil {
			return fmt.Errorf("insert routing entry %s: %w", tenantID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("routing entry %s already exists: %w", tenantID, repository.ErrVersionConflict)
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE routing_entries
		SET cell_url = $2, version = version + 1, updated_at = now()
		WHERE tenant_id = $1 AND version = $3`,
		tenantID, cellURL, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update routing entry %s: %w", tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("routing entry %s at version %d: %w", tenantID, expectedVersion, repository.ErrVersionConflict)
	}
	return nil
}

// Delete removes a routing entry conditioned on expectedVersion. Deleting
// an entry that is already gone is reported as not-found so the caller can
// treat it as an idempotent success.
func (s *RouteStore) Delete(ctx context.Context, tenantID string, expectedVersion int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM routing_entries WHERE tenant_id = $1 AND version = $2`,
		tenantID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("delete routing entry %s: %w", tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM routing_entries WHERE tenant_id = $1)`, tenantID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check routing entry %s: %w", tenantID, err)
		}
		if exists {
			return fmt.Errorf("routing entry %s at version %d: %w", tenantID, expectedVersion, repository.ErrVersionConflict)
		}
		return fmt.Errorf("routing entry %s: %w", tenantID, apperrors.ErrNotFound)
	}
	return nil
}
