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

// TenantStore implements repository.TenantStore on PostgreSQL.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a TenantStore backed by the shared pool.
func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

var _ repository.TenantStore = (*TenantStore)(nil)

const tenantColumns = `id, cell_id, name, tier, email, listener_priority,
	image_version, status, provisioning_meta, created_at, updated_at`

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	var status string
	if err := row.Scan(
		&t.ID, &t.CellID, &t.Name, &t.Tier, &t.Email, &t.ListenerPriority,
		&t.ImageVersion, &status, &t.ProvisioningMeta, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = domain.TenantStatus(status)
	return &t, nil
}

// Insert persists a new tenant row.
func (s *TenantStore) Insert(ctx context.Context, tenant *domain.Tenant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (id, cell_id, name, tier, email, listener_priority, image_version, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tenant.ID, tenant.CellID, tenant.Name, tenant.Tier, tenant.Email,
		tenant.ListenerPriority, tenant.ImageVersion, string(tenant.Status),
	)
	if err != nil {
		return fmt.Errorf("insert tenant %s: %w", tenant.ID, err)
	}
	return nil
}

// Get fetches a tenant by its composite (cell, tenant) key.
func (s *TenantStore) Get(ctx context.Context, cellID, tenantID string) (*domain.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE cell_id = $1 AND id = $2`,
		cellID, tenantID)
	tenant, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s in cell %s: %w", tenantID, cellID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant %s: %w", tenantID, err)
	}
	return tenant, nil
}

// GetByID fetches a tenant by id alone.
func (s *TenantStore) GetByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, tenantID)
	tenant, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", tenantID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant %s: %w", tenantID, err)
	}
	return tenant, nil
}

// ListByCell returns a cell's tenants in listener-priority order.
func (s *TenantStore) ListByCell(ctx context.Context, cellID string, opts repository.ListOptions) ([]*domain.Tenant, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants
		WHERE cell_id = $1 ORDER BY listener_priority LIMIT $2 OFFSET $3`,
		cellID, limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list tenants of cell %s: %w", cellID, err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant row: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

// settled resolves a zero-row conditional transition the same way the cell
// store does: absent row is not-found, settled row is a replay.
func (s *TenantStore) settled(ctx context.Context, cellID, tenantID string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE cell_id = $1 AND id = $2)`,
		cellID, tenantID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check tenant %s: %w", tenantID, err)
	}
	if !exists {
		return false, fmt.Errorf("tenant %s in cell %s: %w", tenantID, cellID, apperrors.ErrNotFound)
	}
	return false, nil
}

// CompleteCreation transitions creating -> available and stores
// provisioning metadata. Replays find zero rows and report false.
func (s *TenantStore) CompleteCreation(ctx context.Context, cellID, tenantID string, meta []byte) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants
		SET status = $3, provisioning_meta = $4, updated_at = now()
		WHERE cell_id = $1 AND id = $2 AND status = $5`,
		cellID, tenantID,
		string(domain.TenantStatusAvailable), meta, string(domain.TenantStatusCreating),
	)
	if err != nil {
		return false, fmt.Errorf("complete tenant %s creation: %w", tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.settled(ctx, cellID, tenantID)
	}
	return true, nil
}

// MarkFailed transitions creating -> failed. The caller releases the
// reserved capacity slot only when this reports true, which is what keeps
// at-least-once completion delivery from double-releasing.
func (s *TenantStore) MarkFailed(ctx context.Context, cellID, tenantID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants SET status = $3, updated_at = now()
		WHERE cell_id = $1 AND id = $2 AND status = $4`,
		cellID, tenantID,
		string(domain.TenantStatusFailed), string(domain.TenantStatusCreating),
	)
	if err != nil {
		return false, fmt.Errorf("mark tenant %s failed: %w", tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.settled(ctx, cellID, tenantID)
	}
	return true, nil
}

// SetStatus conditionally moves a tenant between statuses.
func (s *TenantStore) SetStatus(ctx context.Context, tenantID string, from, to domain.TenantStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		tenantID, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("set tenant %s status %s -> %s: %w", tenantID, from, to, err)
	}
	return tag.RowsAffected() == 1, nil
}
