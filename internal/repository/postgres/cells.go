package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/repository"
)

// CellStore implements repository.CellStore on PostgreSQL.
type CellStore struct {
	pool *pgxpool.Pool
}

// NewCellStore creates a CellStore backed by the shared pool.
func NewCellStore(pool *pgxpool.Pool) *CellStore {
	return &CellStore{pool: pool}
}

var _ repository.CellStore = (*CellStore)(nil)

const cellColumns = `id, name, max_capacity, utilization, priority_counter,
	wave_number, status, url, provisioning_meta, created_at, updated_at`

func scanCell(row pgx.Row) (*domain.Cell, error) {
	var c domain.Cell
	var status string
	if err := row.Scan(
		&c.ID, &c.Name, &c.MaxCapacity, &c.Utilization, &c.PriorityCounter,
		&c.WaveNumber, &status, &c.URL, &c.ProvisioningMeta, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = domain.CellStatus(status)
	return &c, nil
}

// Insert persists a new cell row.
func (s *CellStore) Insert(ctx context.Context, cell *domain.Cell) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cells (id, name, max_capacity, utilization, priority_counter, wave_number, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cell.ID, cell.Name, cell.MaxCapacity, cell.Utilization, cell.PriorityCounter,
		cell.WaveNumber, string(cell.Status),
	)
	if err != nil {
		return fmt.Errorf("insert cell %s: %w", cell.ID, err)
	}
	return nil
}

// Get fetches a cell by id.
func (s *CellStore) Get(ctx context.Context, cellID string) (*domain.Cell, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+cellColumns+` FROM cells WHERE id = $1`, cellID)
	cell, err := scanCell(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cell %s: %w", cellID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get cell %s: %w", cellID, err)
	}
	return cell, nil
}

// List returns cells ordered by creation time with limit/offset pagination.
func (s *CellStore) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Cell, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+cellColumns+` FROM cells ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list cells: %w", err)
	}
	defer rows.Close()

	var cells []*domain.Cell
	for rows.Next() {
		cell, err := scanCell(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cell row: %w", err)
		}
		cells = append(cells, cell)
	}
	return cells, rows.Err()
}

// UpdateProfile mutates the display name and/or wave number.
func (s *CellStore) UpdateProfile(ctx context.Context, cellID string, name *string, wave *int) error {
	sets := []string{"updated_at = now()"}
	args := []interface{}{cellID}
	if name != nil {
		args = append(args, *name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if wave != nil {
		args = append(args, *wave)
		sets = append(sets, fmt.Sprintf("wave_number = $%d", len(args)))
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE cells SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("update cell %s: %w", cellID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cell %s: %w", cellID, apperrors.ErrNotFound)
	}
	return nil
}

// settled resolves a zero-row conditional transition: the cell is either
// absent, which is not-found, or already past the predicate status, which
// is a replayed transition and reported as not-applied.
func (s *CellStore) settled(ctx context.Context, cellID string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cells WHERE id = $1)`, cellID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cell %s: %w", cellID, err)
	}
	if !exists {
		return false, fmt.Errorf("cell %s: %w", cellID, apperrors.ErrNotFound)
	}
	return false, nil
}

// CompleteCreation transitions creating -> available and records the
// provisioning outputs. The status predicate makes replays no-ops.
func (s *CellStore) CompleteCreation(ctx context.Context, cellID, url string, maxCapacity int, meta []byte) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cells
		SET status = $2, url = $3, max_capacity = $4, provisioning_meta = $5, updated_at = now()
		WHERE id = $1 AND status = $6`,
		cellID, string(domain.CellStatusAvailable), url, maxCapacity, meta,
		string(domain.CellStatusCreating),
	)
	if err != nil {
		return false, fmt.Errorf("complete cell %s creation: %w", cellID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.settled(ctx, cellID)
	}
	return true, nil
}

// MarkFailed transitions creating -> failed.
func (s *CellStore) MarkFailed(ctx context.Context, cellID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cells SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		cellID, string(domain.CellStatusFailed), string(domain.CellStatusCreating),
	)
	if err != nil {
		return false, fmt.Errorf("mark cell %s failed: %w", cellID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.settled(ctx, cellID)
	}
	return true, nil
}

// TryReserve is the capacity-ledger conditional update: status check,
// spare-capacity check, utilization increment and priority allocation are
// one statement, so two concurrent reservations can never both observe the
// last free slot.
func (s *CellStore) TryReserve(ctx context.Context, cellID string) (int, bool, error) {
	var priority int
	err := s.pool.QueryRow(ctx, `
		UPDATE cells
		SET utilization = utilization + 1,
		    priority_counter = priority_counter + $2,
		    updated_at = now()
		WHERE id = $1 AND status = $3 AND utilization < max_capacity
		RETURNING priority_counter`,
		cellID, domain.PriorityStep, string(domain.CellStatusAvailable),
	).Scan(&priority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("reserve slot on cell %s: %w", cellID, err)
	}
	return priority, true, nil
}

// ReleaseSlot decrements utilization by one, floored at zero. The priority
// counter is deliberately left alone: priorities are never reused.
func (s *CellStore) ReleaseSlot(ctx context.Context, cellID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cells
		SET utilization = GREATEST(utilization - 1, 0), updated_at = now()
		WHERE id = $1`,
		cellID,
	)
	if err != nil {
		return fmt.Errorf("release slot on cell %s: %w", cellID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cell %s: %w", cellID, apperrors.ErrNotFound)
	}
	return nil
}
