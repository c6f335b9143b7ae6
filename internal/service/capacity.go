// Package service holds domain services shared across use cases.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository"
)

// CapacityLedger allocates and releases tenant slots on cells. All
// contention handling lives in the store's conditional update; the ledger's
// job is classifying a rejected reservation into the caller-facing error.
type CapacityLedger struct {
	cells repository.CellStore
}

// NewCapacityLedger creates a ledger over the given cell store.
func NewCapacityLedger(cells repository.CellStore) *CapacityLedger {
	return &CapacityLedger{cells: cells}
}

// Reservation is the result of a successful slot reservation.
type Reservation struct {
	CellID           string
	ListenerPriority int
}

// ReserveSlot reserves one tenant slot on the cell and allocates the next
// listener priority. When the conditional update does not apply, the cell is
// re-read once to tell apart the three rejection causes: missing cell,
// cell not available, cell at capacity.
func (l *CapacityLedger) ReserveSlot(ctx context.Context, cellID string) (*Reservation, error) {
	priority, applied, err := l.cells.TryReserve(ctx, cellID)
	if err != nil {
		return nil, fmt.Errorf("reserve slot: %w", err)
	}
	if applied {
		logger.Debug("slot reserved",
			zap.String("cell_id", cellID),
			zap.Int("listener_priority", priority))
		return &Reservation{CellID: cellID, ListenerPriority: priority}, nil
	}

	cell, err := l.cells.Get(ctx, cellID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrCellNotFoundf(cellID)
		}
		return nil, fmt.Errorf("classify rejected reservation: %w", err)
	}
	if cell.Status != domain.CellStatusAvailable {
		return nil, apperrors.ErrCellUnavailablef(cellID)
	}
	return nil, apperrors.ErrCellFullf(cellID)
}

// ReleaseSlot hands a reserved slot back, compensating a failed tenant
// provisioning. Utilization is floored at zero by the store and the priority
// counter is never rewound, so a release can never hand out a priority that
// was already used.
func (l *CapacityLedger) ReleaseSlot(ctx context.Context, cellID string) error {
	if err := l.cells.ReleaseSlot(ctx, cellID); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	logger.Debug("slot released", zap.String("cell_id", cellID))
	return nil
}
