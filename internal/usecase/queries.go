package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository"
)

// QueryUseCase bundles the read-side operations and the cell profile
// update. None of them touch the capacity ledger or the routing store.
type QueryUseCase struct {
	cells   repository.CellStore
	tenants repository.TenantStore
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(cells repository.CellStore, tenants repository.TenantStore) *QueryUseCase {
	return &QueryUseCase{cells: cells, tenants: tenants}
}

// DescribeCell returns a single cell.
func (uc *QueryUseCase) DescribeCell(ctx context.Context, cellID string) (*domain.Cell, error) {
	cell, err := uc.cells.Get(ctx, cellID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrCellNotFoundf(cellID)
		}
		return nil, fmt.Errorf("describe cell %s: %w", cellID, err)
	}
	return cell, nil
}

// ListCells returns all cells in creation order.
func (uc *QueryUseCase) ListCells(ctx context.Context, opts repository.ListOptions) ([]*domain.Cell, error) {
	cells, err := uc.cells.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list cells: %w", err)
	}
	return cells, nil
}

// DescribeTenant returns a single tenant of a cell.
func (uc *QueryUseCase) DescribeTenant(ctx context.Context, cellID, tenantID string) (*domain.Tenant, error) {
	tenant, err := uc.tenants.Get(ctx, cellID, tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrTenantNotFoundf(tenantID)
		}
		return nil, fmt.Errorf("describe tenant %s: %w", tenantID, err)
	}
	return tenant, nil
}

// ListTenants returns a cell's tenants in listener-priority order. The cell
// must exist; an empty cell yields an empty list, not an error.
func (uc *QueryUseCase) ListTenants(ctx context.Context, cellID string, opts repository.ListOptions) ([]*domain.Tenant, error) {
	if _, err := uc.cells.Get(ctx, cellID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrCellNotFoundf(cellID)
		}
		return nil, fmt.Errorf("load cell %s: %w", cellID, err)
	}
	tenants, err := uc.tenants.ListByCell(ctx, cellID, opts)
	if err != nil {
		return nil, fmt.Errorf("list tenants of cell %s: %w", cellID, err)
	}
	return tenants, nil
}

// UpdateCellInput carries the mutable cell profile fields. Nil means leave
// unchanged.
type UpdateCellInput struct {
	CellName   *string `json:"cell_name"`
	WaveNumber *int    `json:"wave_number"`
}

// UpdateCell mutates a cell's display name and/or deployment wave. Capacity
// and lifecycle fields are owned by the provisioning flow and cannot be
// edited here.
func (uc *QueryUseCase) UpdateCell(ctx context.Context, cellID string, input UpdateCellInput) (*domain.Cell, error) {
	if input.CellName == nil && input.WaveNumber == nil {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "nothing to update")
	}
	if input.CellName != nil && strings.TrimSpace(*input.CellName) == "" {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "cell_name must not be empty")
	}
	if input.WaveNumber != nil && *input.WaveNumber < 0 {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "wave_number must not be negative")
	}

	if err := uc.cells.UpdateProfile(ctx, cellID, input.CellName, input.WaveNumber); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrCellNotFoundf(cellID)
		}
		return nil, fmt.Errorf("update cell %s: %w", cellID, err)
	}

	logger.Info("cell profile updated", zap.String("cell_id", cellID))
	return uc.DescribeCell(ctx, cellID)
}

// DeploymentWave groups the cells that roll out together.
type DeploymentWave struct {
	WaveNumber int            `json:"wave_number"`
	Cells      []*domain.Cell `json:"cells"`
}

// ListDeploymentWaves groups cells by wave number, ascending. Cells still
// creating are included so a rollout plan covers them the moment their
// infrastructure lands; failed cells take no part in rollouts.
func (uc *QueryUseCase) ListDeploymentWaves(ctx context.Context) ([]DeploymentWave, error) {
	const pageSize = 200
	byWave := make(map[int][]*domain.Cell)
	for offset := 0; ; offset += pageSize {
		page, err := uc.cells.List(ctx, repository.ListOptions{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("list cells for waves: %w", err)
		}
		for _, cell := range page {
			if cell.Status == domain.CellStatusFailed {
				continue
			}
			byWave[cell.WaveNumber] = append(byWave[cell.WaveNumber], cell)
		}
		if len(page) < pageSize {
			break
		}
	}

	waves := make([]DeploymentWave, 0, len(byWave))
	for wave, cells := range byWave {
		waves = append(waves, DeploymentWave{WaveNumber: wave, Cells: cells})
	}
	sort.Slice(waves, func(i, j int) bool { return waves[i].WaveNumber < waves[j].WaveNumber })
	return waves, nil
}
