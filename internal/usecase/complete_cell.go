package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository"
)

// CompleteCellUseCase applies the deployment pipeline's verdict on a cell
// provisioning request. Both outcomes are idempotent: the pipeline delivers
// at least once, so a replayed completion must not move a settled row.
type CompleteCellUseCase struct {
	cells repository.CellStore
}

// NewCompleteCellUseCase creates a new CompleteCellUseCase.
func NewCompleteCellUseCase(cells repository.CellStore) *CompleteCellUseCase {
	return &CompleteCellUseCase{cells: cells}
}

// Success records a successful provisioning: the cell becomes available
// with the URL and effective capacity the pipeline reports.
func (uc *CompleteCellUseCase) Success(ctx context.Context, cellID string, outputs domain.ProvisioningOutputs) error {
	if strings.TrimSpace(outputs.URL) == "" {
		return apperrors.BadRequest(apperrors.CodeValidationFailed, "url is required")
	}
	if outputs.MaxCapacity <= 0 {
		return apperrors.BadRequest(apperrors.CodeValidationFailed, "max_capacity must be positive")
	}

	applied, err := uc.cells.CompleteCreation(ctx, cellID, outputs.URL, outputs.MaxCapacity, outputs.Metadata)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrCellNotFoundf(cellID)
		}
		return fmt.Errorf("complete cell %s: %w", cellID, err)
	}
	if !applied {
		logger.Info("cell completion replayed, cell already settled",
			zap.String("cell_id", cellID))
		return nil
	}

	logger.Info("cell is available",
		zap.String("cell_id", cellID),
		zap.String("cell_url", outputs.URL),
		zap.Int("max_capacity", outputs.MaxCapacity),
	)
	return nil
}

// Failure records a failed provisioning. The cell never served tenants, so
// there is no capacity to give back.
func (uc *CompleteCellUseCase) Failure(ctx context.Context, cellID string) error {
	applied, err := uc.cells.MarkFailed(ctx, cellID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrCellNotFoundf(cellID)
		}
		return fmt.Errorf("mark cell %s failed: %w", cellID, err)
	}
	if !applied {
		logger.Info("cell failure replayed, cell already settled",
			zap.String("cell_id", cellID))
		return nil
	}

	logger.Warn("cell provisioning failed", zap.String("cell_id", cellID))
	return nil
}
