package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository"
	"cellmesh.io/cellmesh/internal/service"
)

// CompleteTenantUseCase applies the deployment pipeline's verdict on a
// tenant provisioning request. Completions are delivered at least once;
// the conditional status transition makes replays no-ops, and the
// compensating slot release fires only when the failed transition actually
// applied, so a duplicated failure cannot double-release.
type CompleteTenantUseCase struct {
	tenants repository.TenantStore
	ledger  *service.CapacityLedger
}

// NewCompleteTenantUseCase creates a new CompleteTenantUseCase.
func NewCompleteTenantUseCase(tenants repository.TenantStore, ledger *service.CapacityLedger) *CompleteTenantUseCase {
	return &CompleteTenantUseCase{tenants: tenants, ledger: ledger}
}

// Success records a successful tenant provisioning.
func (uc *CompleteTenantUseCase) Success(ctx context.Context, cellID, tenantID string, meta []byte) error {
	applied, err := uc.tenants.CompleteCreation(ctx, cellID, tenantID, meta)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrTenantNotFoundf(tenantID)
		}
		return fmt.Errorf("complete tenant %s: %w", tenantID, err)
	}
	if !applied {
		logger.Info("tenant completion replayed, tenant already settled",
			zap.String("tenant_id", tenantID))
		return nil
	}

	logger.Info("tenant is available",
		zap.String("tenant_id", tenantID),
		zap.String("cell_id", cellID),
	)
	return nil
}

// Failure records a failed tenant provisioning and hands the reserved
// capacity slot back to the cell.
func (uc *CompleteTenantUseCase) Failure(ctx context.Context, cellID, tenantID string) error {
	applied, err := uc.tenants.MarkFailed(ctx, cellID, tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrTenantNotFoundf(tenantID)
		}
		return fmt.Errorf("mark tenant %s failed: %w", tenantID, err)
	}
	if !applied {
		logger.Info("tenant failure replayed, tenant already settled",
			zap.String("tenant_id", tenantID))
		return nil
	}

	logger.Warn("tenant provisioning failed, releasing capacity slot",
		zap.String("tenant_id", tenantID),
		zap.String("cell_id", cellID),
	)
	if err := uc.ledger.ReleaseSlot(ctx, cellID); err != nil {
		return fmt.Errorf("release slot after tenant %s failure: %w", tenantID, err)
	}
	return nil
}
