package usecase

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

// DeactivateTenantUseCase withdraws a tenant's routing entry and parks the
// tenant in inactive state. The tenant's cell assignment and capacity slot
// are untouched: deactivation is reversible and the workload stays
// provisioned.
type DeactivateTenantUseCase struct {
	tenants repository.TenantStore
	routes  repository.RouteStore
}

// NewDeactivateTenantUseCase creates a new DeactivateTenantUseCase.
func NewDeactivateTenantUseCase(tenants repository.TenantStore, routes repository.RouteStore) *DeactivateTenantUseCase {
	return &DeactivateTenantUseCase{tenants: tenants, routes: routes}
}

// Execute deactivates the tenant. Deactivating an already-inactive tenant
// is an idempotent success.
func (uc *DeactivateTenantUseCase) Execute(ctx context.Context, tenantID string) error {
	tenant, err := uc.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrTenantNotFoundf(tenantID)
		}
		return fmt.Errorf("load tenant %s: %w", tenantID, err)
	}
	switch tenant.Status {
	case domain.TenantStatusInactive:
		logger.Info("tenant already inactive", zap.String("tenant_id", tenantID))
		return nil
	case domain.TenantStatusAvailable:
	default:
		return apperrors.BadRequest(apperrors.CodePreconditionFailed,
			"tenant cannot be deactivated in its current status").
			WithParams(map[string]interface{}{"tenant_id": tenantID, "status": string(tenant.Status)})
	}

	if err := uc.deleteRoute(ctx, tenantID); err != nil {
		return err
	}

	applied, err := uc.tenants.SetStatus(ctx, tenantID, domain.TenantStatusAvailable, domain.TenantStatusInactive)
	if err != nil {
		return fmt.Errorf("deactivate tenant %s: %w", tenantID, err)
	}
	if !applied {
		logger.Warn("tenant status changed during deactivation",
			zap.String("tenant_id", tenantID))
	}

	logger.Info("tenant deactivated", zap.String("tenant_id", tenantID))
	return nil
}

// deleteRoute removes the routing entry at the version read just before.
// A missing entry is fine: the goal state is "no route".
func (uc *DeactivateTenantUseCase) deleteRoute(ctx context.Context, tenantID string) error {
	existing, err := uc.routes.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("read routing entry %s: %w", tenantID, err)
	}

	if err := uc.routes.Delete(ctx, tenantID, existing.Version); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.Conflict(apperrors.CodeRoutingEntryConflict,
				"routing entry was modified concurrently").
				WithParams(map[string]interface{}{"tenant_id": tenantID})
		}
		return fmt.Errorf("delete routing entry %s: %w", tenantID, err)
	}
	return nil
}
