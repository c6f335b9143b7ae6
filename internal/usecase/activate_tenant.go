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

// ActivateTenantUseCase publishes a tenant's routing entry so the edge
// router starts resolving its requests to the owning cell. Activating an
// inactive tenant reactivates it; activating an already-routed tenant
// refreshes the entry to the cell's current URL.
type ActivateTenantUseCase struct {
	cells   repository.CellStore
	tenants repository.TenantStore
	routes  repository.RouteStore
}

// NewActivateTenantUseCase creates a new ActivateTenantUseCase.
func NewActivateTenantUseCase(
	cells repository.CellStore,
	tenants repository.TenantStore,
	routes repository.RouteStore,
) *ActivateTenantUseCase {
	return &ActivateTenantUseCase{cells: cells, tenants: tenants, routes: routes}
}

// Execute activates the tenant.
func (uc *ActivateTenantUseCase) Execute(ctx context.Context, tenantID string) error {
	tenant, err := uc.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrTenantNotFoundf(tenantID)
		}
		return fmt.Errorf("load tenant %s: %w", tenantID, err)
	}
	if tenant.Status != domain.TenantStatusAvailable && tenant.Status != domain.TenantStatusInactive {
		return apperrors.BadRequest(apperrors.CodePreconditionFailed,
			"tenant cannot be activated in its current status").
			WithParams(map[string]interface{}{"tenant_id": tenantID, "status": string(tenant.Status)})
	}

	cell, err := uc.cells.Get(ctx, tenant.CellID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrCellNotFoundf(tenant.CellID)
		}
		return fmt.Errorf("load cell %s: %w", tenant.CellID, err)
	}
	if cell.Status != domain.CellStatusAvailable || cell.URL == "" {
		return apperrors.BadRequest(apperrors.CodePreconditionFailed,
			"owning cell is not serving yet").
			WithParams(map[string]interface{}{"cell_id": cell.ID, "status": string(cell.Status)})
	}

	if err := uc.putRoute(ctx, tenantID, cell.URL); err != nil {
		return err
	}

	if tenant.Status == domain.TenantStatusInactive {
		applied, err := uc.tenants.SetStatus(ctx, tenantID, domain.TenantStatusInactive, domain.TenantStatusAvailable)
		if err != nil {
			return fmt.Errorf("reactivate tenant %s: %w", tenantID, err)
		}
		if !applied {
			// Lost a race with a concurrent transition; the routing entry is
			// in place either way.
			logger.Warn("tenant status changed during activation",
				zap.String("tenant_id", tenantID))
		}
	}

	logger.Info("tenant activated",
		zap.String("tenant_id", tenantID),
		zap.String("cell_id", cell.ID),
		zap.String("cell_url", cell.URL),
	)
	return nil
}

// putRoute writes the routing entry with the version token read just
// before, surfacing concurrent writers as a conflict instead of silently
// overwriting them.
func (uc *ActivateTenantUseCase) putRoute(ctx context.Context, tenantID, cellURL string) error {
	var version int64
	existing, err := uc.routes.Get(ctx, tenantID)
	switch {
	case err == nil:
		if existing.CellURL == cellURL {
			return nil
		}
		version = existing.Version
	case errors.Is(err, apperrors.ErrNotFound):
		version = 0
	default:
		return fmt.Errorf("read routing entry %s: %w", tenantID, err)
	}

	if err := uc.routes.Put(ctx, tenantID, cellURL, version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.Conflict(apperrors.CodeRoutingEntryConflict,
				"routing entry was modified concurrently").
				WithParams(map[string]interface{}{"tenant_id": tenantID})
		}
		return fmt.Errorf("write routing entry %s: %w", tenantID, err)
	}
	return nil
}
