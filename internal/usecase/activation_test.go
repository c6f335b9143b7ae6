package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/repository/memory"
)

type activationFixture struct {
	cells   *memory.CellStore
	tenants *memory.TenantStore
	routes  *memory.RouteStore

	activate   *ActivateTenantUseCase
	deactivate *DeactivateTenantUseCase
}

func newActivationFixture() *activationFixture {
	f := &activationFixture{
		cells:   memory.NewCellStore(),
		tenants: memory.NewTenantStore(),
		routes:  memory.NewRouteStore(),
	}
	f.activate = NewActivateTenantUseCase(f.cells, f.tenants, f.routes)
	f.deactivate = NewDeactivateTenantUseCase(f.tenants, f.routes)
	return f
}

func (f *activationFixture) seed(tenantStatus domain.TenantStatus) {
	f.cells.Seed(&domain.Cell{
		ID: "c1", MaxCapacity: 10, Utilization: 1,
		Status: domain.CellStatusAvailable, URL: "https://c1.cells.example.com",
	})
	f.tenants.Seed(&domain.Tenant{ID: "t1", CellID: "c1", Status: tenantStatus})
}

func TestActivatePublishesRoute(t *testing.T) {
	f := newActivationFixture()
	f.seed(domain.TenantStatusAvailable)

	require.NoError(t, f.activate.Execute(context.Background(), "t1"))

	entry, err := f.routes.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "https://c1.cells.example.com", entry.CellURL)
}

func TestActivateReactivatesInactiveTenant(t *testing.T) {
	f := newActivationFixture()
	f.seed(domain.TenantStatusInactive)

	require.NoError(t, f.activate.Execute(context.Background(), "t1"))

	tenant, err := f.tenants.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TenantStatusAvailable, tenant.Status)

	_, err = f.routes.Get(context.Background(), "t1")
	require.NoError(t, err)
}

func TestActivateIsIdempotent(t *testing.T) {
	f := newActivationFixture()
	f.seed(domain.TenantStatusAvailable)

	require.NoError(t, f.activate.Execute(context.Background(), "t1"))
	require.NoError(t, f.activate.Execute(context.Background(), "t1"))

	entry, err := f.routes.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Version, "unchanged URL must not rewrite the entry")
}

func TestActivateRejectsCreatingTenant(t *testing.T) {
	f := newActivationFixture()
	f.seed(domain.TenantStatusCreating)

	err := f.activate.Execute(context.Background(), "t1")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodePreconditionFailed, appErr.Code)
	assert.Equal(t, 400, appErr.HTTPStatus)
}

func TestActivateRejectsWhenCellNotServing(t *testing.T) {
	f := newActivationFixture()
	f.cells.Seed(&domain.Cell{ID: "c1", MaxCapacity: 10, Status: domain.CellStatusCreating})
	f.tenants.Seed(&domain.Tenant{ID: "t1", CellID: "c1", Status: domain.TenantStatusAvailable})

	err := f.activate.Execute(context.Background(), "t1")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodePreconditionFailed, appErr.Code)
	assert.Equal(t, 400, appErr.HTTPStatus)
}

func TestActivateRejectsCellWithoutURL(t *testing.T) {
	f := newActivationFixture()
	f.cells.Seed(&domain.Cell{ID: "c1", MaxCapacity: 10, Status: domain.CellStatusAvailable})
	f.tenants.Seed(&domain.Tenant{ID: "t1", CellID: "c1", Status: domain.TenantStatusAvailable})

	err := f.activate.Execute(context.Background(), "t1")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodePreconditionFailed, appErr.Code)
	assert.Equal(t, 400, appErr.HTTPStatus)
}

func TestActivateUnknownTenant(t *testing.T) {
	f := newActivationFixture()
	err := f.activate.Execute(context.Background(), "nope")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeTenantNotFound, appErr.Code)
}

func TestDeactivateWithdrawsRouteAndParksTenant(t *testing.T) {
	f := newActivationFixture()
	f.seed(domain.TenantStatusAvailable)
	require.NoError(t, f.activate.Execute(context.Background(), "t1"))

	require.NoError(t, f.deactivate.Execute(context.Background(), "t1"))

	_, err := f.routes.Get(context.Background(), "t1")
	require.Error(t, err)

	tenant, err := f.tenants.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TenantStatusInactive, tenant.Status)
}

func TestDeactivateIsIdempotent(t *testing.T) {
	f := newActivationFixture()
	f.seed(domain.TenantStatusAvailable)
	require.NoError(t, f.activate.Execute(context.Background(), "t1"))

	require.NoError(t, f.deactivate.Execute(context.Background(), "t1"))
	require.NoError(t, f.deactivate.Execute(context.Background(), "t1"))
}

func TestDeactivateWithoutRouteStillParksTenant(t *testing.T) {
	f := newActivationFixture()
	f.seed(domain.TenantStatusAvailable)

	require.NoError(t, f.deactivate.Execute(context.Background(), "t1"))

	tenant, err := f.tenants.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TenantStatusInactive, tenant.Status)
}

func TestDeactivateRejectsCreatingTenant(t *testing.T) {
	f := newActivationFixture()
	f.seed(domain.TenantStatusCreating)

	err := f.deactivate.Execute(context.Background(), "t1")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodePreconditionFailed, appErr.Code)
}

func TestActivateAfterDeactivateRestoresRoute(t *testing.T) {
	f := newActivationFixture()
	f.seed(domain.TenantStatusAvailable)

	require.NoError(t, f.activate.Execute(context.Background(), "t1"))
	require.NoError(t, f.deactivate.Execute(context.Background(), "t1"))
	require.NoError(t, f.activate.Execute(context.Background(), "t1"))

	entry, err := f.routes.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "https://c1.cells.example.com", entry.CellURL)

	tenant, err := f.tenants.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TenantStatusAvailable, tenant.Status)
}
