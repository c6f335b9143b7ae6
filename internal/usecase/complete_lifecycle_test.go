package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/repository/memory"
	"cellmesh.io/cellmesh/internal/service"
)

func TestCompleteCellSuccess(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(&domain.Cell{ID: "c1", MaxCapacity: 10, Status: domain.CellStatusCreating})
	uc := NewCompleteCellUseCase(cells)

	outputs := domain.ProvisioningOutputs{URL: "https://c1.cells.example.com", MaxCapacity: 25}
	require.NoError(t, uc.Success(context.Background(), "c1", outputs))

	cell, err := cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CellStatusAvailable, cell.Status)
	assert.Equal(t, "https://c1.cells.example.com", cell.URL)
	assert.Equal(t, 25, cell.MaxCapacity, "pipeline-reported capacity wins")
}

func TestCompleteCellSuccessIsIdempotent(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(&domain.Cell{ID: "c1", MaxCapacity: 10, Status: domain.CellStatusCreating})
	uc := NewCompleteCellUseCase(cells)

	outputs := domain.ProvisioningOutputs{URL: "https://c1.cells.example.com", MaxCapacity: 25}
	require.NoError(t, uc.Success(context.Background(), "c1", outputs))

	// Replay with different outputs must not move the settled row.
	replay := domain.ProvisioningOutputs{URL: "https://other.example.com", MaxCapacity: 99}
	require.NoError(t, uc.Success(context.Background(), "c1", replay))

	cell, err := cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "https://c1.cells.example.com", cell.URL)
	assert.Equal(t, 25, cell.MaxCapacity)
}

func TestCompleteCellFailureAfterSuccessIsNoOp(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(&domain.Cell{ID: "c1", MaxCapacity: 10, Status: domain.CellStatusCreating})
	uc := NewCompleteCellUseCase(cells)

	outputs := domain.ProvisioningOutputs{URL: "https://c1.cells.example.com", MaxCapacity: 10}
	require.NoError(t, uc.Success(context.Background(), "c1", outputs))
	require.NoError(t, uc.Failure(context.Background(), "c1"))

	cell, err := cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CellStatusAvailable, cell.Status)
}

func TestCompleteCellValidatesOutputs(t *testing.T) {
	uc := NewCompleteCellUseCase(memory.NewCellStore())

	err := uc.Success(context.Background(), "c1", domain.ProvisioningOutputs{MaxCapacity: 10})
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	err = uc.Success(context.Background(), "c1", domain.ProvisioningOutputs{URL: "https://x"})
	require.Error(t, err)
}

func TestCompleteCellUnknownCell(t *testing.T) {
	uc := NewCompleteCellUseCase(memory.NewCellStore())
	err := uc.Failure(context.Background(), "nope")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeCellNotFound, appErr.Code)
}

func TestCompleteTenantUnknownTenant(t *testing.T) {
	cells := memory.NewCellStore()
	uc := NewCompleteTenantUseCase(memory.NewTenantStore(), service.NewCapacityLedger(cells))

	err := uc.Success(context.Background(), "c1", "nope", nil)
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeTenantNotFound, appErr.Code)
	assert.Equal(t, 404, appErr.HTTPStatus)

	err = uc.Failure(context.Background(), "c1", "nope")
	require.Error(t, err)
}

func TestCompleteTenantSuccess(t *testing.T) {
	cells := memory.NewCellStore()
	tenants := memory.NewTenantStore()
	tenants.Seed(&domain.Tenant{ID: "t1", CellID: "c1", Status: domain.TenantStatusCreating})
	uc := NewCompleteTenantUseCase(tenants, service.NewCapacityLedger(cells))

	require.NoError(t, uc.Success(context.Background(), "c1", "t1", []byte(`{"stack":"s1"}`)))

	tenant, err := tenants.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TenantStatusAvailable, tenant.Status)
	assert.JSONEq(t, `{"stack":"s1"}`, string(tenant.ProvisioningMeta))
}

func TestCompleteTenantFailureReleasesSlotExactlyOnce(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(&domain.Cell{
		ID: "c1", MaxCapacity: 5, Utilization: 1,
		Status: domain.CellStatusAvailable,
	})
	tenants := memory.NewTenantStore()
	tenants.Seed(&domain.Tenant{ID: "t1", CellID: "c1", Status: domain.TenantStatusCreating})
	uc := NewCompleteTenantUseCase(tenants, service.NewCapacityLedger(cells))

	require.NoError(t, uc.Failure(context.Background(), "c1", "t1"))
	// Duplicate delivery of the same failure.
	require.NoError(t, uc.Failure(context.Background(), "c1", "t1"))

	tenant, err := tenants.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TenantStatusFailed, tenant.Status)

	cell, err := cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, cell.Utilization, "slot released exactly once")
}

func TestCompleteTenantSuccessThenFailureIsNoOp(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(&domain.Cell{
		ID: "c1", MaxCapacity: 5, Utilization: 1,
		Status: domain.CellStatusAvailable,
	})
	tenants := memory.NewTenantStore()
	tenants.Seed(&domain.Tenant{ID: "t1", CellID: "c1", Status: domain.TenantStatusCreating})
	uc := NewCompleteTenantUseCase(tenants, service.NewCapacityLedger(cells))

	require.NoError(t, uc.Success(context.Background(), "c1", "t1", nil))
	require.NoError(t, uc.Failure(context.Background(), "c1", "t1"))

	tenant, err := tenants.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TenantStatusAvailable, tenant.Status)

	cell, err := cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, cell.Utilization, "settled tenant keeps its slot")
}
