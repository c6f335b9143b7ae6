package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellmesh.io/cellmesh/internal/domain"
	"cellmesh.io/cellmesh/internal/events"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/repository"
	"cellmesh.io/cellmesh/internal/repository/memory"
	"cellmesh.io/cellmesh/internal/service"
)

const imageParam = "product_image_version"

func listAll() repository.ListOptions {
	return repository.ListOptions{Limit: 1000}
}

type assignFixture struct {
	cells   *memory.CellStore
	tenants *memory.TenantStore
	params  *memory.ParamStore
	bus     *events.Recorder
	uc      *AssignTenantUseCase
}

func newAssignFixture(t *testing.T) *assignFixture {
	t.Helper()
	f := &assignFixture{
		cells:   memory.NewCellStore(),
		tenants: memory.NewTenantStore(),
		params:  memory.NewParamStore(),
		bus:     &events.Recorder{},
	}
	require.NoError(t, f.params.Set(context.Background(), imageParam, "v2.4.1"))
	ledger := service.NewCapacityLedger(f.cells)
	f.uc = NewAssignTenantUseCase(f.tenants, f.params, ledger, f.bus, imageParam)
	return f
}

func (f *assignFixture) seedCell(id string, capacity, used int) {
	f.cells.Seed(&domain.Cell{
		ID: id, Name: "cell " + id, MaxCapacity: capacity, Utilization: used,
		Status: domain.CellStatusAvailable, URL: "https://" + id + ".cells.example.com",
	})
}

func validInput(cellID string) AssignTenantInput {
	return AssignTenantInput{
		CellID:      cellID,
		TenantName:  "acme",
		TenantTier:  "premium",
		TenantEmail: "ops@acme.example.com",
	}
}

func TestAssignTenantReservesSlotAndPublishes(t *testing.T) {
	f := newAssignFixture(t)
	f.seedCell("c1", 2, 0)

	out, err := f.uc.Execute(context.Background(), validInput("c1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", out.CellID)
	assert.Equal(t, 10, out.ListenerPriority)
	assert.Equal(t, "creating", out.Status)

	require.Len(t, f.bus.Tenants, 1)
	payload := f.bus.Tenants[0]
	assert.Equal(t, out.TenantID, payload.TenantID)
	assert.Equal(t, 10, payload.ListenerPriority)
	assert.Equal(t, "v2.4.1", payload.ImageVersion)

	tenant, err := f.tenants.Get(context.Background(), "c1", out.TenantID)
	require.NoError(t, err)
	assert.Equal(t, domain.TenantStatusCreating, tenant.Status)
	assert.Equal(t, "v2.4.1", tenant.ImageVersion)

	cell, err := f.cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, cell.Utilization)
}

func TestAssignTenantPrioritiesIncreaseAcrossAssignments(t *testing.T) {
	f := newAssignFixture(t)
	f.seedCell("c1", 3, 0)

	for i, want := range []int{10, 20, 30} {
		out, err := f.uc.Execute(context.Background(), validInput("c1"))
		require.NoError(t, err, "assignment %d", i)
		assert.Equal(t, want, out.ListenerPriority)
	}
}

func TestAssignTenantInvalidEmail(t *testing.T) {
	f := newAssignFixture(t)
	f.seedCell("c1", 2, 0)

	in := validInput("c1")
	in.TenantEmail = "not-an-email"
	_, err := f.uc.Execute(context.Background(), in)
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	// Validation happens before the reservation.
	cell, err := f.cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, cell.Utilization)
}

func TestAssignTenantFullCell(t *testing.T) {
	f := newAssignFixture(t)
	f.seedCell("c1", 1, 1)

	_, err := f.uc.Execute(context.Background(), validInput("c1"))
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeCellFull, appErr.Code)
	assert.Equal(t, 503, appErr.HTTPStatus)
}

func TestAssignTenantCellNotAvailable(t *testing.T) {
	f := newAssignFixture(t)
	f.cells.Seed(&domain.Cell{ID: "c1", MaxCapacity: 5, Status: domain.CellStatusCreating})

	_, err := f.uc.Execute(context.Background(), validInput("c1"))
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeCellUnavailable, appErr.Code)
}

func TestAssignTenantReleasesSlotWhenPublishFails(t *testing.T) {
	f := newAssignFixture(t)
	f.seedCell("c1", 2, 0)
	f.bus.Err = errors.New("queue down")

	_, err := f.uc.Execute(context.Background(), validInput("c1"))
	require.Error(t, err)

	cell, err := f.cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, cell.Utilization, "reservation must be compensated")

	// The priority counter stays advanced: priorities are never reused.
	f.bus.Err = nil
	out, err := f.uc.Execute(context.Background(), validInput("c1"))
	require.NoError(t, err)
	assert.Equal(t, 20, out.ListenerPriority)
}

func TestAssignTenantReleasesSlotWhenImageParamMissing(t *testing.T) {
	f := newAssignFixture(t)
	f.seedCell("c1", 2, 0)
	uc := NewAssignTenantUseCase(f.tenants, memory.NewParamStore(),
		service.NewCapacityLedger(f.cells), f.bus, imageParam)

	_, err := uc.Execute(context.Background(), validInput("c1"))
	require.Error(t, err)

	cell, err := f.cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, cell.Utilization)
	assert.Empty(t, f.bus.Tenants)
}
