package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellmesh.io/cellmesh/internal/domain"
)

func TestLazyBusUnboundRejectsPublishes(t *testing.T) {
	bus := &LazyBus{}

	err := bus.PublishCellProvision(t.Context(), domain.CellCreatePayload{CellID: "c1"})
	require.Error(t, err)

	err = bus.PublishTenantProvision(t.Context(), domain.TenantCreatePayload{TenantID: "t1"})
	require.Error(t, err)
}

func TestLazyBusForwardsAfterBind(t *testing.T) {
	rec := &Recorder{}
	bus := &LazyBus{}
	bus.Bind(rec)

	cell := domain.CellCreatePayload{CellID: "c1", CellName: "one", CellSize: 10}
	require.NoError(t, bus.PublishCellProvision(t.Context(), cell))

	tenant := domain.TenantCreatePayload{CellID: "c1", TenantID: "t1", ListenerPriority: 10}
	require.NoError(t, bus.PublishTenantProvision(t.Context(), tenant))

	require.Len(t, rec.Cells, 1)
	assert.Equal(t, cell, rec.Cells[0])
	require.Len(t, rec.Tenants, 1)
	assert.Equal(t, tenant, rec.Tenants[0])
}
