package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository/memory"
)

func TestMain(m *testing.M) {
	_ = logger.Init("error", "console")
	os.Exit(m.Run())
}

func availableCell(id string, capacity, used int) *domain.Cell {
	return &domain.Cell{
		ID:          id,
		Name:        "cell " + id,
		MaxCapacity: capacity,
		Utilization: used,
		Status:      domain.CellStatusAvailable,
	}
}

func TestReserveSlotAllocatesSteppedPriorities(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(availableCell("c1", 3, 0))
	ledger := NewCapacityLedger(cells)

	for i, want := range []int{10, 20, 30} {
		res, err := ledger.ReserveSlot(context.Background(), "c1")
		require.NoError(t, err, "reservation %d", i)
		assert.Equal(t, want, res.ListenerPriority)
	}

	cell, err := cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, cell.Utilization)
	assert.Equal(t, 0, cell.SpareCapacity())
}

func TestConcurrentReservationsNeverOversubscribe(t *testing.T) {
	const capacity = 8
	cells := memory.NewCellStore()
	cells.Seed(availableCell("c1", capacity, 0))
	ledger := NewCapacityLedger(cells)

	var wg sync.WaitGroup
	results := make(chan *Reservation, 3*capacity)
	for i := 0; i < 3*capacity; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.ReserveSlot(context.Background(), "c1")
			if err != nil {
				appErr, ok := apperrors.IsAppError(err)
				if assert.True(t, ok) {
					assert.Equal(t, apperrors.CodeCellFull, appErr.Code)
				}
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	priorities := make(map[int]bool)
	for res := range results {
		assert.False(t, priorities[res.ListenerPriority], "priority %d issued twice", res.ListenerPriority)
		priorities[res.ListenerPriority] = true
	}
	assert.Len(t, priorities, capacity, "exactly one reservation per slot")

	cell, err := cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, capacity, cell.Utilization)
	assert.Equal(t, 0, cell.SpareCapacity())
}

func TestReserveSlotCellFull(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(availableCell("c1", 1, 1))
	ledger := NewCapacityLedger(cells)

	_, err := ledger.ReserveSlot(context.Background(), "c1")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeCellFull, appErr.Code)
	assert.Equal(t, 503, appErr.HTTPStatus)
}

func TestReserveSlotCellNotAvailable(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(&domain.Cell{ID: "c1", MaxCapacity: 5, Status: domain.CellStatusCreating})
	ledger := NewCapacityLedger(cells)

	_, err := ledger.ReserveSlot(context.Background(), "c1")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeCellUnavailable, appErr.Code)
}

func TestReserveSlotCellMissing(t *testing.T) {
	ledger := NewCapacityLedger(memory.NewCellStore())

	_, err := ledger.ReserveSlot(context.Background(), "nope")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeCellNotFound, appErr.Code)
}

func TestReleaseSlotFloorsAtZero(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(availableCell("c1", 5, 1))
	ledger := NewCapacityLedger(cells)

	require.NoError(t, ledger.ReleaseSlot(context.Background(), "c1"))
	require.NoError(t, ledger.ReleaseSlot(context.Background(), "c1"))

	cell, err := cells.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, cell.Utilization)
}

func TestReleaseDoesNotRewindPriorityCounter(t *testing.T) {
	cells := memory.NewCellStore()
	cells.Seed(availableCell("c1", 2, 0))
	ledger := NewCapacityLedger(cells)
	ctx := context.Background()

	res, err := ledger.ReserveSlot(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 10, res.ListenerPriority)

	require.NoError(t, ledger.ReleaseSlot(ctx, "c1"))

	res, err = ledger.ReserveSlot(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 20, res.ListenerPriority, "released priority must not be reissued")
}

func TestReleaseSlotMissingCell(t *testing.T) {
	ledger := NewCapacityLedger(memory.NewCellStore())
	err := ledger.ReleaseSlot(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
