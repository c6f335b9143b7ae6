package usecase

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellmesh.io/cellmesh/internal/domain"
	"cellmesh.io/cellmesh/internal/events"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository/memory"
)

func TestMain(m *testing.M) {
	_ = logger.Init("error", "console")
	os.Exit(m.Run())
}

func TestCreateCellPublishesThenPersists(t *testing.T) {
	cells := memory.NewCellStore()
	bus := &events.Recorder{}
	uc := NewCreateCellUseCase(cells, bus)

	out, err := uc.Execute(context.Background(), CreateCellInput{
		CellName: "cell-alpha", CellSize: 20, WaveNumber: 1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.CellID)
	assert.Equal(t, "creating", out.Status)

	require.Len(t, bus.Cells, 1)
	assert.Equal(t, out.CellID, bus.Cells[0].CellID)
	assert.Equal(t, 20, bus.Cells[0].CellSize)

	cell, err := cells.Get(context.Background(), out.CellID)
	require.NoError(t, err)
	assert.Equal(t, domain.CellStatusCreating, cell.Status)
	assert.Equal(t, 20, cell.MaxCapacity)
	assert.Equal(t, 0, cell.Utilization)
	assert.Equal(t, 0, cell.PriorityCounter)
}

func TestCreateCellValidation(t *testing.T) {
	uc := NewCreateCellUseCase(memory.NewCellStore(), &events.Recorder{})

	cases := []struct {
		name  string
		input CreateCellInput
	}{
		{"empty name", CreateCellInput{CellName: "  ", CellSize: 10}},
		{"zero size", CreateCellInput{CellName: "a", CellSize: 0}},
		{"negative size", CreateCellInput{CellName: "a", CellSize: -5}},
		{"negative wave", CreateCellInput{CellName: "a", CellSize: 5, WaveNumber: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tc.input)
			require.Error(t, err)
			appErr, ok := apperrors.IsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
			assert.Equal(t, 400, appErr.HTTPStatus)
		})
	}
}

func TestCreateCellNoRowWhenPublishFails(t *testing.T) {
	cells := memory.NewCellStore()
	bus := &events.Recorder{Err: errors.New("queue down")}
	uc := NewCreateCellUseCase(cells, bus)

	_, err := uc.Execute(context.Background(), CreateCellInput{CellName: "a", CellSize: 5})
	require.Error(t, err)

	listed, err := cells.List(context.Background(), listAll())
	require.NoError(t, err)
	assert.Empty(t, listed, "no cell row may exist without its provisioning event")
}
