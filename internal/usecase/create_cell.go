// Package usecase provides the application use cases of the control plane.
//
// Use cases are reusable across HTTP handlers, job workers and CLI tools.
// Provisioning use cases publish their event before persisting the row: a
// row in creating state without a provisioning event in flight would be
// stuck forever, while an event without a row is handled downstream.
package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/domain"
	"cellmesh.io/cellmesh/internal/events"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository"
)

// CreateCellInput represents the input for creating a cell.
type CreateCellInput struct {
	CellName   string `json:"cell_name"`
	CellSize   int    `json:"cell_size"`
	WaveNumber int    `json:"wave_number"`
}

// CreateCellOutput represents the output of a cell creation request.
type CreateCellOutput struct {
	CellID string `json:"cell_id"`
	Status string `json:"status"`
}

// CreateCellUseCase registers a new cell and kicks off its provisioning.
type CreateCellUseCase struct {
	cells repository.CellStore
	bus   events.Bus
}

// NewCreateCellUseCase creates a new CreateCellUseCase.
func NewCreateCellUseCase(cells repository.CellStore, bus events.Bus) *CreateCellUseCase {
	return &CreateCellUseCase{cells: cells, bus: bus}
}

// Execute validates the request, publishes the provisioning event and
// persists the cell row in creating state. The cell serves no tenants
// until the deployment pipeline reports completion.
func (uc *CreateCellUseCase) Execute(ctx context.Context, input CreateCellInput) (*CreateCellOutput, error) {
	name := strings.TrimSpace(input.CellName)
	if name == "" {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "cell_name is required")
	}
	if input.CellSize <= 0 {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "cell_size must be positive")
	}
	if input.WaveNumber < 0 {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "wave_number must not be negative")
	}

	cellID := domain.NewCellID()
	payload := domain.CellCreatePayload{
		CellID:     cellID,
		CellName:   name,
		CellSize:   input.CellSize,
		WaveNumber: input.WaveNumber,
	}

	if err := uc.bus.PublishCellProvision(ctx, payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStoreAccess,
			"failed to publish cell provisioning event", 500)
	}

	cell := &domain.Cell{
		ID:          cellID,
		Name:        name,
		MaxCapacity: input.CellSize,
		WaveNumber:  input.WaveNumber,
		Status:      domain.CellStatusCreating,
	}
	if err := uc.cells.Insert(ctx, cell); err != nil {
		// The event is already durable; the dispatch worker proceeds and the
		// completion callback will surface the missing row.
		return nil, fmt.Errorf("persist cell %s: %w", cellID, err)
	}

	logger.Info("cell creation requested",
		zap.String("cell_id", cellID),
		zap.String("cell_name", name),
		zap.Int("cell_size", input.CellSize),
		zap.Int("wave_number", input.WaveNumber),
	)

	return &CreateCellOutput{CellID: cellID, Status: string(domain.CellStatusCreating)}, nil
}
