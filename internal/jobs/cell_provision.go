// Package jobs contains the River job definitions of the control plane:
// provisioning dispatch to the deployment pipeline and the periodic
// capacity observer scan.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/domain"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/provisioner"
	"cellmesh.io/cellmesh/internal/repository"
)

// PipelineClient delivers provisioning requests to the deployment pipeline.
// Satisfied by provisioner.Client.
type PipelineClient interface {
	RequestCellProvision(ctx context.Context, payload domain.CellCreatePayload) error
	RequestTenantProvision(ctx context.Context, payload domain.TenantCreatePayload) error
}

// CellProvisionArgs carries the full provisioning payload. The payload is
// self-contained so delivery does not depend on reading the cell row back.
type CellProvisionArgs struct {
	Payload domain.CellCreatePayload `json:"payload"`
}

// Kind returns the job kind identifier for cell provisioning dispatch.
func (CellProvisionArgs) Kind() string { return "cell_provision" }

// InsertOpts deduplicates dispatches for the same cell.
func (CellProvisionArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueProvisioning,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByQueue: true,
		},
	}
}

// QueueProvisioning is the queue for pipeline dispatch jobs.
const QueueProvisioning = "provisioning"

// CellProvisionWorker hands cell provisioning requests to the deployment
// pipeline. The pipeline reports the outcome asynchronously through the
// completion callbacks; this worker only guarantees the request arrives, and
// drives the creating -> failed transition when it permanently cannot.
type CellProvisionWorker struct {
	river.WorkerDefaults[CellProvisionArgs]
	pipeline PipelineClient
	cells    repository.CellStore
}

// NewCellProvisionWorker creates a dispatch worker.
func NewCellProvisionWorker(pipeline PipelineClient, cells repository.CellStore) *CellProvisionWorker {
	return &CellProvisionWorker{pipeline: pipeline, cells: cells}
}

// Work delivers one cell provisioning request.
func (w *CellProvisionWorker) Work(ctx context.Context, job *river.Job[CellProvisionArgs]) error {
	cellID := job.Args.Payload.CellID
	logger.Info("dispatching cell provisioning request",
		zap.String("cell_id", cellID),
		zap.Int("attempt", job.Attempt),
	)

	err := w.pipeline.RequestCellProvision(ctx, job.Args.Payload)
	if err == nil {
		logger.Info("cell provisioning request delivered", zap.String("cell_id", cellID))
		return nil
	}

	if errors.Is(err, provisioner.ErrPermanent) {
		w.failCell(ctx, cellID)
		return river.JobCancel(fmt.Errorf("dispatch cell %s: %w", cellID, err))
	}
	if job.Attempt >= job.MaxAttempts {
		w.failCell(ctx, cellID)
	}
	return fmt.Errorf("dispatch cell %s: %w", cellID, err)
}

func (w *CellProvisionWorker) failCell(ctx context.Context, cellID string) {
	applied, err := w.cells.MarkFailed(ctx, cellID)
	if err != nil {
		logger.Error("failed to persist cell failed status",
			zap.String("cell_id", cellID),
			zap.Error(err),
		)
		return
	}
	if applied {
		logger.Warn("cell provisioning marked failed", zap.String("cell_id", cellID))
	}
}
