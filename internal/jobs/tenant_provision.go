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
	"cellmesh.io/cellmesh/internal/service"
)

// TenantProvisionArgs carries the full tenant provisioning payload,
// including the listener priority reserved at assignment time.
type TenantProvisionArgs struct {
	Payload domain.TenantCreatePayload `json:"payload"`
}

// Kind returns the job kind identifier for tenant provisioning dispatch.
func (TenantProvisionArgs) Kind() string { return "tenant_provision" }

// InsertOpts deduplicates dispatches for the same tenant.
func (TenantProvisionArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueProvisioning,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByQueue: true,
		},
	}
}

// TenantProvisionWorker hands tenant provisioning requests to the
// deployment pipeline. A permanently undeliverable request drives the
// creating -> failed transition and releases the capacity slot that
// assignment reserved. The release is gated on MarkFailed applying, so a
// duplicate delivery failure cannot decrement utilization twice.
type TenantProvisionWorker struct {
	river.WorkerDefaults[TenantProvisionArgs]
	pipeline PipelineClient
	tenants  repository.TenantStore
	ledger   *service.CapacityLedger
}

// NewTenantProvisionWorker creates a dispatch worker.
func NewTenantProvisionWorker(pipeline PipelineClient, tenants repository.TenantStore, ledger *service.CapacityLedger) *TenantProvisionWorker {
	return &TenantProvisionWorker{pipeline: pipeline, tenants: tenants, ledger: ledger}
}

// Work delivers one tenant provisioning request.
func (w *TenantProvisionWorker) Work(ctx context.Context, job *river.Job[TenantProvisionArgs]) error {
	payload := job.Args.Payload
	logger.Info("dispatching tenant provisioning request",
		zap.String("tenant_id", payload.TenantID),
		zap.String("cell_id", payload.CellID),
		zap.Int("attempt", job.Attempt),
	)

	err := w.pipeline.RequestTenantProvision(ctx, payload)
	if err == nil {
		logger.Info("tenant provisioning request delivered",
			zap.String("tenant_id", payload.TenantID))
		return nil
	}

	if errors.Is(err, provisioner.ErrPermanent) {
		w.failTenant(ctx, payload.CellID, payload.TenantID)
		return river.JobCancel(fmt.Errorf("dispatch tenant %s: %w", payload.TenantID, err))
	}
	if job.Attempt >= job.MaxAttempts {
		w.failTenant(ctx, payload.CellID, payload.TenantID)
	}
	return fmt.Errorf("dispatch tenant %s: %w", payload.TenantID, err)
}

func (w *TenantProvisionWorker) failTenant(ctx context.Context, cellID, tenantID string) {
	applied, err := w.tenants.MarkFailed(ctx, cellID, tenantID)
	if err != nil {
		logger.Error("failed to persist tenant failed status",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return
	}
	if !applied {
		return
	}
	logger.Warn("tenant provisioning marked failed, releasing capacity slot",
		zap.String("tenant_id", tenantID),
		zap.String("cell_id", cellID),
	)
	if err := w.ledger.ReleaseSlot(ctx, cellID); err != nil {
		logger.Error("compensating slot release failed",
			zap.String("cell_id", cellID),
			zap.Error(err),
		)
	}
}
