package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/domain"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/pkg/worker"
	"cellmesh.io/cellmesh/internal/repository"
)

// CapacityObserverArgs is the periodic capacity telemetry scan.
type CapacityObserverArgs struct{}

// Kind returns the job kind identifier for the capacity scan.
func (CapacityObserverArgs) Kind() string { return "capacity_observer" }

// InsertOpts keeps at most one scan enqueued per period.
func (CapacityObserverArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Minute,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// CapacityObserverWorker walks every available cell and emits utilization
// telemetry. Cells at full capacity are logged at warn level so operators
// can provision ahead of assignment failures.
type CapacityObserverWorker struct {
	river.WorkerDefaults[CapacityObserverArgs]
	cells repository.CellStore
	pool  *worker.Pool
}

// NewCapacityObserverWorker creates the observer. pool may be nil, in which
// case cells are observed inline.
func NewCapacityObserverWorker(cells repository.CellStore, pool *worker.Pool) *CapacityObserverWorker {
	return &CapacityObserverWorker{cells: cells, pool: pool}
}

// Work scans all cells page by page.
func (w *CapacityObserverWorker) Work(ctx context.Context, _ *river.Job[CapacityObserverArgs]) error {
	const pageSize = 100
	var observed, available int
	for offset := 0; ; offset += pageSize {
		page, err := w.cells.List(ctx, repository.ListOptions{Limit: pageSize, Offset: offset})
		if err != nil {
			return fmt.Errorf("scan cells at offset %d: %w", offset, err)
		}
		for _, cell := range page {
			observed++
			if cell.Status != domain.CellStatusAvailable {
				continue
			}
			available++
			w.observe(ctx, cell)
		}
		if len(page) < pageSize {
			break
		}
	}

	logger.Info("capacity scan completed",
		zap.Int("cells_observed", observed),
		zap.Int("cells_available", available),
	)
	return nil
}

func (w *CapacityObserverWorker) observe(ctx context.Context, cell *domain.Cell) {
	report := func(context.Context) { reportCellCapacity(cell) }
	if w.pool == nil {
		report(ctx)
		return
	}
	if err := w.pool.Submit(ctx, report); err != nil {
		logger.Warn("observer pool rejected task, reporting inline",
			zap.String("cell_id", cell.ID),
			zap.Error(err),
		)
		report(ctx)
	}
}

func reportCellCapacity(cell *domain.Cell) {
	fields := []zap.Field{
		zap.String("cell_id", cell.ID),
		zap.String("cell_name", cell.Name),
		zap.Int("utilization", cell.Utilization),
		zap.Int("max_capacity", cell.MaxCapacity),
		zap.Int("spare_capacity", cell.SpareCapacity()),
		zap.Int("wave_number", cell.WaveNumber),
	}
	if cell.SpareCapacity() == 0 {
		logger.Warn("cell at full capacity", fields...)
		return
	}
	logger.Info("cell capacity", fields...)
}
