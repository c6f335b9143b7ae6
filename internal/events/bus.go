// Package events publishes provisioning events to the dispatch queue.
//
// Publication happens before the corresponding row is persisted: a cell or
// tenant row must never exist without its provisioning event, because a row
// stuck in creating with no event would never be completed. The inverse
// (event without row) is tolerated and handled by the dispatch workers.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/domain"
	"cellmesh.io/cellmesh/internal/jobs"
	"cellmesh.io/cellmesh/internal/pkg/logger"
)

// Bus publishes provisioning events.
type Bus interface {
	PublishCellProvision(ctx context.Context, payload domain.CellCreatePayload) error
	PublishTenantProvision(ctx context.Context, payload domain.TenantCreatePayload) error
}

// RiverBus publishes events as River jobs on the shared database pool. An
// insert is acknowledged in full or not at all, so a use case that sees a
// nil error knows the event is durable.
type RiverBus struct {
	client *river.Client[pgx.Tx]
}

// NewRiverBus creates a bus over the given River client.
func NewRiverBus(client *river.Client[pgx.Tx]) *RiverBus {
	return &RiverBus{client: client}
}

var _ Bus = (*RiverBus)(nil)

// PublishCellProvision enqueues a cell provisioning dispatch.
func (b *RiverBus) PublishCellProvision(ctx context.Context, payload domain.CellCreatePayload) error {
	res, err := b.client.Insert(ctx, jobs.CellProvisionArgs{Payload: payload}, nil)
	if err != nil {
		return fmt.Errorf("publish cell provision event: %w", err)
	}
	logger.Debug("cell provision event published",
		zap.String("cell_id", payload.CellID),
		zap.Int64("job_id", res.Job.ID),
	)
	return nil
}

// PublishTenantProvision enqueues a tenant provisioning dispatch.
func (b *RiverBus) PublishTenantProvision(ctx context.Context, payload domain.TenantCreatePayload) error {
	res, err := b.client.Insert(ctx, jobs.TenantProvisionArgs{Payload: payload}, nil)
	if err != nil {
		return fmt.Errorf("publish tenant provision event: %w", err)
	}
	logger.Debug("tenant provision event published",
		zap.String("tenant_id", payload.TenantID),
		zap.Int64("job_id", res.Job.ID),
	)
	return nil
}

// LazyBus defers to a Bus bound later. The job client only exists once all
// workers are registered, which is after the use cases are constructed, so
// the composition root hands out a LazyBus and binds the real one at the
// end of bootstrap.
type LazyBus struct {
	mu    sync.RWMutex
	inner Bus
}

var _ Bus = (*LazyBus)(nil)

// Bind sets the backing bus.
func (b *LazyBus) Bind(inner Bus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inner = inner
}

func (b *LazyBus) get() (Bus, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.inner == nil {
		return nil, errors.New("event bus is not bound yet")
	}
	return b.inner, nil
}

// PublishCellProvision forwards to the bound bus.
func (b *LazyBus) PublishCellProvision(ctx context.Context, payload domain.CellCreatePayload) error {
	inner, err := b.get()
	if err != nil {
		return err
	}
	return inner.PublishCellProvision(ctx, payload)
}

// PublishTenantProvision forwards to the bound bus.
func (b *LazyBus) PublishTenantProvision(ctx context.Context, payload domain.TenantCreatePayload) error {
	inner, err := b.get()
	if err != nil {
		return err
	}
	return inner.PublishTenantProvision(ctx, payload)
}

// Recorder is an in-memory Bus for tests. Err, when set, is returned from
// every publish to simulate an unreachable queue.
type Recorder struct {
	mu      sync.Mutex
	Err     error
	Cells   []domain.CellCreatePayload
	Tenants []domain.TenantCreatePayload
}

var _ Bus = (*Recorder)(nil)

// PublishCellProvision records the payload.
func (r *Recorder) PublishCellProvision(_ context.Context, payload domain.CellCreatePayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Cells = append(r.Cells, payload)
	return nil
}

// PublishTenantProvision records the payload.
func (r *Recorder) PublishTenantProvision(_ context.Context, payload domain.TenantCreatePayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Tenants = append(r.Tenants, payload)
	return nil
}
