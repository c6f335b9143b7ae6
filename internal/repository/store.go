// Package repository defines the storage contracts of the control plane.
//
// The metadata store (cells, tenants), the routing backing store and the
// configuration parameter store are abstract row/key-value contracts;
// PostgreSQL implementations live in the postgres subpackage and in-memory
// implementations for tests in the memory subpackage.
package repository

import (
	"context"
	"errors"

	"cellmesh.io/cellmesh/internal/domain"
)

// ErrVersionConflict is returned by conditional routing-store writes when
// the supplied version token no longer matches the stored entry.
var ErrVersionConflict = errors.New("routing entry version conflict")

// ListOptions controls pagination for full-scan listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// CellStore is the metadata-store contract for cell rows.
//
// TryReserve and ReleaseSlot implement the capacity ledger primitives: a
// reservation verifies status and spare capacity, increments utilization
// and advances the listener-priority counter as one atomic conditional
// update against the backing store. Concurrency safety comes from the
// store, never from in-process locks.
type CellStore interface {
	Insert(ctx context.Context, cell *domain.Cell) error
	Get(ctx context.Context, cellID string) (*domain.Cell, error)
	List(ctx context.Context, opts ListOptions) ([]*domain.Cell, error)

	// UpdateProfile mutates display name and/or wave number. Nil fields
	// are left untouched.
	UpdateProfile(ctx context.Context, cellID string, name *string, wave *int) error

	// CompleteCreation conditionally transitions creating -> available and
	// records the provisioning outputs. Returns false when the row was not
	// in creating state (idempotent replay).
	CompleteCreation(ctx context.Context, cellID, url string, maxCapacity int, meta []byte) (bool, error)

	// MarkFailed conditionally transitions creating -> failed. Returns
	// false when the row was not in creating state.
	MarkFailed(ctx context.Context, cellID string) (bool, error)

	// TryReserve atomically checks status=available && utilization <
	// max_capacity, increments utilization and advances the priority
	// counter. Returns the newly allocated listener priority and whether
	// the conditional update applied.
	TryReserve(ctx context.Context, cellID string) (priority int, applied bool, err error)

	// ReleaseSlot decrements utilization by one, floored at zero.
	ReleaseSlot(ctx context.Context, cellID string) error
}

// TenantStore is the metadata-store contract for tenant rows, keyed by the
// composite (cellID, tenantID) partition key.
type TenantStore interface {
	Insert(ctx context.Context, tenant *domain.Tenant) error
	Get(ctx context.Context, cellID, tenantID string) (*domain.Tenant, error)

	// GetByID looks a tenant up without knowing its owning cell
	// (deactivation is keyed by tenant id alone).
	GetByID(ctx context.Context, tenantID string) (*domain.Tenant, error)

	ListByCell(ctx context.Context, cellID string, opts ListOptions) ([]*domain.Tenant, error)

	// CompleteCreation conditionally transitions creating -> available and
	// stores provisioning metadata. Returns false on idempotent replay.
	CompleteCreation(ctx context.Context, cellID, tenantID string, meta []byte) (bool, error)

	// MarkFailed conditionally transitions creating -> failed. Returns
	// false when the row was not in creating state, so the caller can
	// decide whether the compensating capacity release still applies.
	MarkFailed(ctx context.Context, cellID, tenantID string) (bool, error)

	// SetStatus conditionally moves a tenant from one status to another
	// (the available <-> inactive cycle). Returns false when the row was
	// not in the expected from status.
	SetStatus(ctx context.Context, tenantID string, from, to domain.TenantStatus) (bool, error)
}

// RouteStore is the versioned key-value contract backing the routing cache.
// Writes are optimistic: the caller supplies the version token it read and
// the write applies only if it still matches. Version 0 means "entry must
// not exist yet".
type RouteStore interface {
	// Snapshot returns the full tenant -> cell-URL mapping in one read.
	Snapshot(ctx context.Context) (map[string]string, error)

	Get(ctx context.Context, tenantID string) (*domain.RoutingEntry, error)
	Put(ctx context.Context, tenantID, cellURL string, expectedVersion int64) error
	Delete(ctx context.Context, tenantID string, expectedVersion int64) error
}

// ParamStore retrieves a single named configuration parameter by name.
type ParamStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
}
