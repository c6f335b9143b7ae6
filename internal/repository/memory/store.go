// Package memory provides in-memory implementations of the repository
// contracts for tests and local development without a database. Semantics
// mirror the postgres package, including the conditional-update behavior
// the capacity ledger and routing writes rely on.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/repository"
)

// CellStore is an in-memory repository.CellStore.
type CellStore struct {
	mu    sync.Mutex
	cells map[string]*domain.Cell
}

// NewCellStore creates an empty in-memory cell store.
func NewCellStore() *CellStore {
	return &CellStore{cells: make(map[string]*domain.Cell)}
}

var _ repository.CellStore = (*CellStore)(nil)

// Seed inserts cells directly, bypassing lifecycle rules.
func (s *CellStore) Seed(cells ...*domain.Cell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cells {
		cp := *c
		s.cells[c.ID] = &cp
	}
}

func (s *CellStore) Insert(_ context.Context, cell *domain.Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cells[cell.ID]; ok {
		return fmt.Errorf("cell %s: %w", cell.ID, apperrors.ErrAlreadyExists)
	}
	cp := *cell
	now := time.Now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.cells[cell.ID] = &cp
	return nil
}

func (s *CellStore) Get(_ context.Context, cellID string) (*domain.Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, ok := s.cells[cellID]
	if !ok {
		return nil, fmt.Errorf("cell %s: %w", cellID, apperrors.ErrNotFound)
	}
	cp := *cell
	return &cp, nil
}

func (s *CellStore) List(_ context.Context, opts repository.ListOptions) ([]*domain.Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*domain.Cell, 0, len(s.cells))
	for _, cell := range s.cells {
		cp := *cell
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return paginate(all, opts), nil
}

func (s *CellStore) UpdateProfile(_ context.Context, cellID string, name *string, wave *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, ok := s.cells[cellID]
	if !ok {
		return fmt.Errorf("cell %s: %w", cellID, apperrors.ErrNotFound)
	}
	if name != nil {
		cell.Name = *name
	}
	if wave != nil {
		cell.WaveNumber = *wave
	}
	cell.UpdatedAt = time.Now()
	return nil
}

func (s *CellStore) CompleteCreation(_ context.Context, cellID, url string, maxCapacity int, meta []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, ok := s.cells[cellID]
	if !ok {
		return false, fmt.Errorf("cell %s: %w", cellID, apperrors.ErrNotFound)
	}
	if cell.Status != domain.CellStatusCreating {
		return false, nil
	}
	cell.Status = domain.CellStatusAvailable
	cell.URL = url
	cell.MaxCapacity = maxCapacity
	cell.ProvisioningMeta = meta
	cell.UpdatedAt = time.Now()
	return true, nil
}

func (s *CellStore) MarkFailed(_ context.Context, cellID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, ok := s.cells[cellID]
	if !ok {
		return false, fmt.Errorf("cell %s: %w", cellID, apperrors.ErrNotFound)
	}
	if cell.Status != domain.CellStatusCreating {
		return false, nil
	}
	cell.Status = domain.CellStatusFailed
	cell.UpdatedAt = time.Now()
	return true, nil
}

func (s *CellStore) TryReserve(_ context.Context, cellID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, ok := s.cells[cellID]
	if !ok {
		return 0, false, nil
	}
	if cell.Status != domain.CellStatusAvailable || cell.Utilization >= cell.MaxCapacity {
		return 0, false, nil
	}
	cell.Utilization++
	cell.PriorityCounter += domain.PriorityStep
	cell.UpdatedAt = time.Now()
	return cell.PriorityCounter, true, nil
}

func (s *CellStore) ReleaseSlot(_ context.Context, cellID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, ok := s.cells[cellID]
	if !ok {
		return fmt.Errorf("cell %s: %w", cellID, apperrors.ErrNotFound)
	}
	if cell.Utilization > 0 {
		cell.Utilization--
	}
	cell.UpdatedAt = time.Now()
	return nil
}

// TenantStore is an in-memory repository.TenantStore.
type TenantStore struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant // keyed by tenant id
}

// NewTenantStore creates an empty in-memory tenant store.
func NewTenantStore() *TenantStore {
	return &TenantStore{tenants: make(map[string]*domain.Tenant)}
}

var _ repository.TenantStore = (*TenantStore)(nil)

// Seed inserts tenants directly, bypassing lifecycle rules.
func (s *TenantStore) Seed(tenants ...*domain.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tenants {
		cp := *t
		s.tenants[t.ID] = &cp
	}
}

func (s *TenantStore) Insert(_ context.Context, tenant *domain.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenant.ID]; ok {
		return fmt.Errorf("tenant %s: %w", tenant.ID, apperrors.ErrAlreadyExists)
	}
	cp := *tenant
	now := time.Now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.tenants[tenant.ID] = &cp
	return nil
}

func (s *TenantStore) Get(_ context.Context, cellID, tenantID string) (*domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantID]
	if !ok || tenant.CellID != cellID {
		return nil, fmt.Errorf("tenant %s in cell %s: %w", tenantID, cellID, apperrors.ErrNotFound)
	}
	cp := *tenant
	return &cp, nil
}

func (s *TenantStore) GetByID(_ context.Context, tenantID string) (*domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, apperrors.ErrNotFound)
	}
	cp := *tenant
	return &cp, nil
}

func (s *TenantStore) ListByCell(_ context.Context, cellID string, opts repository.ListOptions) ([]*domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*domain.Tenant
	for _, tenant := range s.tenants {
		if tenant.CellID == cellID {
			cp := *tenant
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ListenerPriority < all[j].ListenerPriority
	})
	return paginate(all, opts), nil
}

func (s *TenantStore) CompleteCreation(_ context.Context, cellID, tenantID string, meta []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantID]
	if !ok || tenant.CellID != cellID {
		return false, fmt.Errorf("tenant %s in cell %s: %w", tenantID, cellID, apperrors.ErrNotFound)
	}
	if tenant.Status != domain.TenantStatusCreating {
		return false, nil
	}
	tenant.Status = domain.TenantStatusAvailable
	tenant.ProvisioningMeta = meta
	tenant.UpdatedAt = time.Now()
	return true, nil
}

func (s *TenantStore) MarkFailed(_ context.Context, cellID, tenantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantID]
	if !ok || tenant.CellID != cellID {
		return false, fmt.Errorf("tenant %s in cell %s: %w", tenantID, cellID, apperrors.ErrNotFound)
	}
	if tenant.Status != domain.TenantStatusCreating {
		return false, nil
	}
	tenant.Status = domain.TenantStatusFailed
	tenant.UpdatedAt = time.Now()
	return true, nil
}

func (s *TenantStore) SetStatus(_ context.Context, tenantID string, from, to domain.TenantStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return false, fmt.Errorf("tenant %s: %w", tenantID, apperrors.ErrNotFound)
	}
	if tenant.Status != from {
		return false, nil
	}
	tenant.Status = to
	tenant.UpdatedAt = time.Now()
	return true, nil
}

// RouteStore is an in-memory versioned routing backing store.
type RouteStore struct {
	mu      sync.Mutex
	entries map[string]*domain.RoutingEntry

	// FailSnapshots makes Snapshot return an error, for cache fallback tests.
	FailSnapshots bool
}

// NewRouteStore creates an empty in-memory route store.
func NewRouteStore() *RouteStore {
	return &RouteStore{entries: make(map[string]*domain.RoutingEntry)}
}

var _ repository.RouteStore = (*RouteStore)(nil)

func (s *RouteStore) Snapshot(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSnapshots {
		return nil, fmt.Errorf("routing store unreachable: %w", apperrors.ErrServiceUnavail)
	}
	snapshot := make(map[string]string, len(s.entries))
	for id, entry := range s.entries {
		snapshot[id] = entry.CellURL
	}
	return snapshot, nil
}

func (s *RouteStore) Get(_ context.Context, tenantID string) (*domain.RoutingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tenantID]
	if !ok {
		return nil, fmt.Errorf("routing entry %s: %w", tenantID, apperrors.ErrNotFound)
	}
	cp := *entry
	return &cp, nil
}

func (s *RouteStore) Put(_ context.Context, tenantID, cellURL string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tenantID]
	if expectedVersion == 0 {
		if ok {
			return fmt.Errorf("routing entry %s already exists: %w", tenantID, repository.ErrVersionConflict)
		}
		s.entries[tenantID] = &domain.RoutingEntry{
			TenantID: tenantID, CellURL: cellURL, Version: 1, UpdatedAt: time.Now(),
		}
		return nil
	}
	if !ok || entry.Version != expectedVersion {
		return fmt.Errorf("routing entry %s at version %d: %w", tenantID, expectedVersion, repository.ErrVersionConflict)
	}
	entry.CellURL = cellURL
	entry.Version++
	entry.UpdatedAt = time.Now()
	return nil
}

func (s *RouteStore) Delete(_ context.Context, tenantID string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tenantID]
	if !ok {
		return fmt.Errorf("routing entry %s: %w", tenantID, apperrors.ErrNotFound)
	}
	if entry.Version != expectedVersion {
		return fmt.Errorf("routing entry %s at version %d: %w", tenantID, expectedVersion, repository.ErrVersionConflict)
	}
	delete(s.entries, tenantID)
	return nil
}

// ParamStore is an in-memory repository.ParamStore.
type ParamStore struct {
	mu     sync.Mutex
	params map[string]string
}

// NewParamStore creates an in-memory parameter store.
func NewParamStore() *ParamStore {
	return &ParamStore{params: make(map[string]string)}
}

var _ repository.ParamStore = (*ParamStore)(nil)

func (s *ParamStore) Get(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.params[name]
	if !ok {
		return "", fmt.Errorf("parameter %s: %w", name, apperrors.ErrNotFound)
	}
	return value, nil
}

func (s *ParamStore) Set(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[name] = value
	return nil
}

func paginate[T any](all []T, opts repository.ListOptions) []T {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if opts.Offset >= len(all) {
		return nil
	}
	end := opts.Offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end]
}
