// Package routing implements the edge side of the control plane: the
// refresh-on-read routing cache and the request routing decision.
package routing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository"
)

// Cache holds the tenant -> cell-URL snapshot consumed on every routed
// request. Refresh is on-read: a lookup past the freshness threshold
// re-reads the whole snapshot from the backing store and replaces the map
// wholesale. A failed refresh keeps serving the stale snapshot; only a
// failed cold start is an error, because then there is nothing to serve.
type Cache struct {
	source    repository.RouteStore
	threshold time.Duration
	now       func() time.Time

	mu        sync.Mutex
	snapshot  map[string]string
	fetchedAt time.Time
	loaded    bool
}

// NewCache creates a cache over the backing store. The snapshot is loaded
// lazily on first lookup.
func NewCache(source repository.RouteStore, threshold time.Duration) *Cache {
	return &Cache{
		source:    source,
		threshold: threshold,
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Lookup resolves a tenant to its cell URL. ok is false when the tenant has
// no routing entry. The only error condition is a cold start against an
// unreachable backing store.
func (c *Cache) Lookup(ctx context.Context, tenantID string) (url string, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureFresh(ctx); err != nil {
		return "", false, err
	}
	url, ok = c.snapshot[tenantID]
	return url, ok, nil
}

// Entries returns a copy of the current snapshot, refreshing it first under
// the same rules as Lookup.
func (c *Cache) Entries(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureFresh(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(c.snapshot))
	for k, v := range c.snapshot {
		out[k] = v
	}
	return out, nil
}

// Invalidate forces the next lookup to refresh.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
}

// ensureFresh refreshes the snapshot when it is missing or past the
// threshold. Caller holds c.mu.
func (c *Cache) ensureFresh(ctx context.Context) error {
	age := c.now().Sub(c.fetchedAt)
	if c.loaded && age <= c.threshold {
		return nil
	}

	fresh, err := c.source.Snapshot(ctx)
	if err != nil {
		if !c.loaded {
			return apperrors.Wrap(err, apperrors.CodeRoutingConfigUnavailable,
				"routing configuration could not be loaded", 503)
		}
		logger.Warn("routing snapshot refresh failed, serving stale entries",
			zap.Duration("age", age),
			zap.Int("entries", len(c.snapshot)),
			zap.Error(err),
		)
		return nil
	}

	c.snapshot = fresh
	c.fetchedAt = c.now()
	c.loaded = true
	logger.Debug("routing snapshot refreshed", zap.Int("entries", len(fresh)))
	return nil
}
