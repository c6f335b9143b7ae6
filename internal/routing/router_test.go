package routing

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellmesh.io/cellmesh/internal/repository/memory"
)

const defaultOrigin = "https://fallback.example.com"

func newRouterFixture(t *testing.T) (*Router, *memory.RouteStore) {
	t.Helper()
	store := memory.NewRouteStore()
	cache := NewCache(store, threshold)
	return NewRouter(cache, defaultOrigin), store
}

func TestRouteRejectsMissingAuthorization(t *testing.T) {
	router, _ := newRouterFixture(t)
	d := router.Route(context.Background(), "", "t1")
	assert.Equal(t, http.StatusUnauthorized, d.Reject)
}

func TestRouteRejectsMissingTenantHeader(t *testing.T) {
	router, _ := newRouterFixture(t)
	d := router.Route(context.Background(), "Bearer token", "")
	assert.Equal(t, http.StatusBadRequest, d.Reject)
}

func TestRouteResolvedTenantGetsCellOrigin(t *testing.T) {
	router, store := newRouterFixture(t)
	require.NoError(t, store.Put(context.Background(), "t1", "https://c1.example.com", 0))

	d := router.Route(context.Background(), "Bearer token", "t1")
	assert.Zero(t, d.Reject)
	assert.True(t, d.Resolved)
	assert.Equal(t, "https://c1.example.com", d.Origin)
}

func TestRouteUnknownTenantFailsOpen(t *testing.T) {
	router, _ := newRouterFixture(t)

	d := router.Route(context.Background(), "Bearer token", "ghost")
	assert.Zero(t, d.Reject)
	assert.False(t, d.Resolved)
	assert.Equal(t, defaultOrigin, d.Origin)
}

func TestRouteResolutionFailureFailsOpen(t *testing.T) {
	store := memory.NewRouteStore()
	store.FailSnapshots = true
	router := NewRouter(NewCache(store, threshold), defaultOrigin)

	d := router.Route(context.Background(), "Bearer token", "t1")
	assert.Zero(t, d.Reject, "resolution failure must not reject the request")
	assert.False(t, d.Resolved)
	assert.Equal(t, defaultOrigin, d.Origin)
}
