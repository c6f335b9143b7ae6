package modules

import (
	"context"

	"github.com/riverqueue/river"

	"cellmesh.io/cellmesh/internal/api/handlers"
	"cellmesh.io/cellmesh/internal/routing"
)

// RoutingModule wires the routing cache and the edge router.
type RoutingModule struct {
	cache  *routing.Cache
	router *routing.Router
}

// NewRoutingModule creates the routing module.
func NewRoutingModule(infra *Infrastructure) *RoutingModule {
	cache := routing.NewCache(infra.Routes, infra.Config.Routing.CacheThreshold)
	return &RoutingModule{
		cache:  cache,
		router: routing.NewRouter(cache, infra.Config.Routing.DefaultOrigin),
	}
}

func (m *RoutingModule) Name() string { return "routing" }

func (m *RoutingModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Router = m.router
}

func (m *RoutingModule) RegisterWorkers(*river.Workers) {}

func (m *RoutingModule) Shutdown(context.Context) error { return nil }
