// Package app is the composition root: bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"cellmesh.io/cellmesh/internal/api/handlers"
	"cellmesh.io/cellmesh/internal/app/modules"
	"cellmesh.io/cellmesh/internal/config"
	"cellmesh.io/cellmesh/internal/events"
	"cellmesh.io/cellmesh/internal/infrastructure"
	"cellmesh.io/cellmesh/internal/jobs"
	"cellmesh.io/cellmesh/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.DatabaseClients
	Pools   *worker.Pools
	Modules []modules.Module
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	// The bus is bound to the River client after worker registration.
	bus := &events.LazyBus{}

	allModules := []modules.Module{
		modules.NewControlPlaneModule(infra, bus),
		modules.NewRoutingModule(infra),
	}

	workers := river.NewWorkers()
	for _, mod := range allModules {
		mod.RegisterWorkers(workers)
	}
	if err := infra.InitRiver(workers); err != nil {
		infra.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}
	bus.Bind(events.NewRiverBus(infra.RiverClient))

	// Periodic capacity telemetry scan.
	if cfg.Observer.Enabled && infra.RiverClient != nil {
		infra.RiverClient.PeriodicJobs().Add(
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.Observer.Interval),
				func() (river.JobArgs, *river.InsertOpts) {
					return jobs.CapacityObserverArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		)
	}

	serverDeps := modules.NewServerDeps(infra, allModules)
	server := handlers.NewServer(serverDeps)

	return &Application{
		Config:  cfg,
		Router:  newRouter(server),
		DB:      infra.DB,
		Pools:   infra.Pools,
		Modules: allModules,
	}, nil
}
