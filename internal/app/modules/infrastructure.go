package modules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"cellmesh.io/cellmesh/internal/config"
	"cellmesh.io/cellmesh/internal/infrastructure"
	"cellmesh.io/cellmesh/internal/pkg/worker"
	"cellmesh.io/cellmesh/internal/provisioner"
	"cellmesh.io/cellmesh/internal/repository"
	"cellmesh.io/cellmesh/internal/repository/postgres"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Pools       *worker.Pools
	Pool        *pgxpool.Pool
	RiverClient *river.Client[pgx.Tx]

	Cells    repository.CellStore
	Tenants  repository.TenantStore
	Routes   repository.RouteStore
	Params   repository.ParamStore
	Pipeline *provisioner.Client
}

// NewInfrastructure initializes the database, worker pools, stores and the
// deployment pipeline client.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	// Dev-mode: auto-create control-plane tables + River queue tables.
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize:  cfg.Worker.GeneralPoolSize,
		ObserverPoolSize: cfg.Worker.ObserverPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	return &Infrastructure{
		Config:   cfg,
		DB:       db,
		Pools:    pools,
		Pool:     db.Pool,
		Cells:    postgres.NewCellStore(db.Pool),
		Tenants:  postgres.NewTenantStore(db.Pool),
		Routes:   postgres.NewRouteStore(db.Pool),
		Params:   postgres.NewParamStore(db.Pool),
		Pipeline: provisioner.NewClient(cfg.Provisioner),
	}, nil
}

// InitRiver initializes the River client on top of a prepared worker registry.
func (i *Infrastructure) InitRiver(workers *river.Workers) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
