package modules

import (
	"context"

	"github.com/riverqueue/river"

	"cellmesh.io/cellmesh/internal/api/handlers"
	"cellmesh.io/cellmesh/internal/events"
	"cellmesh.io/cellmesh/internal/jobs"
	"cellmesh.io/cellmesh/internal/service"
	"cellmesh.io/cellmesh/internal/usecase"
)

// ControlPlaneModule wires the cell/tenant lifecycle use cases and the
// provisioning dispatch workers.
type ControlPlaneModule struct {
	infra  *Infrastructure
	ledger *service.CapacityLedger

	createCellUC     *usecase.CreateCellUseCase
	completeCellUC   *usecase.CompleteCellUseCase
	assignTenantUC   *usecase.AssignTenantUseCase
	completeTenantUC *usecase.CompleteTenantUseCase
	activateUC       *usecase.ActivateTenantUseCase
	deactivateUC     *usecase.DeactivateTenantUseCase
	queries          *usecase.QueryUseCase
}

// NewControlPlaneModule creates the control-plane module. bus is passed in
// because the River client does not exist until all workers are registered.
func NewControlPlaneModule(infra *Infrastructure, bus events.Bus) *ControlPlaneModule {
	ledger := service.NewCapacityLedger(infra.Cells)
	return &ControlPlaneModule{
		infra:          infra,
		ledger:         ledger,
		createCellUC:   usecase.NewCreateCellUseCase(infra.Cells, bus),
		completeCellUC: usecase.NewCompleteCellUseCase(infra.Cells),
		assignTenantUC: usecase.NewAssignTenantUseCase(
			infra.Tenants, infra.Params, ledger, bus,
			infra.Config.Provisioner.ImageVersionParam,
		),
		completeTenantUC: usecase.NewCompleteTenantUseCase(infra.Tenants, ledger),
		activateUC:       usecase.NewActivateTenantUseCase(infra.Cells, infra.Tenants, infra.Routes),
		deactivateUC:     usecase.NewDeactivateTenantUseCase(infra.Tenants, infra.Routes),
		queries:          usecase.NewQueryUseCase(infra.Cells, infra.Tenants),
	}
}

func (m *ControlPlaneModule) Name() string { return "controlplane" }

func (m *ControlPlaneModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.CreateCellUC = m.createCellUC
	deps.CompleteCellUC = m.completeCellUC
	deps.AssignTenantUC = m.assignTenantUC
	deps.CompleteTenantUC = m.completeTenantUC
	deps.ActivateUC = m.activateUC
	deps.DeactivateUC = m.deactivateUC
	deps.Queries = m.queries
}

func (m *ControlPlaneModule) RegisterWorkers(workers *river.Workers) {
	if workers == nil || m == nil || m.infra == nil {
		return
	}
	river.AddWorker(workers, jobs.NewCellProvisionWorker(m.infra.Pipeline, m.infra.Cells))
	river.AddWorker(workers, jobs.NewTenantProvisionWorker(m.infra.Pipeline, m.infra.Tenants, m.ledger))
	if m.infra.Config.Observer.Enabled {
		river.AddWorker(workers, jobs.NewCapacityObserverWorker(m.infra.Cells, m.infra.Pools.Observer))
	}
}

func (m *ControlPlaneModule) Shutdown(context.Context) error { return nil }
