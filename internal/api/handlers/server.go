// Package handlers implements the HTTP handlers of the cell control plane.
//
// Handlers stay thin: they bind and validate transport-level input, call a
// use case and translate its result. Error mapping lives in the
// middleware.ErrorHandler; handlers only attach errors via c.Error().
package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"cellmesh.io/cellmesh/internal/routing"
	"cellmesh.io/cellmesh/internal/usecase"
)

// Server implements all API handlers.
type Server struct {
	pool *pgxpool.Pool

	createCellUC     *usecase.CreateCellUseCase
	completeCellUC   *usecase.CompleteCellUseCase
	assignTenantUC   *usecase.AssignTenantUseCase
	completeTenantUC *usecase.CompleteTenantUseCase
	activateUC       *usecase.ActivateTenantUseCase
	deactivateUC     *usecase.DeactivateTenantUseCase
	queries          *usecase.QueryUseCase

	router *routing.Router
}

// ServerDeps holds all dependencies for creating a Server. Manual DI, no
// wire framework.
type ServerDeps struct {
	Pool *pgxpool.Pool

	CreateCellUC     *usecase.CreateCellUseCase
	CompleteCellUC   *usecase.CompleteCellUseCase
	AssignTenantUC   *usecase.AssignTenantUseCase
	CompleteTenantUC *usecase.CompleteTenantUseCase
	ActivateUC       *usecase.ActivateTenantUseCase
	DeactivateUC     *usecase.DeactivateTenantUseCase
	Queries          *usecase.QueryUseCase

	Router *routing.Router
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		pool:             deps.Pool,
		createCellUC:     deps.CreateCellUC,
		completeCellUC:   deps.CompleteCellUC,
		assignTenantUC:   deps.AssignTenantUC,
		completeTenantUC: deps.CompleteTenantUC,
		activateUC:       deps.ActivateUC,
		deactivateUC:     deps.DeactivateUC,
		queries:          deps.Queries,
		router:           deps.Router,
	}
}
