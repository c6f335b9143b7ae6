package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires all control-plane and edge endpoints onto the engine.
func RegisterRoutes(r gin.IRouter, s *Server) {
	api := r.Group("/api/v1")
	{
		api.GET("/health/live", s.GetLiveness)
		api.GET("/health/ready", s.GetReadiness)

		api.POST("/cells", s.CreateCell)
		api.GET("/cells", s.ListCells)
		api.GET("/cells/:cellId", s.DescribeCell)
		api.PUT("/cells/:cellId", s.UpdateCell)
		api.POST("/cells/:cellId/complete", s.CompleteCell)
		api.POST("/cells/:cellId/fail", s.FailCell)

		api.POST("/cells/:cellId/tenants", s.AssignTenant)
		api.GET("/cells/:cellId/tenants", s.ListTenants)
		api.GET("/cells/:cellId/tenants/:tenantId", s.DescribeTenant)
		api.POST("/cells/:cellId/tenants/:tenantId/complete", s.CompleteTenant)
		api.POST("/cells/:cellId/tenants/:tenantId/fail", s.FailTenant)

		api.POST("/tenants/:tenantId/activate", s.ActivateTenant)
		api.POST("/tenants/:tenantId/deactivate", s.DeactivateTenant)

		api.GET("/waves", s.ListDeploymentWaves)
	}

	// Edge entry point: everything under /route is forwarded to the
	// tenant's cell (or the default origin on fail-open).
	r.Any("/route/*path", s.RouteRequest)
}
