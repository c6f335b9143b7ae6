package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/usecase"
)

// assignTenantRequest is the POST /cells/:cellId/tenants body. The cell id
// comes from the path, never the body.
type assignTenantRequest struct {
	TenantName  string `json:"tenant_name"`
	TenantTier  string `json:"tenant_tier"`
	TenantEmail string `json:"tenant_email"`
}

// AssignTenant handles POST /cells/:cellId/tenants.
func (s *Server) AssignTenant(c *gin.Context) {
	var req assignTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	out, err := s.assignTenantUC.Execute(c.Request.Context(), usecase.AssignTenantInput{
		CellID:      c.Param("cellId"),
		TenantName:  req.TenantName,
		TenantTier:  req.TenantTier,
		TenantEmail: req.TenantEmail,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// ListTenants handles GET /cells/:cellId/tenants.
func (s *Server) ListTenants(c *gin.Context) {
	tenants, err := s.queries.ListTenants(c.Request.Context(), c.Param("cellId"), listOptions(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if tenants == nil {
		tenants = []*domain.Tenant{}
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

// DescribeTenant handles GET /cells/:cellId/tenants/:tenantId.
func (s *Server) DescribeTenant(c *gin.Context) {
	tenant, err := s.queries.DescribeTenant(c.Request.Context(), c.Param("cellId"), c.Param("tenantId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// tenantCompletionRequest is the pipeline's tenant success callback body.
type tenantCompletionRequest struct {
	Metadata json.RawMessage `json:"metadata"`
}

// CompleteTenant handles POST /cells/:cellId/tenants/:tenantId/complete.
func (s *Server) CompleteTenant(c *gin.Context) {
	var req tenantCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	err := s.completeTenantUC.Success(c.Request.Context(), c.Param("cellId"), c.Param("tenantId"), req.Metadata)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.TenantStatusAvailable)})
}

// FailTenant handles POST /cells/:cellId/tenants/:tenantId/fail.
func (s *Server) FailTenant(c *gin.Context) {
	err := s.completeTenantUC.Failure(c.Request.Context(), c.Param("cellId"), c.Param("tenantId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.TenantStatusFailed)})
}

// ActivateTenant handles POST /tenants/:tenantId/activate.
func (s *Server) ActivateTenant(c *gin.Context) {
	if err := s.activateUC.Execute(c.Request.Context(), c.Param("tenantId")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.TenantStatusAvailable)})
}

// DeactivateTenant handles POST /tenants/:tenantId/deactivate.
func (s *Server) DeactivateTenant(c *gin.Context) {
	if err := s.deactivateUC.Execute(c.Request.Context(), c.Param("tenantId")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.TenantStatusInactive)})
}
