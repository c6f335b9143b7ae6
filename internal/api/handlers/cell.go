package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cellmesh.io/cellmesh/internal/domain"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/repository"
	"cellmesh.io/cellmesh/internal/usecase"
)

// listOptions parses limit/offset query parameters.
func listOptions(c *gin.Context) repository.ListOptions {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

// CreateCell handles POST /cells.
func (s *Server) CreateCell(c *gin.Context) {
	var input usecase.CreateCellInput
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	out, err := s.createCellUC.Execute(c.Request.Context(), input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// ListCells handles GET /cells.
func (s *Server) ListCells(c *gin.Context) {
	cells, err := s.queries.ListCells(c.Request.Context(), listOptions(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if cells == nil {
		cells = []*domain.Cell{}
	}
	c.JSON(http.StatusOK, gin.H{"cells": cells})
}

// DescribeCell handles GET /cells/:cellId.
func (s *Server) DescribeCell(c *gin.Context) {
	cell, err := s.queries.DescribeCell(c.Request.Context(), c.Param("cellId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cell)
}

// UpdateCell handles PUT /cells/:cellId.
func (s *Server) UpdateCell(c *gin.Context) {
	var input usecase.UpdateCellInput
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	cell, err := s.queries.UpdateCell(c.Request.Context(), c.Param("cellId"), input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cell)
}

// cellCompletionRequest is the deployment pipeline's success callback body.
type cellCompletionRequest struct {
	URL         string          `json:"url"`
	MaxCapacity int             `json:"max_capacity"`
	Metadata    json.RawMessage `json:"metadata"`
}

// CompleteCell handles POST /cells/:cellId/complete.
func (s *Server) CompleteCell(c *gin.Context) {
	var req cellCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	outputs := domain.ProvisioningOutputs{
		URL:         req.URL,
		MaxCapacity: req.MaxCapacity,
		Metadata:    req.Metadata,
	}
	if err := s.completeCellUC.Success(c.Request.Context(), c.Param("cellId"), outputs); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.CellStatusAvailable)})
}

// FailCell handles POST /cells/:cellId/fail.
func (s *Server) FailCell(c *gin.Context) {
	if err := s.completeCellUC.Failure(c.Request.Context(), c.Param("cellId")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.CellStatusFailed)})
}

// ListDeploymentWaves handles GET /waves.
func (s *Server) ListDeploymentWaves(c *gin.Context) {
	waves, err := s.queries.ListDeploymentWaves(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if waves == nil {
		waves = []usecase.DeploymentWave{}
	}
	c.JSON(http.StatusOK, gin.H{"waves": waves})
}
