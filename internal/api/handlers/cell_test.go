package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellmesh.io/cellmesh/internal/domain"
)

func TestCreateCellEndpoint(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/v1/cells", map[string]interface{}{
		"cell_name": "alpha", "cell_size": 20, "wave_number": 1,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		CellID string `json:"cell_id"`
		Status string `json:"status"`
	}
	decode(t, rec, &out)
	assert.NotEmpty(t, out.CellID)
	assert.Equal(t, "creating", out.Status)
	assert.Len(t, f.bus.Cells, 1)
}

func TestCreateCellEndpointValidation(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/v1/cells", map[string]interface{}{
		"cell_name": "", "cell_size": 10,
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code string `json:"code"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "VALIDATION_FAILED", body.Code)
}

func TestDescribeCellEndpoint(t *testing.T) {
	f := newFixture(t, "")
	f.seedAvailableCell("c1", 10)

	rec := f.do(t, http.MethodGet, "/api/v1/cells/c1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cell domain.Cell
	decode(t, rec, &cell)
	assert.Equal(t, "c1", cell.ID)
	assert.Equal(t, domain.CellStatusAvailable, cell.Status)
}

func TestDescribeCellEndpointNotFound(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/api/v1/cells/ghost", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Code string `json:"code"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "CELL_NOT_FOUND", body.Code)
}

func TestCellCompletionCallbacks(t *testing.T) {
	f := newFixture(t, "")
	f.cells.Seed(&domain.Cell{ID: "c1", MaxCapacity: 10, Status: domain.CellStatusCreating})

	rec := f.do(t, http.MethodPost, "/api/v1/cells/c1/complete", map[string]interface{}{
		"url": "https://c1.cells.example.com", "max_capacity": 25,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cell, err := f.cells.Get(t.Context(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CellStatusAvailable, cell.Status)
	assert.Equal(t, 25, cell.MaxCapacity)

	// Replay is accepted and changes nothing.
	rec = f.do(t, http.MethodPost, "/api/v1/cells/c1/complete", map[string]interface{}{
		"url": "https://other.example.com", "max_capacity": 5,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cell, err = f.cells.Get(t.Context(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "https://c1.cells.example.com", cell.URL)
}

func TestCellFailureCallback(t *testing.T) {
	f := newFixture(t, "")
	f.cells.Seed(&domain.Cell{ID: "c1", MaxCapacity: 10, Status: domain.CellStatusCreating})

	rec := f.do(t, http.MethodPost, "/api/v1/cells/c1/fail", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cell, err := f.cells.Get(t.Context(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CellStatusFailed, cell.Status)
}

func TestUpdateCellEndpoint(t *testing.T) {
	f := newFixture(t, "")
	f.seedAvailableCell("c1", 10)

	rec := f.do(t, http.MethodPut, "/api/v1/cells/c1", map[string]interface{}{
		"cell_name": "renamed", "wave_number": 2,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cell domain.Cell
	decode(t, rec, &cell)
	assert.Equal(t, "renamed", cell.Name)
	assert.Equal(t, 2, cell.WaveNumber)
}

func TestListCellsEndpoint(t *testing.T) {
	f := newFixture(t, "")
	f.seedAvailableCell("c1", 10)
	f.seedAvailableCell("c2", 10)

	rec := f.do(t, http.MethodGet, "/api/v1/cells", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Cells []domain.Cell `json:"cells"`
	}
	decode(t, rec, &body)
	assert.Len(t, body.Cells, 2)
}
