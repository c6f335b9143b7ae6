package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New("CELL_NOT_FOUND", "cell not found", http.StatusNotFound),
			want: "CELL_NOT_FOUND: cell not found",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("db error"), "STORE_ACCESS_FAILED", "store failure", http.StatusInternalServerError),
			want: "STORE_ACCESS_FAILED: store failure: db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(inner, "CODE", "msg", 500)

	if !errors.Is(appErr, inner) {
		t.Error("errors.Is should match inner error")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("NOT_FOUND", "resource not found")
	wrapped := fmt.Errorf("wrapped: %w", appErr)

	got, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError should return true for wrapped AppError")
	}
	if got.Code != "NOT_FOUND" {
		t.Errorf("Code = %q, want NOT_FOUND", got.Code)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
	}{
		{"NotFound", NotFound("NF", "not found"), http.StatusNotFound},
		{"BadRequest", BadRequest("BR", "bad request"), http.StatusBadRequest},
		{"Conflict", Conflict("CF", "conflict"), http.StatusConflict},
		{"Unavailable", Unavailable("UV", "unavailable"), http.StatusServiceUnavailable},
		{"Internal", Internal("IE", "internal"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
		})
	}
}

func TestDomainConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
		wantParam  string
	}{
		{"cell not found", ErrCellNotFoundf("c1"), CodeCellNotFound, http.StatusNotFound, "cell_id"},
		{"cell unavailable", ErrCellUnavailablef("c1"), CodeCellUnavailable, http.StatusServiceUnavailable, "cell_id"},
		{"cell full", ErrCellFullf("c1"), CodeCellFull, http.StatusServiceUnavailable, "cell_id"},
		{"tenant not found", ErrTenantNotFoundf("t1"), CodeTenantNotFound, http.StatusNotFound, "tenant_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
			if _, ok := tt.err.Params[tt.wantParam]; !ok {
				t.Errorf("Params missing %q: %v", tt.wantParam, tt.err.Params)
			}
		})
	}
}

func TestWithParams(t *testing.T) {
	err := BadRequest("VALIDATION_FAILED", "validation failed").
		WithParams(map[string]interface{}{"field": "cell_size"})

	if err.Params["field"] != "cell_size" {
		t.Errorf("Params.field = %v, want cell_size", err.Params["field"])
	}
}
