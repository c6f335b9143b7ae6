package errors

import "net/http"

// Error code constants. Errors carry code + params; backend logs are
// always in English.

// Cell error codes.
const (
	CodeCellNotFound    = "CELL_NOT_FOUND"
	CodeCellUnavailable = "CELL_UNAVAILABLE"
	CodeCellFull        = "CELL_FULL"
	CodeCellCreateFail  = "CELL_CREATION_FAILED"
)

// Tenant error codes.
const (
	CodeTenantNotFound   = "TENANT_NOT_FOUND"
	CodeTenantCreateFail = "TENANT_CREATION_FAILED"
)

// Routing error codes.
const (
	CodeRoutingConfigUnavailable = "ROUTING_CONFIG_UNAVAILABLE"
	CodeRoutingEntryConflict     = "ROUTING_ENTRY_CONFLICT"
	CodeRoutingEntryNotFound     = "ROUTING_ENTRY_NOT_FOUND"
)

// Validation / state error codes.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodePreconditionFailed = "PRECONDITION_FAILED"
)

// Store error codes.
const (
	CodeStoreAccess = "STORE_ACCESS_FAILED"
	CodeStoreFormat = "STORE_FORMAT_INVALID"
)

// Convenience constructors using predefined codes.

// ErrCellNotFoundf creates a cell not found error.
func ErrCellNotFoundf(cellID string) *AppError {
	return &AppError{
		Code:       CodeCellNotFound,
		Message:    "cell not found",
		HTTPStatus: http.StatusNotFound,
		Params:     map[string]interface{}{"cell_id": cellID},
	}
}

// ErrTenantNotFoundf creates a tenant not found error.
func ErrTenantNotFoundf(tenantID string) *AppError {
	return &AppError{
		Code:       CodeTenantNotFound,
		Message:    "tenant not found",
		HTTPStatus: http.StatusNotFound,
		Params:     map[string]interface{}{"tenant_id": tenantID},
	}
}

// ErrCellUnavailablef creates a cell unavailable error (503, caller may retry).
func ErrCellUnavailablef(cellID string) *AppError {
	return &AppError{
		Code:       CodeCellUnavailable,
		Message:    "cell is not available for tenant assignment",
		HTTPStatus: http.StatusServiceUnavailable,
		Params:     map[string]interface{}{"cell_id": cellID},
	}
}

// ErrCellFullf creates a cell at-capacity error (503, caller may retry later).
func ErrCellFullf(cellID string) *AppError {
	return &AppError{
		Code:       CodeCellFull,
		Message:    "cell is at full capacity",
		HTTPStatus: http.StatusServiceUnavailable,
		Params:     map[string]interface{}{"cell_id": cellID},
	}
}
