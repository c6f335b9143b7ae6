package domain

import (
	"regexp"
	"time"
)

// TenantStatus is the lifecycle status of a tenant.
type TenantStatus string

const (
	TenantStatusCreating  TenantStatus = "creating"
	TenantStatusAvailable TenantStatus = "available"
	TenantStatusFailed    TenantStatus = "failed"
	TenantStatusInactive  TenantStatus = "inactive"
)

// Valid reports whether s is a known tenant status.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantStatusCreating, TenantStatusAvailable, TenantStatusFailed, TenantStatusInactive:
		return true
	}
	return false
}

// Tenant is a customer workload assigned to exactly one cell.
// CellID never changes after creation. ListenerPriority is unique and
// strictly increasing per cell in creation order, and never reused.
type Tenant struct {
	ID               string       `json:"tenant_id"`
	CellID           string       `json:"cell_id"`
	Name             string       `json:"tenant_name"`
	Tier             string       `json:"tenant_tier"`
	Email            string       `json:"tenant_email"`
	ListenerPriority int          `json:"listener_priority"`
	ImageVersion     string       `json:"image_version,omitempty"`
	Status           TenantStatus `json:"status"`
	ProvisioningMeta []byte       `json:"-"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// emailPattern matches standard email syntax; same shape as the rule the
// assignment API has always enforced.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,7}$`)

// ValidEmail reports whether addr matches standard email syntax.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// RoutingEntry is the durable tenant -> cell-URL mapping consumed by the
// edge router. Derived data: always reconstructable from Cell and Tenant
// rows. Version is the optimistic-concurrency token for conditional writes.
type RoutingEntry struct {
	TenantID  string    `json:"tenant_id"`
	CellURL   string    `json:"cell_url"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
