// Package domain contains the core entities of the cell control plane:
// cells, tenants, routing entries and the provisioning event payloads.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CellStatus is the lifecycle status of a cell.
type CellStatus string

const (
	CellStatusCreating  CellStatus = "creating"
	CellStatusAvailable CellStatus = "available"
	CellStatusFailed    CellStatus = "failed"
)

// Valid reports whether s is a known cell status.
func (s CellStatus) Valid() bool {
	switch s {
	case CellStatusCreating, CellStatusAvailable, CellStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is modeled for s.
// Decommissioning is out of scope, so both available and failed are terminal.
func (s CellStatus) Terminal() bool {
	return s == CellStatusAvailable || s == CellStatusFailed
}

// Cell is an isolated deployment unit hosting a bounded set of tenants.
//
// Utilization counts tenants in a non-failed state and is incremented
// pessimistically at assignment time, so it may transiently include tenants
// that are still creating. PriorityCounter backs listener-priority
// allocation: it only ever moves forward, in steps of PriorityStep.
type Cell struct {
	ID               string     `json:"cell_id"`
	Name             string     `json:"cell_name"`
	MaxCapacity      int        `json:"max_capacity"`
	Utilization      int        `json:"utilization"`
	PriorityCounter  int        `json:"-"`
	WaveNumber       int        `json:"wave_number"`
	Status           CellStatus `json:"status"`
	URL              string     `json:"cell_url,omitempty"`
	ProvisioningMeta []byte     `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// PriorityStep is the fixed increment between successive listener
// priorities within a cell. The first allocated priority is PriorityStep.
const PriorityStep = 10

// SpareCapacity returns the number of unreserved tenant slots.
func (c *Cell) SpareCapacity() int {
	if n := c.MaxCapacity - c.Utilization; n > 0 {
		return n
	}
	return 0
}

// NewCellID generates a fresh cell identifier. Identifiers must start with
// a letter (downstream naming constraint), so a fixed alphabetic prefix is
// used ahead of a compact random suffix.
func NewCellID() string {
	return "c" + shortSuffix()
}

// NewTenantID generates a fresh tenant identifier, same shape as cell ids.
func NewTenantID() string {
	return "t" + shortSuffix()
}

// shortSuffix derives a compact lowercase suffix from a random UUID.
func shortSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
