package domain

import "encoding/json"

// EventType identifies a provisioning event kind on the pipeline wire.
// Outcomes come back through the completion callbacks, so only the
// requested events are ever emitted.
type EventType string

const (
	EventCellCreateRequested   EventType = "CELL_CREATE_REQUESTED"
	EventTenantCreateRequested EventType = "TENANT_CREATE_REQUESTED"
)

// CellCreatePayload is the payload of a CellCreateRequested event, consumed
// by the deployment pipeline to provision a new cell.
type CellCreatePayload struct {
	CellID     string `json:"cell_id"`
	CellName   string `json:"cell_name"`
	CellSize   int    `json:"cell_size"`
	WaveNumber int    `json:"wave_number"`
}

// ToJSON converts the payload to JSON bytes.
func (p CellCreatePayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// TenantCreatePayload is the payload of a TenantCreateRequested event.
// It carries the resolved listener priority and the workload image version
// current at assignment time.
type TenantCreatePayload struct {
	CellID           string `json:"cell_id"`
	TenantID         string `json:"tenant_id"`
	TenantName       string `json:"tenant_name"`
	TenantTier       string `json:"tenant_tier"`
	TenantEmail      string `json:"tenant_email"`
	ListenerPriority int    `json:"listener_priority"`
	ImageVersion     string `json:"product_image_version"`
}

// ToJSON converts the payload to JSON bytes.
func (p TenantCreatePayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// ProvisioningOutputs is the structured result the deployment pipeline
// reports on success through the completion callbacks. URL and MaxCapacity
// are meaningful for cell completions only; Metadata is opaque pipeline
// output stored verbatim on the row.
type ProvisioningOutputs struct {
	URL         string          `json:"url,omitempty"`
	MaxCapacity int             `json:"max_capacity,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}
