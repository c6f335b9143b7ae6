package domain

import (
	"strings"
	"testing"
)

func TestValidEmail(t *testing.T) {
	valid := []string{
		"ops@example.com",
		"first.last@example.co",
		"a+b@sub.example.museum",
		"user_name%tag@host-name.io",
	}
	for _, addr := range valid {
		if !ValidEmail(addr) {
			t.Errorf("ValidEmail(%q) = false, want true", addr)
		}
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@example",
		"user@example.c",
		"user@example.toolongtld",
		"user name@example.com",
	}
	for _, addr := range invalid {
		if ValidEmail(addr) {
			t.Errorf("ValidEmail(%q) = true, want false", addr)
		}
	}
}

func TestTenantStatusValid(t *testing.T) {
	for _, s := range []TenantStatus{TenantStatusCreating, TenantStatusAvailable, TenantStatusFailed, TenantStatusInactive} {
		if !s.Valid() {
			t.Errorf("TenantStatus(%q).Valid() = false, want true", s)
		}
	}
	if TenantStatus("deleted").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestCellStatus(t *testing.T) {
	for _, s := range []CellStatus{CellStatusCreating, CellStatusAvailable, CellStatusFailed} {
		if !s.Valid() {
			t.Errorf("CellStatus(%q).Valid() = false, want true", s)
		}
	}
	if CellStatus("deleted").Valid() {
		t.Error("unknown status should not be valid")
	}

	if CellStatusCreating.Terminal() {
		t.Error("creating must not be terminal")
	}
	if !CellStatusAvailable.Terminal() || !CellStatusFailed.Terminal() {
		t.Error("available and failed are terminal")
	}
}

func TestNewIDs(t *testing.T) {
	cellID := NewCellID()
	if !strings.HasPrefix(cellID, "c") || len(cellID) != 13 {
		t.Errorf("NewCellID() = %q, want c-prefixed 13-char id", cellID)
	}
	tenantID := NewTenantID()
	if !strings.HasPrefix(tenantID, "t") || len(tenantID) != 13 {
		t.Errorf("NewTenantID() = %q, want t-prefixed 13-char id", tenantID)
	}

	if NewCellID() == NewCellID() {
		t.Error("consecutive ids must differ")
	}
}

func TestSpareCapacity(t *testing.T) {
	tests := []struct {
		max, used, want int
	}{
		{10, 0, 10},
		{10, 4, 6},
		{10, 10, 0},
		{10, 12, 0}, // over-utilization floors at zero
	}
	for _, tt := range tests {
		c := &Cell{MaxCapacity: tt.max, Utilization: tt.used}
		if got := c.SpareCapacity(); got != tt.want {
			t.Errorf("SpareCapacity(%d/%d) = %d, want %d", tt.used, tt.max, got, tt.want)
		}
	}
}
