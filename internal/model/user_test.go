package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleUser, RoleUser, true},
		// Unknown roles fail-closed.
		{"unknown", RoleUser, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleUser, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestIdentityIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want bool
	}{
		{"resolved admin", Identity{UserID: 1, Role: RoleAdmin, RoleResolved: true}, true},
		{"unresolved admin", Identity{UserID: 1, Role: RoleAdmin}, false},
		{"resolved user", Identity{UserID: 1, Role: RoleUser, RoleResolved: true}, false},
		{"anonymous", Identity{}, false},
	}

	for _, tt := range tests {
		if got := tt.id.IsAdmin(); got != tt.want {
			t.Errorf("%s: IsAdmin() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEffectiveStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"", StatusPending},
		{StatusPending, StatusPending},
		{StatusApproved, StatusApproved},
		{StatusRejected, StatusRejected},
	}

	for _, tt := range tests {
		l := Listing{Status: tt.status}
		if got := l.EffectiveStatus(); got != tt.want {
			t.Errorf("EffectiveStatus(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		if !ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = false, want true", c)
		}
	}
	for _, c := range []string{"", "All", "food", "Toys"} {
		if ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = true, want false", c)
		}
	}
}
