package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com":      "alice@example.com",
		"  Alice@Example.COM \t": "alice@example.com",
		"\nBOB@EXAMPLE.COM":      "bob@example.com",
	}
	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoles(t *testing.T) {
	if got := JoinRoles([]string{"USER", "ADMIN"}); got != "USER,ADMIN" {
		t.Errorf("JoinRoles = %q", got)
	}
	if got := SplitRoles(" USER, ,ADMIN "); !reflect.DeepEqual(got, []string{"USER", "ADMIN"}) {
		t.Errorf("SplitRoles = %v", got)
	}
	if got := SplitRoles(""); got != nil {
		t.Errorf("SplitRoles empty = %v", got)
	}
}

func TestHasPendingProof(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)
	tests := []struct {
		name string
		id   Identity
		want bool
	}{
		{"none", Identity{}, false},
		{"pending", Identity{VerificationTokenHash: "h", VerificationExpiresAt: &later}, true},
		{"expired", Identity{VerificationTokenHash: "h", VerificationExpiresAt: &earlier}, false},
		{"hash without expiry", Identity{VerificationTokenHash: "h"}, false},
	}
	for _, tc := range tests {
		if got := tc.id.HasPendingProof(now); got != tc.want {
			t.Errorf("%s: HasPendingProof = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestProvider(t *testing.T) {
	local := Identity{Provider: Local}
	google := Identity{Provider: External("google")}
	if !local.IsLocal() || google.IsLocal() {
		t.Error("IsLocal misreports provider kind")
	}
	if google.Provider != External("google") || google.Provider == External("github") {
		t.Error("providers should compare by kind and name")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct{ name, email, want string }{
		{"  Alice Liddell ", "alice@example.com", "Alice Liddell"},
		{"", "jane.doe@example.com", "Jane Doe"},
		{"", "JOHN_smith-jr@example.com", "John Smith Jr"},
		{" ", "...@example.com", "User"},
		{"", "", "User"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.name, tt.email); got != tt.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.name, tt.email, got, tt.want)
		}
	}
}
