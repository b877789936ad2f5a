package domain

import (
	"testing"
	"time"
)

func TestRefreshCredential_States(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	revoked := now.Add(-time.Minute)

	tests := []struct {
		name    string
		c       RefreshCredential
		active  bool
		expired bool
		rotated bool
	}{
		{"active", RefreshCredential{ExpiresAt: now.Add(time.Hour)}, true, false, false},
		{"expires exactly now", RefreshCredential{ExpiresAt: now}, false, true, false},
		{"expired", RefreshCredential{ExpiresAt: now.Add(-time.Second)}, false, true, false},
		{"revoked by logout", RefreshCredential{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}, false, false, false},
		{"rotated", RefreshCredential{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked, ReplacedByHash: "abc"}, false, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.IsActive(now); got != tc.active {
				t.Errorf("IsActive = %v, want %v", got, tc.active)
			}
			if got := tc.c.IsExpired(now); got != tc.expired {
				t.Errorf("IsExpired = %v, want %v", got, tc.expired)
			}
			if got := tc.c.WasRotated(); got != tc.rotated {
				t.Errorf("WasRotated = %v, want %v", got, tc.rotated)
			}
		})
	}
}
