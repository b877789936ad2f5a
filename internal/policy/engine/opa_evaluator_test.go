package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e, err := NewOPAEvaluator("", nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	e, err := NewOPAEvaluator("", nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	tests := []struct {
		name       string
		in         AdmissionInput
		wantAllow  bool
		wantReason string
	}{
		{"unverified local gated", AdmissionInput{Provider: "LOCAL", RequireEmailVerification: true}, false, ReasonEmailNotVerified},
		{"verified local", AdmissionInput{Provider: "LOCAL", EmailVerified: true, RequireEmailVerification: true}, true, ""},
		{"gating off", AdmissionInput{Provider: "LOCAL", RequireEmailVerification: false}, true, ""},
		{"external", AdmissionInput{Provider: "EXTERNAL", RequireEmailVerification: true}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EvaluateAdmission(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("EvaluateAdmission: %v", err)
			}
			if got.Allow != tt.wantAllow || got.Reason != tt.wantReason {
				t.Errorf("got %+v, want allow=%v reason=%q", got, tt.wantAllow, tt.wantReason)
			}
		})
	}
}

func TestOPAEvaluator_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAEvaluator("package broken\nallow if {", nil); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestOPAEvaluator_NonBooleanFallsBack(t *testing.T) {
	e, err := NewOPAEvaluator("package authsvc.login\n\nallow := \"yes\"\n", nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	got, err := e.EvaluateAdmission(context.Background(), AdmissionInput{Provider: "LOCAL", RequireEmailVerification: true})
	if err != nil {
		t.Fatalf("EvaluateAdmission: %v", err)
	}
	if got.Allow || got.Reason != ReasonEmailNotVerified {
		t.Errorf("fallback = %+v, want built-in deny", got)
	}
}

func TestNewOPAEvaluatorFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.rego")
	policy := "package authsvc.login\n\ndefault allow := true\n"
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := NewOPAEvaluatorFromFile(path, nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluatorFromFile: %v", err)
	}
	got, _ := e.EvaluateAdmission(context.Background(), AdmissionInput{Provider: "LOCAL", RequireEmailVerification: true})
	if !got.Allow {
		t.Error("custom policy should admit")
	}
	if _, err := NewOPAEvaluatorFromFile(filepath.Join(t.TempDir(), "missing.rego"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}
