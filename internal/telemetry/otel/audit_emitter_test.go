package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"auth-service/internal/audit/domain"
)

type recordCapture struct {
	rec   otellog.Record
	count int
}

func (r *recordCapture) Emit(_ context.Context, rec otellog.Record) {
	r.rec = rec
	r.count++
}

func TestNewAuditEmitter_NilProvider(t *testing.T) {
	em := NewAuditEmitter(nil)
	if err := em.Emit(context.Background(), &domain.AuditLog{Action: "login"}); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestNewAuditEmitter_RealProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewAuditEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(nil): %v", err)
	}
	if err := em.Emit(context.Background(), &domain.AuditLog{Action: "logout"}); err != nil {
		t.Errorf("Emit: %v", err)
	}
}

func TestAuditEmitter_AttributeMapping(t *testing.T) {
	capture := &recordCapture{}
	em := &auditEmitter{logger: capture}
	at := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	err := em.Emit(context.Background(), &domain.AuditLog{
		IdentityID: "id-1",
		Action:     "refresh_replay",
		IP:         "10.0.0.1",
		Metadata:   map[string]string{"credential_id": "c-1"},
		CreatedAt:  at,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if capture.count != 1 {
		t.Fatalf("records = %d, want 1", capture.count)
	}
	rec := capture.rec
	if !rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), at)
	}
	if rec.Body().AsString() != "refresh_replay" {
		t.Errorf("body = %q", rec.Body().AsString())
	}
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"audit.action": "refresh_replay", "identity_id": "id-1",
		"client_ip": "10.0.0.1", "meta.credential_id": "c-1",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestAuditEmitter_ZeroTimestamp(t *testing.T) {
	capture := &recordCapture{}
	em := &auditEmitter{logger: capture}
	before := time.Now().UTC()
	_ = em.Emit(context.Background(), &domain.AuditLog{Action: "login"})
	if capture.rec.Timestamp().Before(before) {
		t.Error("zero CreatedAt should be replaced with the current time")
	}
}
