package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"auth-service/internal/audit"
	"auth-service/internal/audit/domain"
)

const instrumentationName = "auth-service"

type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewAuditEmitter returns an audit.Emitter that mirrors audit entries as OTel
// log records. A nil provider yields a no-op emitter.
func NewAuditEmitter(provider *sdklog.LoggerProvider) audit.Emitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &auditEmitter{logger: provider.Logger(instrumentationName + "/audit")}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.AuditLog) error { return nil }

type auditEmitter struct {
	logger recordEmitter
}

// Emit converts entry into a log record. Metadata values become attributes
// prefixed with "meta.".
func (e *auditEmitter) Emit(ctx context.Context, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(entry.Action))
	rec.AddAttributes(otellog.String("audit.action", entry.Action))
	if entry.IdentityID != "" {
		rec.AddAttributes(otellog.String("identity_id", entry.IdentityID))
	}
	if entry.IP != "" {
		rec.AddAttributes(otellog.String("client_ip", entry.IP))
	}
	for k, v := range entry.Metadata {
		rec.AddAttributes(otellog.String("meta."+k, v))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
