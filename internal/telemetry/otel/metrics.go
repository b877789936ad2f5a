package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// AuthMetrics counts authentication outcomes. It satisfies the refresh
// ledger's Metrics interface.
type AuthMetrics struct {
	logins    otelmetric.Int64Counter
	rotations otelmetric.Int64Counter
	swept     otelmetric.Int64Counter
}

// NewAuthMetrics registers the counters on provider.
func NewAuthMetrics(provider otelmetric.MeterProvider) (*AuthMetrics, error) {
	meter := provider.Meter(instrumentationName)
	logins, err := meter.Int64Counter("auth.logins",
		otelmetric.WithDescription("Login attempts by method and outcome"))
	if err != nil {
		return nil, err
	}
	rotations, err := meter.Int64Counter("auth.refresh.rotations",
		otelmetric.WithDescription("Refresh credential rotations by outcome"))
	if err != nil {
		return nil, err
	}
	swept, err := meter.Int64Counter("auth.refresh.swept",
		otelmetric.WithDescription("Expired refresh credentials deleted"))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{logins: logins, rotations: rotations, swept: swept}, nil
}

// Login records one login attempt. method is "password" or a provider name.
func (m *AuthMetrics) Login(ctx context.Context, method, outcome string) {
	m.logins.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}

// Rotation records one rotation attempt.
func (m *AuthMetrics) Rotation(ctx context.Context, outcome string) {
	m.rotations.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

// Swept records a sweep.
func (m *AuthMetrics) Swept(ctx context.Context, n int64) {
	if n > 0 {
		m.swept.Add(ctx, n)
	}
}
