package health

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"auth-service/internal/logger"
)

// ServiceName is the grpc.health.v1 service name reported alongside "".
const ServiceName = "auth-service"

// NewGRPCServer returns a gRPC server exposing grpc.health.v1 and the health
// server backing it. Status starts NOT_SERVING until Monitor runs a probe.
func NewGRPCServer() (*grpc.Server, *grpchealth.Server) {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

// Monitor probes checker every interval and mirrors the result into hs until
// ctx is done, then marks everything NOT_SERVING.
func Monitor(ctx context.Context, hs *grpchealth.Server, checker *Checker, interval time.Duration, log *logger.Logger) {
	if log == nil {
		log = logger.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if _, err := checker.Ready(probeCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if last != status {
				log.Warn("health: not ready", "error", err)
			}
		}
		if status != last {
			hs.SetServingStatus("", status)
			hs.SetServingStatus(ServiceName, status)
			last = status
		}
	}

	probe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			probe()
		}
	}
}
