// Worker deletes expired refresh credentials every SWEEP_INTERVAL. With
// REDIS_ADDR set, replicas share a lease so one of them sweeps per interval.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth-service/internal/app"
	"auth-service/internal/config"
	"auth-service/internal/logger"
	"auth-service/internal/platform/throttle"
	refreshsvc "auth-service/internal/refreshtoken/service"
	"auth-service/internal/sweeper"
	telemetry "auth-service/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}
	mode := cfg.LogMode
	if mode == "" && cfg.IsProduction() {
		mode = "production"
	}
	log, err := logger.New(mode)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer log.Sync()
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required; in-memory stores are per-process, use SWEEP_IN_PROCESS instead")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.NewProviders(ctx, cfg.OTelEndpoint, cfg.OTelServiceName+"-worker", false, log)
	if err != nil {
		log.Fatal("worker: telemetry", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	metrics, err := telemetry.NewAuthMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatal("worker: metrics", "error", err)
	}

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("worker: stores", "error", err)
	}
	defer stores.Close()

	var lease throttle.Limiter
	if cfg.RedisAddr != "" {
		r, err := throttle.NewRedisLimiter(ctx, cfg.RedisAddr, cfg.RedisPassword, app.RedisKeyPrefix)
		if err != nil {
			log.Fatal("worker: redis", "error", err)
		}
		defer r.Close()
		lease = r
	}

	ledger := refreshsvc.NewLedger(stores.Credentials,
		refreshsvc.Config{TTL: cfg.RefreshTTL(), ReuseGrace: cfg.ReuseGrace()},
		refreshsvc.WithMetrics(metrics),
		refreshsvc.WithLogger(log.With("component", "ledger")),
	)
	sweeper.New(ledger, lease, cfg.SweepEvery(), log).Run(ctx)
}
