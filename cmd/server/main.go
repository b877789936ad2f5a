// Server runs the REST API and the gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"auth-service/internal/app"
	"auth-service/internal/config"
	"auth-service/internal/health"
	"auth-service/internal/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}
	log, err := logger.New(logMode(cfg))
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer log.Sync()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn("close", "error", err)
		}
	}()

	var wg sync.WaitGroup
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http serve", "error", err)
			stop()
		}
	}()

	var grpcStop func()
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			log.Fatal("grpc health listen", "addr", cfg.GRPCHealthAddr, "error", err)
		}
		gs, hs := health.NewGRPCServer()
		wg.Add(2)
		go func() {
			defer wg.Done()
			health.Monitor(ctx, hs, a.Health, 10*time.Second, log)
		}()
		go func() {
			defer wg.Done()
			log.Info("grpc health listening", "addr", cfg.GRPCHealthAddr)
			if err := gs.Serve(lis); err != nil {
				log.Error("grpc serve", "error", err)
			}
		}()
		grpcStop = gs.GracefulStop
	}

	if cfg.SweepInProcess {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Sweeper.Run(ctx)
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if grpcStop != nil {
		grpcStop()
	}
	wg.Wait()
}

func logMode(cfg *config.Config) string {
	if cfg.LogMode != "" {
		return cfg.LogMode
	}
	if cfg.IsProduction() {
		return "production"
	}
	return "development"
}
