// Package sweeper periodically deletes expired refresh credentials.
package sweeper

import (
	"context"
	"time"

	"auth-service/internal/logger"
	"auth-service/internal/platform/throttle"
)

const leaseKey = "sweep:refresh-credentials"

// Store is the part of the refresh ledger the sweeper drives.
type Store interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper runs Store.SweepExpired every interval. With a shared lease
// (Redis) only one replica sweeps per interval.
type Sweeper struct {
	store    Store
	lease    throttle.Limiter
	interval time.Duration
	log      *logger.Logger
}

// New returns a Sweeper. A nil lease sweeps on every tick.
func New(store Store, lease throttle.Limiter, interval time.Duration, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: store, lease: lease, interval: interval, log: log.With("component", "sweeper")}
}

// RunOnce sweeps if the lease is free. It reports whether this call swept.
func (s *Sweeper) RunOnce(ctx context.Context) (bool, int64, error) {
	if s.lease != nil {
		// Slightly shorter than the interval so the holder's next tick finds it free.
		ok, err := s.lease.Allow(ctx, leaseKey, s.interval*9/10)
		if err != nil {
			s.log.Warn("sweep lease unavailable, sweeping anyway", "error", err)
		} else if !ok {
			return false, 0, nil
		}
	}
	n, err := s.store.SweepExpired(ctx)
	if err != nil {
		return true, 0, err
	}
	return true, n, nil
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("sweeper started", "interval", s.interval.String())
	tick := func() {
		swept, n, err := s.RunOnce(ctx)
		switch {
		case err != nil:
			s.log.Error("sweep failed", "error", err)
		case swept:
			s.log.Info("swept expired refresh credentials", "deleted", n)
		default:
			s.log.Debug("sweep skipped, lease held elsewhere")
		}
	}

	tick()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			tick()
		}
	}
}
