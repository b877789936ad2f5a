// Package health reports liveness and readiness over HTTP and the standard
// gRPC health protocol.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is satisfied by the OPA evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check is one named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Checker runs readiness probes. A Checker with no probes is always ready.
type Checker struct {
	mu     sync.RWMutex
	checks []Check
}

// NewChecker returns a Checker over db and policy; either may be nil.
func NewChecker(db Pinger, policy PolicyChecker) *Checker {
	c := &Checker{}
	if db != nil {
		c.Add("database", db.PingContext)
	}
	if policy != nil {
		c.Add("policy", policy.HealthCheck)
	}
	return c
}

// Add registers another probe.
func (c *Checker) Add(name string, fn func(ctx context.Context) error) *Checker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, Check{Name: name, Fn: fn})
	return c
}

// Ready runs every probe and returns a per-probe status ("ok" or the error
// text) plus a joined error when any probe failed.
func (c *Checker) Ready(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	checks := append([]Check(nil), c.checks...)
	c.mu.RUnlock()

	report := make(map[string]string, len(checks))
	var errs []error
	for _, chk := range checks {
		if err := chk.Fn(ctx); err != nil {
			report[chk.Name] = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", chk.Name, err))
			continue
		}
		report[chk.Name] = "ok"
	}
	return report, errors.Join(errs...)
}
