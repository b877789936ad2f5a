package events

import (
	"context"
	"sync"

	"auth-service/internal/logger"
)

// LogPublisher logs events instead of delivering them. Used when no broker is configured.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher returns a publisher that writes events to log.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) IdentityRegistered(_ context.Context, e IdentityRegistered) error {
	p.log.Info("event", "type", TypeIdentityRegistered, "identity_id", e.ID, "email", e.Email, "occurred_at", e.OccurredAt)
	return nil
}

func (p *LogPublisher) IdentityDeleted(_ context.Context, e IdentityDeleted) error {
	p.log.Info("event", "type", TypeIdentityDeleted, "identity_id", e.ID, "occurred_at", e.OccurredAt)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory. Err, when set, is returned
// from every publish after recording.
type Recorder struct {
	mu         sync.Mutex
	Registered []IdentityRegistered
	Deleted    []IdentityDeleted
	Err        error
}

func (r *Recorder) IdentityRegistered(_ context.Context, e IdentityRegistered) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Registered = append(r.Registered, e)
	return r.Err
}

func (r *Recorder) IdentityDeleted(_ context.Context, e IdentityDeleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, e)
	return r.Err
}

func (r *Recorder) Close() error { return nil }

// Snapshot returns copies of the recorded events.
func (r *Recorder) Snapshot() ([]IdentityRegistered, []IdentityDeleted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]IdentityRegistered(nil), r.Registered...), append([]IdentityDeleted(nil), r.Deleted...)
}

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*Recorder)(nil)
)
