// Package service implements the refresh credential ledger: issue, rotate
// with replay detection, revoke, revoke-all and sweep.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/audit"
	"auth-service/internal/logger"
	"auth-service/internal/platform/autherr"
	"auth-service/internal/refreshtoken/domain"
	"auth-service/internal/refreshtoken/repository"
	"auth-service/internal/security"
)

// Rotation outcomes reported to Metrics.
const (
	OutcomeRotated = "rotated"
	OutcomeInvalid = "invalid"
	OutcomeReplay  = "replay"
)

// Metrics records ledger outcomes.
type Metrics interface {
	Rotation(ctx context.Context, outcome string)
	Swept(ctx context.Context, n int64)
}

// Issued is a freshly minted refresh credential. Raw is handed to the client
// once and is never stored or logged.
type Issued struct {
	Raw        string
	IdentityID string
	ExpiresAt  time.Time
}

// Config holds ledger settings.
type Config struct {
	// TTL is the lifetime of each refresh credential.
	TTL time.Duration
	// ReuseGrace is how long after a rotation the rotated-away credential may
	// be re-presented without tearing down the identity's other credentials.
	// A concurrent rotation that loses the race lands in this window.
	ReuseGrace time.Duration
}

// Ledger owns the refresh credential lifecycle. Every operation reads the
// clock once and uses that instant for all of its comparisons and writes.
type Ledger struct {
	repo    repository.Repository
	cfg     Config
	audit   audit.AuditLogger
	metrics Metrics
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithAudit records replay detections.
func WithAudit(a audit.AuditLogger) Option { return func(l *Ledger) { l.audit = a } }

// WithMetrics records rotation and sweep outcomes.
func WithMetrics(m Metrics) Option { return func(l *Ledger) { l.metrics = m } }

// WithLogger sets the logger; defaults to a no-op logger.
func WithLogger(log *logger.Logger) Option { return func(l *Ledger) { l.log = log } }

// NewLedger returns a Ledger over repo.
func NewLedger(repo repository.Repository, cfg Config, opts ...Option) *Ledger {
	l := &Ledger{repo: repo, cfg: cfg, now: time.Now, log: logger.NewNop()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Issue creates a new refresh credential for identityID.
func (l *Ledger) Issue(ctx context.Context, identityID string) (*Issued, error) {
	now := l.now().UTC()
	raw, c, err := l.mint(now)
	if err != nil {
		return nil, err
	}
	c.IdentityID = identityID
	if err := l.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("store refresh credential: %w", err)
	}
	return &Issued{Raw: raw, IdentityID: identityID, ExpiresAt: c.ExpiresAt}, nil
}

// Rotate exchanges an active credential for a new one. Absent, expired and
// revoked credentials all fail with autherr.ErrInvalidCredential. A revoked
// credential additionally revokes every active credential of its identity,
// unless it was rotated away less than ReuseGrace ago.
func (l *Ledger) Rotate(ctx context.Context, raw string) (*Issued, error) {
	if raw == "" {
		l.record(ctx, OutcomeInvalid)
		return nil, autherr.ErrInvalidCredential
	}
	now := l.now().UTC()
	nextRaw, next, err := l.mint(now)
	if err != nil {
		return nil, err
	}

	old, outcome, err := l.repo.Rotate(ctx, security.HashSecret(raw), next, now)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh credential: %w", err)
	}
	switch outcome {
	case repository.RotateDone:
		l.record(ctx, OutcomeRotated)
		return &Issued{Raw: nextRaw, IdentityID: next.IdentityID, ExpiresAt: next.ExpiresAt}, nil
	case repository.RotateNotFound:
		l.record(ctx, OutcomeInvalid)
		return nil, autherr.ErrInvalidCredential
	}

	// Inactive. Expiry alone is not evidence of theft.
	if old.RevokedAt == nil || l.withinGrace(old, now) {
		l.record(ctx, OutcomeInvalid)
		return nil, autherr.ErrInvalidCredential
	}
	l.record(ctx, OutcomeReplay)
	n, err := l.repo.RevokeAllByIdentity(ctx, old.IdentityID, now)
	if err != nil {
		return nil, fmt.Errorf("revoke chain after replay: %w", err)
	}
	l.log.Warn("refresh credential replay detected", "identity_id", old.IdentityID, "credential_id", old.ID, "revoked", n)
	if l.audit != nil {
		l.audit.LogEvent(ctx, old.IdentityID, audit.ActionRefreshReplay, map[string]string{
			"credential_id": old.ID,
			"revoked":       fmt.Sprint(n),
		})
	}
	return nil, autherr.ErrInvalidCredential
}

// Revoke marks the presented credential revoked. Empty, unknown and already
// revoked values are not errors.
func (l *Ledger) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	if err := l.repo.RevokeByHash(ctx, security.HashSecret(raw), l.now().UTC()); err != nil {
		return fmt.Errorf("revoke refresh credential: %w", err)
	}
	return nil
}

// Lookup returns the identity that owns an active credential, without
// rotating it. Inactive and unknown credentials yield ErrInvalidCredential.
func (l *Ledger) Lookup(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", autherr.ErrInvalidCredential
	}
	c, err := l.repo.GetByHash(ctx, security.HashSecret(raw))
	if err != nil {
		return "", fmt.Errorf("load refresh credential: %w", err)
	}
	if c == nil || !c.IsActive(l.now().UTC()) {
		return "", autherr.ErrInvalidCredential
	}
	return c.IdentityID, nil
}

// RevokeAll revokes every active credential of identityID and returns how many were revoked.
func (l *Ledger) RevokeAll(ctx context.Context, identityID string) (int64, error) {
	n, err := l.repo.RevokeAllByIdentity(ctx, identityID, l.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoke all refresh credentials: %w", err)
	}
	return n, nil
}

// SweepExpired hard-deletes credentials whose expiry has passed, revoked or not.
func (l *Ledger) SweepExpired(ctx context.Context) (int64, error) {
	n, err := l.repo.DeleteExpired(ctx, l.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep expired refresh credentials: %w", err)
	}
	if l.metrics != nil {
		l.metrics.Swept(ctx, n)
	}
	return n, nil
}

// ActiveCount returns the number of active credentials for identityID.
func (l *Ledger) ActiveCount(ctx context.Context, identityID string) (int, error) {
	return l.repo.CountActiveByIdentity(ctx, identityID, l.now().UTC())
}

// TTL returns the configured credential lifetime.
func (l *Ledger) TTL() time.Duration { return l.cfg.TTL }

// Now returns the ledger's clock reading, for callers computing cookie Max-Age.
func (l *Ledger) Now() time.Time { return l.now().UTC() }

func (l *Ledger) mint(now time.Time) (string, *domain.RefreshCredential, error) {
	raw, err := security.GenerateSecret()
	if err != nil {
		return "", nil, err
	}
	return raw, &domain.RefreshCredential{
		ID:        uuid.New().String(),
		TokenHash: security.HashSecret(raw),
		ExpiresAt: now.Add(l.cfg.TTL),
		CreatedAt: now,
	}, nil
}

func (l *Ledger) withinGrace(c *domain.RefreshCredential, now time.Time) bool {
	if l.cfg.ReuseGrace <= 0 || !c.WasRotated() {
		return false
	}
	return now.Sub(*c.RevokedAt) < l.cfg.ReuseGrace
}

func (l *Ledger) record(ctx context.Context, outcome string) {
	if l.metrics != nil {
		l.metrics.Rotation(ctx, outcome)
	}
}
