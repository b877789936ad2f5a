// Package verification issues and consumes single-use email proofs and
// delivers them as links.
package verification

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"auth-service/internal/identity/domain"
	"auth-service/internal/identity/repository"
	"auth-service/internal/mail"
	"auth-service/internal/platform/autherr"
	"auth-service/internal/security"
)

// DefaultTTL is the lifetime of a proof.
const DefaultTTL = 24 * time.Hour

// Ledger stores proofs as hashes on the identity record. Issuing a proof
// replaces any earlier one.
type Ledger struct {
	repo      repository.Repository
	mailer    mail.Mailer
	publicURL string
	ttl       time.Duration
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(l *Ledger) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// NewLedger returns a Ledger that sends links rooted at publicURL through mailer.
func NewLedger(repo repository.Repository, mailer mail.Mailer, publicURL string, opts ...Option) *Ledger {
	l := &Ledger{
		repo:      repo,
		mailer:    mailer,
		publicURL: strings.TrimRight(publicURL, "/"),
		ttl:       DefaultTTL,
		now:       time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Issue mints a proof for the identity and stores its hash. The raw value is returned once.
func (l *Ledger) Issue(ctx context.Context, i *domain.Identity) (string, error) {
	raw, err := security.GenerateSecret()
	if err != nil {
		return "", fmt.Errorf("generate proof: %w", err)
	}
	now := l.now().UTC()
	if err := l.repo.SetVerificationProof(ctx, i.ID, security.HashSecret(raw), now.Add(l.ttl), now); err != nil {
		return "", fmt.Errorf("store proof: %w", err)
	}
	return raw, nil
}

// Consume verifies the identity holding raw. Unknown or already used proofs
// fail with ErrInvalidProof, stale ones with ErrExpiredProof.
func (l *Ledger) Consume(ctx context.Context, raw string) (*domain.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, autherr.ErrInvalidProof
	}
	now := l.now().UTC()
	hash := security.HashSecret(raw)
	i, err := l.repo.GetByVerificationHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("lookup proof: %w", err)
	}
	if i == nil {
		return nil, autherr.ErrInvalidProof
	}
	if i.VerificationExpiresAt == nil || !now.Before(*i.VerificationExpiresAt) {
		return nil, autherr.ErrExpiredProof
	}
	ok, err := l.repo.ConsumeVerificationProof(ctx, i.ID, hash, now)
	if err != nil {
		return nil, fmt.Errorf("consume proof: %w", err)
	}
	if !ok {
		// Replaced or consumed since the lookup.
		return nil, autherr.ErrInvalidProof
	}
	i.EmailVerified = true
	i.VerificationTokenHash = ""
	i.VerificationExpiresAt = nil
	i.UpdatedAt = now
	return i, nil
}

// Send mails the verification link for raw to the identity.
func (l *Ledger) Send(ctx context.Context, i *domain.Identity, raw string) error {
	return l.mailer.Send(ctx, mail.Message{
		To:      i.Email,
		Subject: "Confirm your email address",
		Body: "Open the link below to confirm your email address. It expires in " +
			l.ttl.String() + ".\n\n" + l.Link(raw) + "\n",
	})
}

// Link is the page a user opens to verify.
func (l *Ledger) Link(raw string) string {
	return l.publicURL + "/verify-email?token=" + url.QueryEscape(raw)
}

// TTL returns the proof lifetime.
func (l *Ledger) TTL() time.Duration { return l.ttl }
