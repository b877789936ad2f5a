// Package service composes the identity store, credential ledgers, token
// codec and external verifiers into the public authentication flows.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/audit"
	"auth-service/internal/events"
	"auth-service/internal/external"
	"auth-service/internal/identity/domain"
	"auth-service/internal/identity/repository"
	"auth-service/internal/logger"
	"auth-service/internal/platform/autherr"
	"auth-service/internal/platform/throttle"
	"auth-service/internal/policy/engine"
	refreshsvc "auth-service/internal/refreshtoken/service"
	"auth-service/internal/security"
	"auth-service/internal/verification"
)

const defaultEventTimeout = 5 * time.Second

// Login outcomes reported to LoginMetrics.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// AuthResult is the outcome of a flow that may start a session. When
// VerificationPending is set no tokens are issued.
type AuthResult struct {
	IdentityID          string
	AccessToken         string
	ExpiresIn           int64
	RefreshToken        string
	RefreshExpiresAt    time.Time
	VerificationPending bool
}

// HasSession reports whether the result carries tokens.
func (r *AuthResult) HasSession() bool { return r.RefreshToken != "" }

// LoginMetrics counts login attempts by method and outcome.
type LoginMetrics interface {
	Login(ctx context.Context, method, outcome string)
}

// Config holds flow settings.
type Config struct {
	// RequireEmailVerification withholds tokens from unverified local identities.
	RequireEmailVerification bool
	MinPasswordLength        int
	// ResendCooldown is the minimum gap between verification mails to one address.
	ResendCooldown time.Duration
	// EventTimeout bounds each event publish.
	EventTimeout time.Duration
}

// Deps are the collaborators of AuthService. Audit, Metrics, Limiter and Log may be nil.
type Deps struct {
	Identities  repository.Repository
	Hasher      *security.Hasher
	Tokens      *security.TokenCodec
	Credentials *refreshsvc.Ledger
	Proofs      *verification.Ledger
	External    *external.Registry
	Policy      engine.Evaluator
	Events      events.Publisher
	Limiter     throttle.Limiter
	Audit       audit.AuditLogger
	Metrics     LoginMetrics
	Log         *logger.Logger
}

// AuthService implements register, login, external login, refresh, logout,
// email verification, password change and account deletion.
type AuthService struct {
	deps Deps
	cfg  Config
	now  func() time.Time
}

// NewAuthService returns an AuthService over deps.
func NewAuthService(deps Deps, cfg Config) *AuthService {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Limiter == nil {
		deps.Limiter = throttle.NewMemoryLimiter()
	}
	if deps.External == nil {
		deps.External = external.NewRegistry()
	}
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = 8
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = defaultEventTimeout
	}
	return &AuthService{deps: deps, cfg: cfg, now: time.Now}
}

// Register creates a LOCAL identity, sends an email proof and announces the
// identity. Tokens are issued only when verification is not required.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password, s.cfg.MinPasswordLength); err != nil {
		return nil, err
	}
	existing, err := s.deps.Identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if existing != nil {
		return nil, autherr.ErrDuplicateEmail
	}
	hash, err := s.deps.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	ident := &domain.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Provider:     domain.Local,
		Roles:        []string{domain.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The unique email constraint settles concurrent registrations.
	if err := s.deps.Identities.Create(ctx, ident); err != nil {
		if errors.Is(err, autherr.ErrDuplicateEmail) {
			return nil, autherr.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	s.sendProof(ctx, ident)
	s.publishRegistered(ctx, ident, domain.DisplayName(displayName, email))
	s.audit(ctx, ident.ID, audit.ActionRegister, nil)

	if s.cfg.RequireEmailVerification {
		return &AuthResult{IdentityID: ident.ID, VerificationPending: true}, nil
	}
	return s.startSession(ctx, ident)
}

// Login authenticates a LOCAL identity by password. Unknown email, external
// identity and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	ident, err := s.deps.Identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if ident == nil || !ident.IsLocal() {
		s.deps.Hasher.Waste(password)
		s.loginMetric(ctx, "password", LoginFailure)
		return nil, autherr.ErrBadCredentials
	}
	ok, err := s.deps.Hasher.Verify(password, ident.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password for %s: %w", ident.ID, err)
	}
	if !ok {
		s.loginMetric(ctx, "password", LoginFailure)
		s.audit(ctx, ident.ID, audit.ActionLoginFailed, nil)
		return nil, autherr.ErrBadCredentials
	}
	if err := s.admit(ctx, ident); err != nil {
		s.loginMetric(ctx, "password", LoginFailure)
		return nil, err
	}
	res, err := s.startSession(ctx, ident)
	if err != nil {
		return nil, err
	}
	s.loginMetric(ctx, "password", LoginSuccess)
	s.audit(ctx, ident.ID, audit.ActionLogin, nil)
	return res, nil
}

// ExternalLogin verifies a third-party identity token and signs in the
// matching EXTERNAL identity, creating it on first use. An email already
// held under another provider is a conflict.
func (s *AuthService) ExternalLogin(ctx context.Context, provider, idToken, displayName string) (*AuthResult, error) {
	verifier, err := s.deps.External.Get(provider)
	if err != nil {
		return nil, err
	}
	claims, err := verifier.Verify(ctx, idToken)
	if err != nil {
		s.loginMetric(ctx, verifier.Name(), LoginFailure)
		return nil, err
	}
	email := domain.NormalizeEmail(claims.Email)
	if err := validateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: unusable email claim", autherr.ErrInvalidExternalToken)
	}

	ident, created, err := s.resolveExternal(ctx, verifier.Name(), email, claims)
	if err != nil {
		s.loginMetric(ctx, verifier.Name(), LoginFailure)
		return nil, err
	}
	if created {
		name := displayName
		if name == "" {
			name = claims.Name
		}
		s.publishRegistered(ctx, ident, domain.DisplayName(name, email))
	}
	if err := s.admit(ctx, ident); err != nil {
		return nil, err
	}
	res, err := s.startSession(ctx, ident)
	if err != nil {
		return nil, err
	}
	s.loginMetric(ctx, verifier.Name(), LoginSuccess)
	s.audit(ctx, ident.ID, audit.ActionExternalLogin, map[string]string{
		"provider": verifier.Name(),
		"created":  fmt.Sprint(created),
	})
	return res, nil
}

func (s *AuthService) resolveExternal(ctx context.Context, provider, email string, claims *external.Claims) (*domain.Identity, bool, error) {
	existing, err := s.deps.Identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("lookup identity: %w", err)
	}
	if existing != nil {
		if existing.Provider != domain.External(provider) {
			return nil, false, autherr.ErrDuplicateEmail
		}
		return existing, false, nil
	}

	placeholder, err := s.deps.Hasher.PlaceholderHash()
	if err != nil {
		return nil, false, err
	}
	now := s.now().UTC()
	ident := &domain.Identity{
		ID:            uuid.New().String(),
		Email:         email,
		PasswordHash:  placeholder,
		Provider:      domain.External(provider),
		Roles:         []string{domain.RoleUser},
		EmailVerified: claims.EmailVerified != nil && *claims.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.deps.Identities.Create(ctx, ident)
	if err == nil {
		return ident, true, nil
	}
	if !errors.Is(err, autherr.ErrDuplicateEmail) {
		return nil, false, fmt.Errorf("create identity: %w", err)
	}
	// Lost a race with a concurrent first login; use the winner if it is ours.
	winner, err := s.deps.Identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("lookup identity: %w", err)
	}
	if winner == nil || winner.Provider != domain.External(provider) {
		return nil, false, autherr.ErrDuplicateEmail
	}
	return winner, false, nil
}

// Refresh rotates the presented refresh credential and mints an access token
// for its identity.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*AuthResult, error) {
	issued, err := s.deps.Credentials.Rotate(ctx, rawRefresh)
	if err != nil {
		return nil, err
	}
	ident, err := s.deps.Identities.GetByID(ctx, issued.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if ident == nil {
		_ = s.deps.Credentials.Revoke(ctx, issued.Raw)
		return nil, autherr.ErrInvalidCredential
	}
	access, expiresIn, err := s.deps.Tokens.IssueAccessToken(ident.ID, ident.Email, ident.Roles)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		IdentityID:       ident.ID,
		AccessToken:      access,
		ExpiresIn:        expiresIn,
		RefreshToken:     issued.Raw,
		RefreshExpiresAt: issued.ExpiresAt,
	}, nil
}

// Logout revokes the presented refresh credential. Missing, unknown and
// already revoked credentials succeed.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	identityID, lookupErr := s.deps.Credentials.Lookup(ctx, rawRefresh)
	if err := s.deps.Credentials.Revoke(ctx, rawRefresh); err != nil {
		return err
	}
	if lookupErr == nil {
		s.audit(ctx, identityID, audit.ActionLogout, nil)
	}
	return nil
}

// ChangePassword replaces the password of a LOCAL identity and revokes all
// of its refresh credentials.
func (s *AuthService) ChangePassword(ctx context.Context, identityID, currentPassword, newPassword string) error {
	ident, err := s.identity(ctx, identityID)
	if err != nil {
		return err
	}
	if !ident.IsLocal() {
		return autherr.ErrPasswordChangeNotAllowed
	}
	if err := validatePassword(newPassword, s.cfg.MinPasswordLength); err != nil {
		return err
	}
	ok, err := s.deps.Hasher.Verify(currentPassword, ident.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password for %s: %w", ident.ID, err)
	}
	if !ok {
		return autherr.ErrBadCredentials
	}
	hash, err := s.deps.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.deps.Identities.UpdatePasswordHash(ctx, ident.ID, hash, s.now().UTC()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := s.deps.Credentials.RevokeAll(ctx, ident.ID)
	if err != nil {
		return err
	}
	s.audit(ctx, ident.ID, audit.ActionPasswordChanged, map[string]string{"revoked": fmt.Sprint(n)})
	return nil
}

// DeleteAccount revokes every refresh credential of the identity, deletes it
// and announces the deletion.
func (s *AuthService) DeleteAccount(ctx context.Context, identityID string) error {
	ident, err := s.identity(ctx, identityID)
	if err != nil {
		return err
	}
	if _, err := s.deps.Credentials.RevokeAll(ctx, ident.ID); err != nil {
		return err
	}
	if err := s.deps.Identities.Delete(ctx, ident.ID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	s.publish(ctx, events.TypeIdentityDeleted, ident.ID, func(ctx context.Context) error {
		return s.deps.Events.IdentityDeleted(ctx, events.IdentityDeleted{ID: ident.ID, OccurredAt: s.now().UTC()})
	})
	s.audit(ctx, ident.ID, audit.ActionAccountDeleted, nil)
	return nil
}

// VerifyEmail consumes an email proof.
func (s *AuthService) VerifyEmail(ctx context.Context, rawProof string) error {
	ident, err := s.deps.Proofs.Consume(ctx, rawProof)
	if err != nil {
		return err
	}
	s.audit(ctx, ident.ID, audit.ActionEmailVerified, nil)
	return nil
}

// ResendVerification issues a fresh proof to an unverified LOCAL identity.
// Unknown, external and verified addresses, and requests inside the
// cooldown, are silently ignored.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if s.cfg.ResendCooldown > 0 {
		allowed, err := s.deps.Limiter.Allow(ctx, "verify-resend:"+email, s.cfg.ResendCooldown)
		if err != nil {
			s.deps.Log.Warn("resend: limiter unavailable", "email", email, "error", err)
			allowed = true
		}
		if !allowed {
			return nil
		}
	}
	ident, err := s.deps.Identities.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup identity: %w", err)
	}
	if ident == nil || !ident.IsLocal() || ident.EmailVerified {
		return nil
	}
	s.sendProof(ctx, ident)
	return nil
}

// Me returns the identity behind an access token.
func (s *AuthService) Me(ctx context.Context, identityID string) (*domain.Identity, error) {
	return s.identity(ctx, identityID)
}
