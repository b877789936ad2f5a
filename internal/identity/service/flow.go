package service

import (
	"context"
	"fmt"
	"regexp"

	"auth-service/internal/events"
	"auth-service/internal/identity/domain"
	"auth-service/internal/platform/autherr"
	"auth-service/internal/policy/engine"
)

// bcrypt ignores input beyond 72 bytes.
const maxPasswordBytes = 72

var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// startSession issues a refresh credential and an access token for ident.
func (s *AuthService) startSession(ctx context.Context, ident *domain.Identity) (*AuthResult, error) {
	issued, err := s.deps.Credentials.Issue(ctx, ident.ID)
	if err != nil {
		return nil, err
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

// admit asks the admission policy whether an authenticated identity may get tokens.
func (s *AuthService) admit(ctx context.Context, ident *domain.Identity) error {
	if s.deps.Policy == nil {
		return nil
	}
	res, err := s.deps.Policy.EvaluateAdmission(ctx, engine.AdmissionInput{
		Provider:                 string(ident.Provider.Kind),
		EmailVerified:            ident.EmailVerified,
		RequireEmailVerification: s.cfg.RequireEmailVerification,
	})
	if err != nil {
		return fmt.Errorf("evaluate admission: %w", err)
	}
	if res.Allow {
		return nil
	}
	if res.Reason == engine.ReasonEmailNotVerified {
		return autherr.ErrEmailNotVerified
	}
	return autherr.ErrBadCredentials
}

// sendProof issues and mails a verification proof. Failures are logged; the
// identity can ask for a resend.
func (s *AuthService) sendProof(ctx context.Context, ident *domain.Identity) {
	if s.deps.Proofs == nil {
		return
	}
	raw, err := s.deps.Proofs.Issue(ctx, ident)
	if err != nil {
		s.deps.Log.Error("verification: issue proof failed", "identity_id", ident.ID, "error", err)
		return
	}
	if err := s.deps.Proofs.Send(context.WithoutCancel(ctx), ident, raw); err != nil {
		s.deps.Log.Error("verification: send mail failed", "identity_id", ident.ID, "error", err)
	}
}

func (s *AuthService) publishRegistered(ctx context.Context, ident *domain.Identity, displayName string) {
	s.publish(ctx, events.TypeIdentityRegistered, ident.ID, func(ctx context.Context) error {
		return s.deps.Events.IdentityRegistered(ctx, events.IdentityRegistered{
			ID:          ident.ID,
			Email:       ident.Email,
			DisplayName: displayName,
			OccurredAt:  s.now().UTC(),
		})
	})
}

// publish runs after the state change has been stored. A failed publish is
// logged and never undoes the change.
func (s *AuthService) publish(ctx context.Context, eventType, identityID string, fn func(context.Context) error) {
	if s.deps.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.EventTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.deps.Log.Error("events: publish failed", "type", eventType, "identity_id", identityID, "error", err)
	}
}

func (s *AuthService) audit(ctx context.Context, identityID, action string, metadata map[string]string) {
	if s.deps.Audit != nil {
		s.deps.Audit.LogEvent(ctx, identityID, action, metadata)
	}
}

func (s *AuthService) loginMetric(ctx context.Context, method, outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.Login(ctx, method, outcome)
	}
}

// identity loads the identity behind an access token. A token for a deleted
// identity is treated as unauthenticated.
func (s *AuthService) identity(ctx context.Context, identityID string) (*domain.Identity, error) {
	if identityID == "" {
		return nil, autherr.ErrUnauthenticated
	}
	ident, err := s.deps.Identities.GetByID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if ident == nil {
		return nil, autherr.ErrUnauthenticated
	}
	return ident, nil
}

func validateEmail(email string) error {
	if email == "" {
		return autherr.Validation("email is required")
	}
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return autherr.Validation("invalid email format")
	}
	return nil
}

func validatePassword(password string, minLen int) error {
	if len([]rune(password)) < minLen {
		return autherr.Validation("password must be at least %d characters", minLen)
	}
	if len(password) > maxPasswordBytes {
		return autherr.Validation("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}
