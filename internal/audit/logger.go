package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/audit/domain"
	auditrepo "auth-service/internal/audit/repository"
	"auth-service/internal/logger"
)

// Actions recorded by the auth flows.
const (
	ActionRegister        = "register"
	ActionLogin           = "login"
	ActionLoginFailed     = "login_failed"
	ActionExternalLogin   = "external_login"
	ActionRefreshReplay   = "refresh_replay"
	ActionLogout          = "logout"
	ActionPasswordChanged = "password_changed"
	ActionAccountDeleted  = "account_deleted"
	ActionEmailVerified   = "email_verified"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// Emitter forwards audit events to a secondary sink such as OTel logs.
type Emitter interface {
	Emit(ctx context.Context, entry *domain.AuditLog) error
}

// AuditLogger writes a single audit event. LogEvent is best-effort: failures
// are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, identityID, action string, metadata map[string]string)
}

// Logger implements AuditLogger using the audit repository, an optional
// emitter, and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	emitter     Emitter
	ipExtractor IPExtractor
	log         *logger.Logger
}

// NewLogger returns an AuditLogger that persists to repo and forwards to emitter.
// repo, emitter and ipExtractor may be nil; a nil ipExtractor records IP "unknown".
func NewLogger(repo auditrepo.Repository, emitter Emitter, ipExtractor IPExtractor, log *logger.Logger) *Logger {
	if log == nil {
		log = logger.NewNop()
	}
	return &Logger{repo: repo, emitter: emitter, ipExtractor: ipExtractor, log: log}
}

// LogEvent writes one audit log entry.
func (l *Logger) LogEvent(ctx context.Context, identityID, action string, metadata map[string]string) {
	if l.repo == nil && l.emitter == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Action:     action,
		IP:         ip,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	// The entry must land even if the request was cancelled after the flow committed.
	ctx = context.WithoutCancel(ctx)
	if l.repo != nil {
		if err := l.repo.Create(ctx, entry); err != nil {
			l.log.Error("audit: failed to persist event", "action", action, "identity_id", identityID, "error", err)
		}
	}
	if l.emitter != nil {
		if err := l.emitter.Emit(ctx, entry); err != nil {
			l.log.Warn("audit: failed to emit event", "action", action, "error", err)
		}
	}
}
