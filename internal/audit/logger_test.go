package audit

import (
	"context"
	"errors"
	"testing"

	"auth-service/internal/audit/domain"
)

type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByIdentity(ctx context.Context, identityID string, limit int) ([]*domain.AuditLog, error) {
	return m.entries, nil
}

type mockEmitter struct {
	entries []*domain.AuditLog
	err     error
}

func (m *mockEmitter) Emit(ctx context.Context, entry *domain.AuditLog) error {
	m.entries = append(m.entries, entry)
	return m.err
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	em := &mockEmitter{}
	l := NewLogger(repo, em, func(context.Context) string { return "192.168.1.1" }, nil)

	l.LogEvent(context.Background(), "id-1", ActionLogin, map[string]string{"provider": "LOCAL"})

	if len(repo.entries) != 1 || len(em.entries) != 1 {
		t.Fatalf("repo=%d emitter=%d, want 1 each", len(repo.entries), len(em.entries))
	}
	e := repo.entries[0]
	if e.IdentityID != "id-1" || e.Action != ActionLogin || e.IP != "192.168.1.1" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Metadata["provider"] != "LOCAL" {
		t.Errorf("metadata = %v", e.Metadata)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("ID and CreatedAt should be set")
	}
}

func TestLogger_LogEvent_NilIPExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil, nil, nil).LogEvent(context.Background(), "", ActionLoginFailed, nil)
	if len(repo.entries) != 1 || repo.entries[0].IP != "unknown" {
		t.Fatalf("entries = %+v", repo.entries)
	}
}

func TestLogger_LogEvent_Failures(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("database error")}
	em := &mockEmitter{err: errors.New("collector down")}
	// Best-effort: must not panic and the emitter still runs after a repo failure.
	NewLogger(repo, em, nil, nil).LogEvent(context.Background(), "id-1", ActionLogout, nil)
	if len(em.entries) != 1 {
		t.Errorf("emitter entries = %d, want 1", len(em.entries))
	}
}

func TestLogger_LogEvent_NoSinks(t *testing.T) {
	NewLogger(nil, nil, nil, nil).LogEvent(context.Background(), "id-1", ActionLogout, nil)
}

func TestLogger_LogEvent_CancelledContext(t *testing.T) {
	repo := &ctxCheckingRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewLogger(repo, nil, nil, nil).LogEvent(ctx, "id-1", ActionAccountDeleted, nil)
	if repo.sawCancelled {
		t.Error("repository received a cancelled context")
	}
}

type ctxCheckingRepo struct {
	mockAuditRepo
	sawCancelled bool
}

func (r *ctxCheckingRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.sawCancelled = ctx.Err() != nil
	return nil
}
