package repository

import (
	"context"
	"sync"
	"time"

	"auth-service/internal/refreshtoken/domain"
)

// MemoryRepository keeps refresh credentials in process memory. It is the
// storage driver when DATABASE_URL is empty and the fixture for tests.
// All methods hold one mutex, which gives Rotate the same all-or-nothing
// behaviour as the Postgres transaction.
type MemoryRepository struct {
	mu     sync.Mutex
	byHash map[string]*domain.RefreshCredential
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byHash: make(map[string]*domain.RefreshCredential)}
}

func (m *MemoryRepository) Create(_ context.Context, c *domain.RefreshCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byHash[c.TokenHash] = &cp
	return nil
}

func (m *MemoryRepository) GetByHash(_ context.Context, tokenHash string) (*domain.RefreshCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryRepository) Rotate(_ context.Context, oldHash string, next *domain.RefreshCredential, now time.Time) (*domain.RefreshCredential, RotateOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.byHash[oldHash]
	if !ok {
		return nil, RotateNotFound, nil
	}
	if !old.IsActive(now) {
		cp := *old
		return &cp, RotateInactive, nil
	}
	revokedAt := now
	old.RevokedAt = &revokedAt
	old.ReplacedByHash = next.TokenHash
	next.IdentityID = old.IdentityID
	stored := *next
	m.byHash[next.TokenHash] = &stored
	cp := *old
	return &cp, RotateDone, nil
}

func (m *MemoryRepository) RevokeByHash(_ context.Context, tokenHash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byHash[tokenHash]; ok && c.RevokedAt == nil {
		revokedAt := now
		c.RevokedAt = &revokedAt
	}
	return nil
}

func (m *MemoryRepository) RevokeAllByIdentity(_ context.Context, identityID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.byHash {
		if c.IdentityID == identityID && c.IsActive(now) {
			revokedAt := now
			c.RevokedAt = &revokedAt
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, c := range m.byHash {
		if c.ExpiresAt.Before(now) {
			delete(m.byHash, h)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) CountActiveByIdentity(_ context.Context, identityID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.byHash {
		if c.IdentityID == identityID && c.IsActive(now) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored credentials, revoked or not.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}
