package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auth-service/internal/identity/domain"
	"auth-service/internal/platform/autherr"
)

// MemoryRepository keeps identities in process memory. It is the storage
// driver when DATABASE_URL is empty and the fixture for tests.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.Identity
	byEmail map[string]string
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*domain.Identity), byEmail: make(map[string]string)}
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyOf(m.byID[id]), nil
}

func (m *MemoryRepository) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyOf(m.byID[m.byEmail[domain.NormalizeEmail(email)]]), nil
}

func (m *MemoryRepository) GetByVerificationHash(_ context.Context, tokenHash string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.byID {
		if tokenHash != "" && i.VerificationTokenHash == tokenHash {
			return m.copyOf(i), nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) Create(_ context.Context, i *domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := domain.NormalizeEmail(i.Email)
	if _, taken := m.byEmail[email]; taken {
		return fmt.Errorf("create identity: %w", autherr.ErrDuplicateEmail)
	}
	cp := m.copyOf(i)
	cp.Email = email
	m.byID[i.ID] = cp
	m.byEmail[email] = i.ID
	return nil
}

func (m *MemoryRepository) UpdatePasswordHash(_ context.Context, id, passwordHash string, now time.Time) error {
	return m.update(id, now, func(i *domain.Identity) { i.PasswordHash = passwordHash })
}

func (m *MemoryRepository) UpdateRoles(_ context.Context, id string, roles []string, now time.Time) error {
	return m.update(id, now, func(i *domain.Identity) { i.Roles = append([]string(nil), roles...) })
}

func (m *MemoryRepository) SetVerificationProof(_ context.Context, id, tokenHash string, expiresAt, now time.Time) error {
	return m.update(id, now, func(i *domain.Identity) {
		exp := expiresAt
		i.VerificationTokenHash = tokenHash
		i.VerificationExpiresAt = &exp
	})
}

func (m *MemoryRepository) ConsumeVerificationProof(_ context.Context, id, tokenHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok || tokenHash == "" || i.VerificationTokenHash != tokenHash {
		return false, nil
	}
	i.EmailVerified = true
	i.VerificationTokenHash = ""
	i.VerificationExpiresAt = nil
	i.UpdatedAt = now
	return true, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byID[id]; ok {
		delete(m.byEmail, i.Email)
		delete(m.byID, id)
	}
	return nil
}

func (m *MemoryRepository) update(id string, now time.Time, fn func(*domain.Identity)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byID[id]; ok {
		fn(i)
		i.UpdatedAt = now
	}
	return nil
}

func (m *MemoryRepository) copyOf(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Roles = append([]string(nil), i.Roles...)
	if i.VerificationExpiresAt != nil {
		t := *i.VerificationExpiresAt
		cp.VerificationExpiresAt = &t
	}
	return &cp
}
