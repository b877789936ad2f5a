package repository

import (
	"context"
	"time"

	"auth-service/internal/identity/domain"
)

// Repository defines persistence for identities. Lookups return (nil, nil)
// when nothing matches. Create returns an error wrapping
// autherr.ErrDuplicateEmail when the email is taken.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByVerificationHash(ctx context.Context, tokenHash string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error
	UpdateRoles(ctx context.Context, id string, roles []string, now time.Time) error
	// SetVerificationProof replaces any outstanding proof of the identity.
	SetVerificationProof(ctx context.Context, id, tokenHash string, expiresAt, now time.Time) error
	// ConsumeVerificationProof marks the identity verified and clears the
	// proof, but only while tokenHash is still the stored proof. It reports
	// whether it did so.
	ConsumeVerificationProof(ctx context.Context, id, tokenHash string, now time.Time) (bool, error)
	// Delete removes the identity; its refresh credentials go with it.
	Delete(ctx context.Context, id string) error
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
