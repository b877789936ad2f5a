package repository

import (
	"context"
	"time"

	"auth-service/internal/refreshtoken/domain"
)

// RotateOutcome describes what a Rotate call found under the presented hash.
type RotateOutcome int

const (
	// RotateNotFound means no credential has the presented hash.
	RotateNotFound RotateOutcome = iota
	// RotateInactive means the credential exists but was revoked or expired;
	// nothing was written.
	RotateInactive
	// RotateDone means the credential was revoked and its successor persisted.
	RotateDone
)

// Repository defines persistence for refresh credentials. Every method takes
// the caller's single reading of now.
type Repository interface {
	Create(ctx context.Context, c *domain.RefreshCredential) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshCredential, error)
	// Rotate atomically revokes the credential with oldHash, points it at
	// next.TokenHash and inserts next, but only if the old credential is
	// active at now. The returned credential is the old one as observed
	// (nil for RotateNotFound). Concurrent calls with the same oldHash are
	// serialized; at most one returns RotateDone.
	Rotate(ctx context.Context, oldHash string, next *domain.RefreshCredential, now time.Time) (*domain.RefreshCredential, RotateOutcome, error)
	// RevokeByHash sets revoked_at if it is not already set. Missing rows are not an error.
	RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error
	// RevokeAllByIdentity revokes every credential of the identity that is active at now.
	RevokeAllByIdentity(ctx context.Context, identityID string, now time.Time) (int64, error)
	// DeleteExpired hard-deletes credentials whose expiry is before now, revoked or not.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// CountActiveByIdentity returns how many credentials of the identity are active at now.
	CountActiveByIdentity(ctx context.Context, identityID string, now time.Time) (int, error)
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
