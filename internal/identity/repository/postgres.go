package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auth-service/internal/db"
	"auth-service/internal/identity/domain"
	"auth-service/internal/platform/autherr"
)

const identityColumns = `id, email, password_hash, provider, provider_name, roles, email_verified,
	verification_token_hash, verification_expires_at, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
}

// GetByEmail returns the identity for the normalized email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, domain.NormalizeEmail(email))
}

// GetByVerificationHash returns the identity holding the proof hash, or nil.
func (r *PostgresRepository) GetByVerificationHash(ctx context.Context, tokenHash string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE verification_token_hash = $1`, tokenHash)
}

// Create persists the identity. The unique email constraint decides races
// between concurrent registrations.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		i.ID, domain.NormalizeEmail(i.Email), i.PasswordHash, string(i.Provider.Kind), i.Provider.Name,
		domain.JoinRoles(i.Roles), i.EmailVerified,
		sql.NullString{String: i.VerificationTokenHash, Valid: i.VerificationTokenHash != ""},
		timeToNullTime(i.VerificationExpiresAt), i.CreatedAt, i.UpdatedAt)
	if db.IsUniqueViolation(err, "identities_email_key") {
		return fmt.Errorf("create identity: %w", autherr.ErrDuplicateEmail)
	}
	return err
}

// UpdatePasswordHash replaces the password hash.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, now)
	return err
}

// UpdateRoles replaces the role set.
func (r *PostgresRepository) UpdateRoles(ctx context.Context, id string, roles []string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE identities SET roles = $2, updated_at = $3 WHERE id = $1`, id, domain.JoinRoles(roles), now)
	return err
}

// SetVerificationProof overwrites the outstanding proof.
func (r *PostgresRepository) SetVerificationProof(ctx context.Context, id, tokenHash string, expiresAt, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET verification_token_hash = $2, verification_expires_at = $3, updated_at = $4 WHERE id = $1`,
		id, tokenHash, expiresAt, now)
	return err
}

// ConsumeVerificationProof flips email_verified when tokenHash is still current.
func (r *PostgresRepository) ConsumeVerificationProof(ctx context.Context, id, tokenHash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities
		 SET email_verified = TRUE, verification_token_hash = NULL, verification_expires_at = NULL, updated_at = $3
		 WHERE id = $1 AND verification_token_hash = $2`,
		id, tokenHash, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Delete removes the identity. refresh_credentials rows cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	var (
		i          domain.Identity
		kind, name string
		roles      string
		proofHash  sql.NullString
		proofExp   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&i.ID, &i.Email, &i.PasswordHash, &kind, &name, &roles, &i.EmailVerified,
		&proofHash, &proofExp, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Provider = domain.Provider{Kind: domain.ProviderKind(kind), Name: name}
	i.Roles = domain.SplitRoles(roles)
	i.VerificationTokenHash = proofHash.String
	if proofExp.Valid {
		t := proofExp.Time
		i.VerificationExpiresAt = &t
	}
	return &i, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
