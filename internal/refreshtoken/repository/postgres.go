package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auth-service/internal/refreshtoken/domain"
)

const credentialColumns = `id, identity_id, token_hash, expires_at, revoked_at, replaced_by_hash, created_at`

// PostgresRepository stores refresh credentials in the refresh_credentials table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a refresh credential repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts c. c.ID must be set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.RefreshCredential) error {
	return insertCredential(ctx, r.db, c)
}

// GetByHash returns the credential with tokenHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM refresh_credentials WHERE token_hash = $1`, tokenHash)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// Rotate locks the presented row with SELECT ... FOR UPDATE so that a second
// rotation of the same hash waits for the first to commit and then observes
// it as revoked. The guarded UPDATE re-checks revoked_at as well.
func (r *PostgresRepository) Rotate(ctx context.Context, oldHash string, next *domain.RefreshCredential, now time.Time) (*domain.RefreshCredential, RotateOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, RotateNotFound, fmt.Errorf("begin rotate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM refresh_credentials WHERE token_hash = $1 FOR UPDATE`, oldHash)
	old, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, RotateNotFound, nil
	}
	if err != nil {
		return nil, RotateNotFound, err
	}
	if !old.IsActive(now) {
		return old, RotateInactive, nil
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_credentials SET revoked_at = $2, replaced_by_hash = $3 WHERE id = $1 AND revoked_at IS NULL`,
		old.ID, now, next.TokenHash)
	if err != nil {
		return nil, RotateNotFound, fmt.Errorf("revoke rotated credential: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return old, RotateInactive, err
	}

	next.IdentityID = old.IdentityID
	if err := insertCredential(ctx, tx, next); err != nil {
		return nil, RotateNotFound, fmt.Errorf("insert rotated credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, RotateNotFound, fmt.Errorf("commit rotate: %w", err)
	}
	revokedAt := now
	old.RevokedAt = &revokedAt
	old.ReplacedByHash = next.TokenHash
	return old, RotateDone, nil
}

// RevokeByHash marks the credential revoked unless it already is.
func (r *PostgresRepository) RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_credentials SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL`,
		tokenHash, now)
	return err
}

// RevokeAllByIdentity revokes every active credential of the identity.
func (r *PostgresRepository) RevokeAllByIdentity(ctx context.Context, identityID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_credentials SET revoked_at = $2 WHERE identity_id = $1 AND revoked_at IS NULL AND expires_at > $2`,
		identityID, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes credentials whose expiry is before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_credentials WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountActiveByIdentity counts unrevoked, unexpired credentials of the identity.
func (r *PostgresRepository) CountActiveByIdentity(ctx context.Context, identityID string, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM refresh_credentials WHERE identity_id = $1 AND revoked_at IS NULL AND expires_at > $2`,
		identityID, now).Scan(&n)
	return n, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCredential(ctx context.Context, db execer, c *domain.RefreshCredential) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO refresh_credentials (id, identity_id, token_hash, expires_at, revoked_at, replaced_by_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.IdentityID, c.TokenHash, c.ExpiresAt, timeToNullTime(c.RevokedAt),
		sql.NullString{String: c.ReplacedByHash, Valid: c.ReplacedByHash != ""}, c.CreatedAt)
	return err
}

func scanCredential(row *sql.Row) (*domain.RefreshCredential, error) {
	var (
		c          domain.RefreshCredential
		revokedAt  sql.NullTime
		replacedBy sql.NullString
	)
	if err := row.Scan(&c.ID, &c.IdentityID, &c.TokenHash, &c.ExpiresAt, &revokedAt, &replacedBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.RevokedAt = nullTimeToPtr(revokedAt)
	c.ReplacedByHash = replacedBy.String
	return &c, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
