package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"auth-service/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. a.ID must be set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}
	if a.Metadata == nil {
		meta = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, identity_id, action, ip, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, sql.NullString{String: a.IdentityID, Valid: a.IdentityID != ""}, a.Action, a.IP, meta, a.CreatedAt)
	return err
}

// ListByIdentity returns the newest audit logs of the identity, at most limit.
func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID string, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, identity_id, action, ip, metadata, created_at FROM audit_logs
		 WHERE identity_id = $1 ORDER BY created_at DESC LIMIT $2`, identityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a    domain.AuditLog
			id   sql.NullString
			meta []byte
		)
		if err := rows.Scan(&a.ID, &id, &a.Action, &a.IP, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.IdentityID = id.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
