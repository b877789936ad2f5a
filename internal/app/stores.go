package app

import (
	"context"
	"database/sql"
	"fmt"

	auditrepo "auth-service/internal/audit/repository"
	"auth-service/internal/config"
	"auth-service/internal/db"
	identityrepo "auth-service/internal/identity/repository"
	"auth-service/internal/logger"
	refreshrepo "auth-service/internal/refreshtoken/repository"
)

// Stores are the durable repositories. Audit is nil on the in-memory driver.
type Stores struct {
	DB          *sql.DB
	Identities  identityrepo.Repository
	Credentials refreshrepo.Repository
	Audit       auditrepo.Repository
}

// OpenStores connects to Postgres when DATABASE_URL is set and falls back to
// in-memory repositories otherwise.
func OpenStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stores, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores; state is lost on restart")
		return &Stores{
			Identities:  identityrepo.NewMemoryRepository(),
			Credentials: refreshrepo.NewMemoryRepository(),
		}, nil
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Stores{
		DB:          conn,
		Identities:  identityrepo.NewPostgresRepository(conn),
		Credentials: refreshrepo.NewPostgresRepository(conn),
		Audit:       auditrepo.NewPostgresRepository(conn),
	}, nil
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
