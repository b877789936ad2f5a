// Seed creates a verified LOCAL identity with roles USER and ADMIN from
// SEED_EMAIL and SEED_PASSWORD. Running it again only restores the roles.
package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/app"
	"auth-service/internal/config"
	"auth-service/internal/identity/domain"
	"auth-service/internal/identity/repository"
	"auth-service/internal/logger"
	"auth-service/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()
	if cfg.DatabaseURL == "" {
		log.Fatal("seed: DATABASE_URL is required")
	}
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		log.Fatal("seed: SEED_EMAIL and SEED_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("seed: stores", "error", err)
	}
	defer stores.Close()

	id, created, err := seed(ctx, stores.Identities, security.NewHasher(cfg.BcryptCost), cfg.SeedEmail, cfg.SeedPassword, time.Now().UTC())
	if err != nil {
		log.Fatal("seed failed", "error", err)
	}
	log.Info("seed done", "identity_id", id, "email", cfg.SeedEmail, "created", created)
}

// seed creates the admin identity or, if the email exists as LOCAL, makes
// sure it carries the admin roles.
func seed(ctx context.Context, repo repository.Repository, hasher *security.Hasher, email, password string, now time.Time) (string, bool, error) {
	email = domain.NormalizeEmail(email)
	roles := []string{domain.RoleUser, domain.RoleAdmin}

	existing, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		if !existing.IsLocal() {
			return "", false, fmt.Errorf("%s belongs to an external identity", email)
		}
		if !slices.Contains(existing.Roles, domain.RoleAdmin) {
			if err := repo.UpdateRoles(ctx, existing.ID, roles, now); err != nil {
				return "", false, err
			}
		}
		return existing.ID, false, nil
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return "", false, err
	}
	ident := &domain.Identity{
		ID:            uuid.New().String(),
		Email:         email,
		PasswordHash:  hash,
		Provider:      domain.Local,
		Roles:         roles,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.Create(ctx, ident); err != nil {
		return "", false, err
	}
	return ident.ID, true, nil
}
