package main

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"auth-service/internal/identity/domain"
	"auth-service/internal/identity/repository"
	"auth-service/internal/security"
)

func TestSeed_CreatesThenRestoresRoles(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	hasher := security.NewHasher(bcrypt.MinCost)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	id, created, err := seed(ctx, repo, hasher, " Admin@Example.com", "Passw0rd!", now)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !created {
		t.Fatal("first seed should create")
	}
	got, err := repo.GetByEmail(ctx, "admin@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetByEmail: %v %v", got, err)
	}
	if !got.EmailVerified || !got.IsLocal() {
		t.Errorf("seeded identity = %+v, want verified LOCAL", got)
	}
	if ok, _ := hasher.Verify("Passw0rd!", got.PasswordHash); !ok {
		t.Error("password does not verify")
	}

	if err := repo.UpdateRoles(ctx, id, []string{domain.RoleUser}, now); err != nil {
		t.Fatal(err)
	}
	again, created, err := seed(ctx, repo, hasher, "admin@example.com", "ignored", now)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if created || again != id {
		t.Errorf("second seed = (%s, %t), want (%s, false)", again, created, id)
	}
	got, _ = repo.GetByID(ctx, id)
	if len(got.Roles) != 2 || got.Roles[1] != domain.RoleAdmin {
		t.Errorf("roles = %v, want USER,ADMIN", got.Roles)
	}
}

func TestSeed_RefusesExternalIdentity(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	if err := repo.Create(ctx, &domain.Identity{ID: "x", Email: "bob@example.com", Provider: domain.External("google")}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := seed(ctx, repo, security.NewHasher(bcrypt.MinCost), "bob@example.com", "Passw0rd!", time.Now()); err == nil {
		t.Fatal("expected error for external identity")
	}
}
