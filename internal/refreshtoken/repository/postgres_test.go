package repository

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/db"
	"auth-service/internal/db/migrate"
	"auth-service/internal/refreshtoken/domain"
)

// openTestDB connects to TEST_DATABASE_URL, applies migrations and creates
// one identity row to own credentials.
func openTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	identityID := uuid.New().String()
	now := time.Now().UTC()
	_, err = conn.Exec(`INSERT INTO identities (id, email, password_hash, provider, roles, created_at, updated_at)
		VALUES ($1, $2, 'x', 'LOCAL', 'USER', $3, $3)`, identityID, identityID+"@example.com", now)
	if err != nil {
		t.Fatalf("insert identity: %v", err)
	}
	t.Cleanup(func() { _, _ = conn.Exec(`DELETE FROM identities WHERE id = $1`, identityID) })
	return conn, identityID
}

func newCredential(identityID string, now time.Time) *domain.RefreshCredential {
	id := uuid.New().String()
	return &domain.RefreshCredential{
		ID:         id,
		IdentityID: identityID,
		TokenHash:  hash64(id),
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
	}
}

// hash64 derives a 64-char stand-in for a token hash.
func hash64(seed string) string {
	s := seed + seed
	for len(s) < 64 {
		s += seed
	}
	return s[:64]
}

func TestPostgresRepository_RotateRace(t *testing.T) {
	conn, identityID := openTestDB(t)
	repo := NewPostgresRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := newCredential(identityID, now)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const racers = 5
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, outcome, err := repo.Rotate(ctx, first.TokenHash, newCredential("", now), now)
			if err != nil {
				t.Errorf("Rotate: %v", err)
				return
			}
			if outcome == RotateDone {
				mu.Lock()
				done++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if done != 1 {
		t.Fatalf("RotateDone count = %d, want 1", done)
	}
	n, err := repo.CountActiveByIdentity(ctx, identityID, now)
	if err != nil || n != 1 {
		t.Fatalf("active = %d, %v; want 1", n, err)
	}
	old, _ := repo.GetByHash(ctx, first.TokenHash)
	if old.RevokedAt == nil || old.ReplacedByHash == "" {
		t.Errorf("old credential not chained: %+v", old)
	}
}

func TestPostgresRepository_RevokeAndSweep(t *testing.T) {
	conn, identityID := openTestDB(t)
	repo := NewPostgresRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	expired := newCredential(identityID, now.Add(-2*time.Hour))
	live := newCredential(identityID, now)
	for _, c := range []*domain.RefreshCredential{expired, live} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.RevokeByHash(ctx, "missing", now); err != nil {
		t.Errorf("RevokeByHash missing: %v", err)
	}
	n, err := repo.RevokeAllByIdentity(ctx, identityID, now)
	if err != nil || n != 1 {
		t.Errorf("RevokeAllByIdentity = %d, %v; want 1 (expired rows are not active)", n, err)
	}
	if _, err := repo.DeleteExpired(ctx, now); err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if c, _ := repo.GetByHash(ctx, expired.TokenHash); c != nil {
		t.Error("expired credential survived sweep")
	}
	if c, _ := repo.GetByHash(ctx, live.TokenHash); c == nil {
		t.Error("unexpired credential was swept")
	}
}
