package config

import (
	"net/http"
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	os.Clearenv()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{"JWT_SECRET": "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.JWTIssuer != "auth-service" {
		t.Errorf("JWTIssuer = %q", cfg.JWTIssuer)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 720*time.Hour {
		t.Errorf("RefreshTTL = %v", cfg.RefreshTTL())
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if !cfg.RequireEmailVerification {
		t.Error("RequireEmailVerification should default to true")
	}
	if cfg.VerificationProofTTL() != 24*time.Hour {
		t.Errorf("VerificationProofTTL = %v", cfg.VerificationProofTTL())
	}
	if cfg.RefreshCookiePath != "/auth" || cfg.RefreshCookieName != "refresh_token" {
		t.Errorf("cookie = %q %q", cfg.RefreshCookieName, cfg.RefreshCookiePath)
	}
	if cfg.CookieSameSite() != http.SameSiteLaxMode {
		t.Error("SameSite should default to Lax")
	}
	if cfg.CookieSecure() {
		t.Error("development cookies should not be Secure")
	}
	if got := cfg.GoogleIssuerList(); len(got) != 2 {
		t.Errorf("GoogleIssuerList = %v", got)
	}
	if cfg.EventsTopicRegistered != "identity.registered" || cfg.EventsTopicDeleted != "identity.deleted" {
		t.Errorf("topics = %q %q", cfg.EventsTopicRegistered, cfg.EventsTopicDeleted)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setEnv(t, map[string]string{
		"JWT_SECRET":              "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=",
		"HTTP_ADDR":               ":9999",
		"JWT_ISSUER":              "custom-issuer",
		"BCRYPT_COST":             "14",
		"APP_ENV":                 "staging",
		"REFRESH_COOKIE_SAMESITE": "strict",
		"KAFKA_BROKERS":           "k1:9092, k2:9092,",
		"ACCESS_TTL":              "5m",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.JWTIssuer != "custom-issuer" || cfg.BcryptCost != 14 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.CookieSecure() {
		t.Error("staging cookies must be Secure")
	}
	if cfg.CookieSameSite() != http.SameSiteStrictMode {
		t.Error("SameSite should be Strict")
	}
	if got := cfg.KafkaBrokersList(); len(got) != 2 || got[1] != "k2:9092" {
		t.Errorf("KafkaBrokersList = %v", got)
	}
	if cfg.AccessTTL() != 5*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.AccessTTL())
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no signing key", map[string]string{}},
		{"bcrypt too high", map[string]string{"JWT_SECRET": "x", "BCRYPT_COST": "40"}},
		{"dev mailbox in production", map[string]string{"JWT_SECRET": "x", "APP_ENV": "production", "DATABASE_URL": "postgres://x", "DEV_MAILBOX": "true"}},
		{"production without database", map[string]string{"JWT_SECRET": "x", "APP_ENV": "production"}},
		{"bad samesite", map[string]string{"JWT_SECRET": "x", "REFRESH_COOKIE_SAMESITE": "none"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, tc.env)
			if _, err := Load(); err == nil {
				t.Fatal("Load should fail")
			}
		})
	}
}

func TestDurations_Fallbacks(t *testing.T) {
	c := &Config{JWTAccessTTL: "nope", JWTRefreshTTL: "-1h", RefreshReuseGrace: "0s", SweepInterval: ""}
	if c.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL fallback = %v", c.AccessTTL())
	}
	if c.RefreshTTL() != 720*time.Hour {
		t.Errorf("RefreshTTL fallback = %v", c.RefreshTTL())
	}
	if c.ReuseGrace() != 0 {
		t.Errorf("ReuseGrace 0s should disable grace, got %v", c.ReuseGrace())
	}
	if c.SweepEvery() != time.Hour {
		t.Errorf("SweepEvery fallback = %v", c.SweepEvery())
	}
}
