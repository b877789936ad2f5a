// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogMode selects zap's "production" (JSON) or "development" (console) encoder.
	LogMode string `mapstructure:"LOG_MODE"`
	// HTTPAddr is the address the REST API listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCHealthAddr serves grpc.health.v1; empty disables it.
	GRPCHealthAddr string `mapstructure:"GRPC_HEALTH_ADDR"`
	// RequestTimeout bounds every request's I/O (e.g. "10s").
	RequestTimeout string `mapstructure:"REQUEST_TIMEOUT"`
	// DatabaseURL is the Postgres DSN. Empty selects in-memory stores (local dev only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// JWTSecret is a base64 HS256 secret. Ignored when JWTPrivateKey is set.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; optional with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"ACCESS_TTL"`
	// JWTRefreshTTL is the refresh credential lifetime (e.g. "720h").
	JWTRefreshTTL string `mapstructure:"REFRESH_TTL"`
	// RefreshReuseGrace is how long a rotated-away credential may be re-presented
	// without tearing down the identity's other credentials.
	RefreshReuseGrace string `mapstructure:"REFRESH_REUSE_GRACE"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// MinPasswordLength is the shortest accepted local password.
	MinPasswordLength int `mapstructure:"MIN_PASSWORD_LENGTH"`

	// RequireEmailVerification gates local login on a verified email.
	RequireEmailVerification bool `mapstructure:"REQUIRE_EMAIL_VERIFICATION"`
	// VerificationTTL is the lifetime of an email proof token (e.g. "24h").
	VerificationTTL string `mapstructure:"VERIFICATION_TTL"`
	// VerificationResendCooldown limits resend requests per email.
	VerificationResendCooldown string `mapstructure:"VERIFICATION_RESEND_COOLDOWN"`
	// PublicURL is the base of links sent by email.
	PublicURL string `mapstructure:"PUBLIC_URL"`

	RefreshCookieName     string `mapstructure:"REFRESH_COOKIE_NAME"`
	RefreshCookiePath     string `mapstructure:"REFRESH_COOKIE_PATH"`
	RefreshCookieDomain   string `mapstructure:"REFRESH_COOKIE_DOMAIN"`
	RefreshCookieSameSite string `mapstructure:"REFRESH_COOKIE_SAMESITE"`
	// CORSAllowedOrigins is a comma-separated list of browser origins.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// GoogleClientID is the audience expected in Google ID tokens. Empty disables Google login.
	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleJWKSURL  string `mapstructure:"GOOGLE_JWKS_URL"`
	// GoogleIssuers is a comma-separated allow-list of accepted iss values.
	GoogleIssuers string `mapstructure:"GOOGLE_ISSUERS"`

	// KafkaBrokers is a comma-separated list of broker addresses. Empty logs events instead.
	KafkaBrokers          string `mapstructure:"KAFKA_BROKERS"`
	EventsTopicRegistered string `mapstructure:"EVENTS_TOPIC_REGISTERED"`
	EventsTopicDeleted    string `mapstructure:"EVENTS_TOPIC_DELETED"`

	// RedisAddr enables the Redis limiter. Empty uses a process-local limiter.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// MailRelayURL is the HTTP endpoint of the outbound mail relay.
	MailRelayURL    string `mapstructure:"MAIL_RELAY_URL"`
	MailRelayAPIKey string `mapstructure:"MAIL_RELAY_API_KEY"`
	MailFrom        string `mapstructure:"MAIL_FROM"`
	// DevMailbox captures outbound mail in memory and exposes GET /dev/mailbox. Must not be true in production.
	DevMailbox bool `mapstructure:"DEV_MAILBOX"`

	// PolicyFile overrides the built-in login admission Rego policy.
	PolicyFile string `mapstructure:"POLICY_FILE"`

	// OTelEndpoint is the OTLP gRPC collector address. Empty disables exporters.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// SweepInterval is how often expired refresh credentials are deleted.
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
	// SweepInProcess runs the sweeper inside the API server instead of cmd/worker.
	SweepInProcess bool `mapstructure:"SWEEP_IN_PROCESS"`

	// SeedEmail and SeedPassword are read by cmd/seed only.
	SeedEmail    string `mapstructure:"SEED_EMAIL"`
	SeedPassword string `mapstructure:"SEED_PASSWORD"`
}

var defaults = map[string]any{
	"APP_ENV":                      "development",
	"LOG_MODE":                     "",
	"HTTP_ADDR":                    ":8080",
	"GRPC_HEALTH_ADDR":             ":9090",
	"REQUEST_TIMEOUT":              "10s",
	"DATABASE_URL":                 "",
	"JWT_SECRET":                   "",
	"JWT_PRIVATE_KEY":              "",
	"JWT_PUBLIC_KEY":               "",
	"JWT_ISSUER":                   "auth-service",
	"ACCESS_TTL":                   "15m",
	"REFRESH_TTL":                  "720h",
	"REFRESH_REUSE_GRACE":          "5s",
	"BCRYPT_COST":                  12,
	"MIN_PASSWORD_LENGTH":          8,
	"REQUIRE_EMAIL_VERIFICATION":   true,
	"VERIFICATION_TTL":             "24h",
	"VERIFICATION_RESEND_COOLDOWN": "60s",
	"PUBLIC_URL":                   "http://localhost:8080",
	"REFRESH_COOKIE_NAME":          "refresh_token",
	"REFRESH_COOKIE_PATH":          "/auth",
	"REFRESH_COOKIE_DOMAIN":        "",
	"REFRESH_COOKIE_SAMESITE":      "lax",
	"CORS_ALLOWED_ORIGINS":         "",
	"GOOGLE_CLIENT_ID":             "",
	"GOOGLE_JWKS_URL":              "https://www.googleapis.com/oauth2/v3/certs",
	"GOOGLE_ISSUERS":               "accounts.google.com,https://accounts.google.com",
	"KAFKA_BROKERS":                "",
	"EVENTS_TOPIC_REGISTERED":      "identity.registered",
	"EVENTS_TOPIC_DELETED":         "identity.deleted",
	"REDIS_ADDR":                   "",
	"REDIS_PASSWORD":               "",
	"MAIL_RELAY_URL":               "",
	"MAIL_RELAY_API_KEY":           "",
	"MAIL_FROM":                    "no-reply@localhost",
	"DEV_MAILBOX":                  false,
	"POLICY_FILE":                  "",
	"OTEL_EXPORTER_OTLP_ENDPOINT":  "",
	"OTEL_SERVICE_NAME":            "auth-service",
	"SWEEP_INTERVAL":               "1h",
	"SWEEP_IN_PROCESS":             false,
	"SEED_EMAIL":                   "",
	"SEED_PASSWORD":                "",
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that are unsafe or cannot start.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.IsProduction() && c.DevMailbox {
		return errors.New("config: DEV_MAILBOX must not be true when APP_ENV=production")
	}
	if c.IsProduction() && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required when APP_ENV=production")
	}
	if c.JWTSecret == "" && c.JWTPrivateKey == "" {
		return errors.New("config: one of JWT_SECRET or JWT_PRIVATE_KEY must be set")
	}
	if c.JWTIssuer == "" {
		return errors.New("config: JWT_ISSUER must be set")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = 8
	}
	switch strings.ToLower(c.RefreshCookieSameSite) {
	case "", "lax", "strict":
	default:
		return errors.New("config: REFRESH_COOKIE_SAMESITE must be lax or strict")
	}
	if c.RefreshCookieName == "" {
		return errors.New("config: REFRESH_COOKIE_NAME must be set")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// IsLocal reports whether the deployment is a developer machine or test run.
func (c *Config) IsLocal() bool {
	switch strings.ToLower(c.Env) {
	case "", "local", "development", "dev", "test":
		return true
	}
	return false
}

// AccessTTL parses JWTAccessTTL. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration { return parseDuration(c.JWTAccessTTL, 15*time.Minute) }

// RefreshTTL parses JWTRefreshTTL. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration { return parseDuration(c.JWTRefreshTTL, 720*time.Hour) }

// ReuseGrace parses RefreshReuseGrace. Zero disables the grace window.
func (c *Config) ReuseGrace() time.Duration {
	d, err := time.ParseDuration(c.RefreshReuseGrace)
	if err != nil || d < 0 {
		return 5 * time.Second
	}
	return d
}

// VerificationProofTTL parses VerificationTTL. Returns 24h if unset or invalid.
func (c *Config) VerificationProofTTL() time.Duration {
	return parseDuration(c.VerificationTTL, 24*time.Hour)
}

// ResendCooldown parses VerificationResendCooldown. Returns 60s if unset or invalid.
func (c *Config) ResendCooldown() time.Duration {
	return parseDuration(c.VerificationResendCooldown, time.Minute)
}

// Timeout parses RequestTimeout. Returns 10s if unset or invalid.
func (c *Config) Timeout() time.Duration { return parseDuration(c.RequestTimeout, 10*time.Second) }

// SweepEvery parses SweepInterval. Returns 1h if unset or invalid.
func (c *Config) SweepEvery() time.Duration { return parseDuration(c.SweepInterval, time.Hour) }

// CookieSameSite maps RefreshCookieSameSite to http.SameSite. Lax unless "strict".
func (c *Config) CookieSameSite() http.SameSite {
	if strings.EqualFold(c.RefreshCookieSameSite, "strict") {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

// CookieSecure is true in every non-local deployment.
func (c *Config) CookieSecure() bool { return !c.IsLocal() }

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string { return splitList(c.KafkaBrokers) }

// CORSOrigins returns the allowed browser origins.
func (c *Config) CORSOrigins() []string { return splitList(c.CORSAllowedOrigins) }

// GoogleIssuerList returns the accepted Google iss values.
func (c *Config) GoogleIssuerList() []string { return splitList(c.GoogleIssuers) }

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
