// Package app wires configuration into the stores, ledgers, flows and
// transports shared by the binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"auth-service/internal/audit"
	"auth-service/internal/config"
	"auth-service/internal/events"
	"auth-service/internal/external"
	"auth-service/internal/health"
	"auth-service/internal/identity/handler"
	"auth-service/internal/identity/service"
	"auth-service/internal/logger"
	"auth-service/internal/mail"
	"auth-service/internal/platform/throttle"
	"auth-service/internal/policy/engine"
	refreshsvc "auth-service/internal/refreshtoken/service"
	"auth-service/internal/security"
	"auth-service/internal/server"
	"auth-service/internal/server/middleware"
	"auth-service/internal/sweeper"
	telemetry "auth-service/internal/telemetry/otel"
	"auth-service/internal/verification"
)

// RedisKeyPrefix namespaces every key this service writes to Redis.
const RedisKeyPrefix = "auth-service:"

// App is the fully wired service.
type App struct {
	Cfg       *config.Config
	Log       *logger.Logger
	Stores    *Stores
	Telemetry *telemetry.Providers
	Tokens    *security.TokenCodec
	Hasher    *security.Hasher
	Ledger    *refreshsvc.Ledger
	Auth      *service.AuthService
	Events    events.Publisher
	Limiter   throttle.Limiter
	Health    *health.Checker
	Sweeper   *sweeper.Sweeper
	Mailbox   *mail.DevMailbox
	Router    *gin.Engine

	closers []func(context.Context) error
}

// New builds an App from cfg. On error everything opened so far is released.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{Cfg: cfg, Log: log}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	a.Telemetry, err = telemetry.NewProviders(ctx, cfg.OTelEndpoint, cfg.OTelServiceName, false, log.With("component", "telemetry"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.Telemetry.SetGlobal()
	a.closers = append(a.closers, a.Telemetry.Shutdown)
	metrics, err := telemetry.NewAuthMetrics(a.Telemetry.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	a.Stores, err = OpenStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.Stores.Close() })

	key, err := SigningKey(cfg)
	if err != nil {
		return nil, err
	}
	a.Tokens = security.NewTokenCodec(key, cfg.JWTIssuer, cfg.AccessTTL())
	a.Hasher = security.NewHasher(cfg.BcryptCost)

	auditLog := audit.NewLogger(a.Stores.Audit, telemetry.NewAuditEmitter(a.Telemetry.LoggerProvider), middleware.ClientIP, log.With("component", "audit"))

	a.Ledger = refreshsvc.NewLedger(a.Stores.Credentials,
		refreshsvc.Config{TTL: cfg.RefreshTTL(), ReuseGrace: cfg.ReuseGrace()},
		refreshsvc.WithAudit(auditLog),
		refreshsvc.WithMetrics(metrics),
		refreshsvc.WithLogger(log.With("component", "ledger")),
	)

	if err := a.wireLimiter(ctx); err != nil {
		return nil, err
	}
	a.Sweeper = sweeper.New(a.Ledger, a.Limiter, cfg.SweepEvery(), log)

	mailer := a.wireMailer()
	proofs := verification.NewLedger(a.Stores.Identities, mailer, cfg.PublicURL, verification.WithTTL(cfg.VerificationProofTTL()))

	registry, err := wireExternal(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var policy *engine.OPAEvaluator
	if cfg.PolicyFile != "" {
		policy, err = engine.NewOPAEvaluatorFromFile(cfg.PolicyFile, log)
	} else {
		policy, err = engine.NewOPAEvaluator("", log)
	}
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	if err := a.wireEvents(); err != nil {
		return nil, err
	}

	a.Auth = service.NewAuthService(service.Deps{
		Identities:  a.Stores.Identities,
		Hasher:      a.Hasher,
		Tokens:      a.Tokens,
		Credentials: a.Ledger,
		Proofs:      proofs,
		External:    registry,
		Policy:      policy,
		Events:      a.Events,
		Limiter:     a.Limiter,
		Audit:       auditLog,
		Metrics:     metrics,
		Log:         log.With("component", "auth"),
	}, service.Config{
		RequireEmailVerification: cfg.RequireEmailVerification,
		MinPasswordLength:        cfg.MinPasswordLength,
		ResendCooldown:           cfg.ResendCooldown(),
	})

	a.Health = health.NewChecker(nil, policy)
	if a.Stores.DB != nil {
		a.Health.Add("database", a.Stores.DB.PingContext)
	}
	if r, ok := a.Limiter.(*throttle.RedisLimiter); ok {
		a.Health.Add("redis", r.Ping)
	}

	authHandler := handler.NewAuthHandler(a.Auth, handler.CookieConfig{
		Name:     cfg.RefreshCookieName,
		Path:     cfg.RefreshCookiePath,
		Domain:   cfg.RefreshCookieDomain,
		Secure:   cfg.CookieSecure(),
		SameSite: cfg.CookieSameSite(),
	}, log.With("component", "http"))
	a.Router = server.NewRouter(server.RouterConfig{
		Auth:           authHandler,
		Tokens:         a.Tokens,
		Health:         a.Health,
		DevMailbox:     a.Mailbox,
		CORSOrigins:    cfg.CORSOrigins(),
		RequestTimeout: cfg.Timeout(),
		ServiceName:    cfg.OTelServiceName,
		Log:            log.With("component", "http"),
	})
	return a, nil
}

func (a *App) wireLimiter(ctx context.Context) error {
	if a.Cfg.RedisAddr == "" {
		a.Limiter = throttle.NewMemoryLimiter()
		return nil
	}
	r, err := throttle.NewRedisLimiter(ctx, a.Cfg.RedisAddr, a.Cfg.RedisPassword, RedisKeyPrefix)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	a.Limiter = r
	a.closers = append(a.closers, func(context.Context) error { return r.Close() })
	return nil
}

func (a *App) wireMailer() mail.Mailer {
	var base mail.Mailer = mail.NewLogMailer(a.Log.With("component", "mail"))
	if a.Cfg.MailRelayURL != "" {
		base = mail.NewHTTPRelay(a.Cfg.MailRelayURL, a.Cfg.MailRelayAPIKey, a.Cfg.MailFrom)
	}
	if a.Cfg.DevMailbox && !a.Cfg.IsProduction() {
		a.Mailbox = mail.NewDevMailbox()
		return mail.Tee{base, a.Mailbox}
	}
	return base
}

func (a *App) wireEvents() error {
	brokers := a.Cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		a.Events = events.NewLogPublisher(a.Log.With("component", "events"))
		return nil
	}
	p, err := events.NewKafkaPublisher(brokers, events.Topics{
		Registered: a.Cfg.EventsTopicRegistered,
		Deleted:    a.Cfg.EventsTopicDeleted,
	})
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	a.Events = p
	a.closers = append(a.closers, func(context.Context) error { return p.Close() })
	return nil
}

func wireExternal(ctx context.Context, cfg *config.Config) (*external.Registry, error) {
	if cfg.GoogleClientID == "" {
		return external.NewRegistry(), nil
	}
	google, err := external.NewGoogleVerifier(ctx, external.GoogleConfig{
		ClientID: cfg.GoogleClientID,
		JWKSURL:  cfg.GoogleJWKSURL,
		Issuers:  cfg.GoogleIssuerList(),
	})
	if err != nil {
		return nil, fmt.Errorf("google verifier: %w", err)
	}
	return external.NewRegistry(google), nil
}

// Close releases everything New opened, newest first.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
