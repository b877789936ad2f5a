// Package server assembles the gin engine that serves the REST API.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"auth-service/internal/health"
	"auth-service/internal/identity/handler"
	"auth-service/internal/logger"
	"auth-service/internal/mail"
	"auth-service/internal/security"
	"auth-service/internal/server/middleware"
)

// RouterConfig holds what NewRouter wires together. DevMailbox and
// CORSOrigins are optional.
type RouterConfig struct {
	Auth           *handler.AuthHandler
	Tokens         *security.TokenCodec
	Health         *health.Checker
	DevMailbox     *mail.DevMailbox
	CORSOrigins    []string
	RequestTimeout time.Duration
	ServiceName    string
	Log            *logger.Logger
}

// NewRouter returns the engine serving /auth, /healthz, /readyz and, when
// configured, /dev/mailbox.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "auth-service"
	}
	if cfg.Health == nil {
		cfg.Health = health.NewChecker(nil, nil)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RecordClientIP())
	router.Use(middleware.RequestLogger(cfg.Log))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", health.Liveness)
	router.GET("/readyz", health.Readiness(cfg.Health))

	api := router.Group("", middleware.Timeout(cfg.RequestTimeout))
	cfg.Auth.Routes(api, middleware.RequireBearer(cfg.Tokens, cfg.Log))
	if cfg.DevMailbox != nil {
		api.GET("/dev/mailbox", handler.DevMailbox(cfg.DevMailbox))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, middleware.ErrorEnvelope{
			Error: middleware.APIError{Code: "not_found", Message: "route not found"},
		})
	})
	return router
}
