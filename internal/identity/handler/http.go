// Package handler exposes the authentication flows over HTTP with gin.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"auth-service/internal/identity/domain"
	"auth-service/internal/identity/service"
	"auth-service/internal/logger"
	"auth-service/internal/platform/autherr"
	"auth-service/internal/server/middleware"
)

// DefaultProvider is used by POST /auth/external when the body names none.
const DefaultProvider = "google"

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type externalRequest struct {
	Provider    string `json:"provider"`
	IDToken     string `json:"idToken"`
	DisplayName string `json:"displayName"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// TokenResponse is returned by every flow that starts or continues a session.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
	IdentityID  string `json:"identityId"`
}

// PendingResponse is returned by a verification-gated registration.
type PendingResponse struct {
	IdentityID          string `json:"identityId"`
	VerificationPending bool   `json:"verificationPending"`
}

// MeResponse describes the caller's identity.
type MeResponse struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"emailVerified"`
	Provider      string   `json:"provider"`
	ProviderName  string   `json:"providerName,omitempty"`
}

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	svc     *service.AuthService
	cookies CookieConfig
	log     *logger.Logger
	now     func() time.Time
}

// NewAuthHandler returns an AuthHandler over svc.
func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuthHandler{svc: svc, cookies: cookies.normalize(), log: log, now: time.Now}
}

// Routes mounts the auth endpoints on r. requireAuth guards the bearer routes.
func (h *AuthHandler) Routes(r gin.IRouter, requireAuth gin.HandlerFunc) {
	g := r.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/external", h.External)
	g.POST("/external/:provider", h.External)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.GET("/verify-email", h.VerifyEmail)
	g.POST("/verify-email/resend", h.ResendVerification)

	protected := g.Group("", requireAuth)
	protected.PATCH("/password", h.ChangePassword)
	protected.DELETE("/account", h.DeleteAccount)
	protected.GET("/me", h.Me)
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.VerificationPending {
		c.JSON(http.StatusCreated, PendingResponse{IdentityID: res.IdentityID, VerificationPending: true})
		return
	}
	h.session(c, http.StatusCreated, res)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.session(c, http.StatusOK, res)
}

// External handles POST /auth/external and POST /auth/external/:provider.
func (h *AuthHandler) External(c *gin.Context) {
	var req externalRequest
	if !h.bind(c, &req) {
		return
	}
	provider := c.Param("provider")
	if provider == "" {
		provider = req.Provider
	}
	if provider == "" {
		provider = DefaultProvider
	}
	if req.IDToken == "" {
		h.fail(c, autherr.Validation("idToken is required"))
		return
	}
	res, err := h.svc.ExternalLogin(c.Request.Context(), provider, req.IDToken, req.DisplayName)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.session(c, http.StatusOK, res)
}

// Refresh handles POST /auth/refresh. A rejected credential also clears the cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw := readRefreshCookie(c.Request, h.cookies)
	if raw == "" {
		h.fail(c, autherr.ErrInvalidCredential)
		return
	}
	res, err := h.svc.Refresh(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, autherr.ErrInvalidCredential) {
			clearRefreshCookie(c.Writer, h.cookies)
		}
		h.fail(c, err)
		return
	}
	h.session(c, http.StatusOK, res)
}

// Logout handles POST /auth/logout. It succeeds without a cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), readRefreshCookie(c.Request, h.cookies)); err != nil {
		h.fail(c, err)
		return
	}
	clearRefreshCookie(c.Writer, h.cookies)
	c.Status(http.StatusNoContent)
}

// VerifyEmail handles GET /auth/verify-email?token=.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	if err := h.svc.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResendVerification handles POST /auth/verify-email/resend.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req resendRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.ResendVerification(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword handles PATCH /auth/password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	id, _ := middleware.IdentityID(c.Request.Context())
	if err := h.svc.ChangePassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	clearRefreshCookie(c.Writer, h.cookies)
	c.Status(http.StatusNoContent)
}

// DeleteAccount handles DELETE /auth/account.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	id, _ := middleware.IdentityID(c.Request.Context())
	if err := h.svc.DeleteAccount(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	clearRefreshCookie(c.Writer, h.cookies)
	c.Status(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	id, _ := middleware.IdentityID(c.Request.Context())
	ident, err := h.svc.Me(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toMe(ident))
}

func toMe(i *domain.Identity) MeResponse {
	roles := i.Roles
	if roles == nil {
		roles = []string{}
	}
	return MeResponse{
		ID:            i.ID,
		Email:         i.Email,
		Roles:         roles,
		EmailVerified: i.EmailVerified,
		Provider:      string(i.Provider.Kind),
		ProviderName:  i.Provider.Name,
	}
}

func (h *AuthHandler) session(c *gin.Context, status int, res *service.AuthResult) {
	setRefreshCookie(c.Writer, h.cookies, res.RefreshToken, res.RefreshExpiresAt, h.now())
	c.JSON(status, TokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   res.ExpiresIn,
		IdentityID:  res.IdentityID,
	})
}

func (h *AuthHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, autherr.Validation("request body must be a JSON object"))
		return false
	}
	return true
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	middleware.AbortWithError(c, h.log, err)
}
