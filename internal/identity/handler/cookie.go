package handler

import (
	"math"
	"net/http"
	"time"
)

// CookieConfig describes the refresh cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func (c CookieConfig) normalize() CookieConfig {
	if c.Name == "" {
		c.Name = "refresh_token"
	}
	if c.Path == "" {
		c.Path = "/auth"
	}
	if c.SameSite != http.SameSiteStrictMode {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

// setRefreshCookie writes the refresh credential with Max-Age equal to its
// remaining lifetime at now.
func setRefreshCookie(w http.ResponseWriter, cfg CookieConfig, value string, expiresAt, now time.Time) {
	cfg = cfg.normalize()
	maxAge := int(math.Ceil(expiresAt.Sub(now).Seconds()))
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// clearRefreshCookie expires the refresh cookie. net/http renders a negative
// MaxAge as "Max-Age=0".
func clearRefreshCookie(w http.ResponseWriter, cfg CookieConfig) {
	cfg = cfg.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

func readRefreshCookie(r *http.Request, cfg CookieConfig) string {
	c, err := r.Cookie(cfg.normalize().Name)
	if err != nil {
		return ""
	}
	return c.Value
}
