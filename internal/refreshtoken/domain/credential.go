package domain

import "time"

// RefreshCredential is one outstanding refresh token. Only the SHA-256 hash
// of the raw secret is stored.
type RefreshCredential struct {
	ID             string
	IdentityID     string
	TokenHash      string
	ExpiresAt      time.Time
	RevokedAt      *time.Time // nil while not revoked; never cleared once set
	ReplacedByHash string     // hash of the credential issued by rotation; empty otherwise
	CreatedAt      time.Time
}

// IsActive reports whether the credential is unrevoked and unexpired at now.
func (c *RefreshCredential) IsActive(now time.Time) bool {
	return c.RevokedAt == nil && now.Before(c.ExpiresAt)
}

// IsExpired reports whether the expiry has passed at now.
func (c *RefreshCredential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// WasRotated reports whether the credential was revoked by being exchanged
// for a successor, as opposed to logout or a full revocation.
func (c *RefreshCredential) WasRotated() bool {
	return c.RevokedAt != nil && c.ReplacedByHash != ""
}
