package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed,
	// issued by someone else, or expired.
	ErrInvalidToken = errors.New("invalid token")
)

// DefaultLeeway is the clock skew tolerated on the issued-at claim.
const DefaultLeeway = 60 * time.Second

// AccessClaims holds JWT claims for the access token. Roles are comma-joined.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Roles string `json:"roles"`
}

// RoleList splits the comma-joined roles claim.
func (c *AccessClaims) RoleList() []string {
	if c.Roles == "" {
		return nil
	}
	return strings.Split(c.Roles, ",")
}

// TokenCodec issues and validates short-lived access tokens.
type TokenCodec struct {
	key    SigningKey
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// NewTokenCodec returns a codec signing with key. ttl is the access-token lifetime.
func NewTokenCodec(key SigningKey, issuer string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		key:    key,
		issuer: issuer,
		ttl:    ttl,
		leeway: DefaultLeeway,
		now:    time.Now,
	}
}

// WithClock returns a copy of the codec that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL returns the configured access-token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// IssueAccessToken signs a token for the identity and returns it with its
// lifetime in seconds.
func (c *TokenCodec) IssueAccessToken(identityID, email string, roles []string) (string, int64, error) {
	if c.key.method == nil {
		return "", 0, ErrInvalidKey
	}
	now := c.now().UTC()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Email: email,
		Roles: strings.Join(roles, ","),
	}
	token, err := jwt.NewWithClaims(c.key.method, claims).SignedString(c.key.sign)
	if err != nil {
		return "", 0, err
	}
	return token, int64(c.ttl / time.Second), nil
}

// ValidateAccess verifies signature and issuer, rejects the token once
// now >= exp, and tolerates an issued-at up to the leeway in the future.
func (c *TokenCodec) ValidateAccess(tokenString string) (*AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.key.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &AccessClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return c.key.verify, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != c.issuer || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	now := c.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(now.Add(c.leeway)) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
