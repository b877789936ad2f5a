// Package external verifies identity tokens issued by third-party providers.
// Verifiers return identity facts only; they never create or link accounts.
package external

import (
	"context"
	"fmt"
	"strings"

	"auth-service/internal/platform/autherr"
)

// Claims are the identity facts taken from a verified external token.
type Claims struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	// EmailVerified is nil when the token does not carry the claim.
	EmailVerified *bool
}

// Verifier validates raw tokens from one provider. Every rejection wraps
// autherr.ErrInvalidExternalToken.
type Verifier interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// Registry holds the configured verifiers by name.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry registers the given verifiers by name. Later entries win on collision.
func NewRegistry(list ...Verifier) *Registry {
	m := make(map[string]Verifier)
	for _, v := range list {
		if v != nil {
			m[v.Name()] = v
		}
	}
	return &Registry{verifiers: m}
}

// Get returns the verifier for name or a validation error if none is registered.
func (r *Registry) Get(name string) (Verifier, error) {
	v, ok := r.verifiers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, autherr.Validation("unknown identity provider %q", name)
	}
	return v, nil
}

// Names lists the registered providers.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.verifiers))
	for n := range r.verifiers {
		out = append(out, n)
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", autherr.ErrInvalidExternalToken, fmt.Sprintf(format, args...))
}
