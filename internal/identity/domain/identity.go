package domain

import (
	"strings"
	"time"
)

// ProviderKind tags where an identity's credentials come from.
type ProviderKind string

const (
	ProviderLocal    ProviderKind = "LOCAL"
	ProviderExternal ProviderKind = "EXTERNAL"
)

// Provider is the provenance of an identity. Name is empty for LOCAL and
// names the external issuer (e.g. "google") for EXTERNAL.
type Provider struct {
	Kind ProviderKind
	Name string
}

// Local is the provider of password identities.
var Local = Provider{Kind: ProviderLocal}

// External returns the provider for an external identity source.
func External(name string) Provider { return Provider{Kind: ProviderExternal, Name: name} }

// Roles carried in the access token.
const (
	// RoleUser is granted to every new identity.
	RoleUser = "USER"
	// RoleAdmin is granted only by cmd/seed.
	RoleAdmin = "ADMIN"
)

// Identity is one account able to authenticate. Email is always stored normalized.
type Identity struct {
	ID string
	// Email is unique across all providers.
	Email string
	// PasswordHash is a bcrypt hash. EXTERNAL identities carry the hash of a
	// random secret that is never handed out.
	PasswordHash  string
	Provider      Provider
	Roles         []string
	EmailVerified bool
	// VerificationTokenHash and VerificationExpiresAt hold the outstanding
	// email proof, if any.
	VerificationTokenHash string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsLocal reports whether the identity logs in with a password.
func (i *Identity) IsLocal() bool { return i.Provider.Kind == ProviderLocal }

// HasPendingProof reports whether an unexpired email proof is outstanding at now.
func (i *Identity) HasPendingProof(now time.Time) bool {
	return i.VerificationTokenHash != "" && i.VerificationExpiresAt != nil && now.Before(*i.VerificationExpiresAt)
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// Every lookup and write goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// JoinRoles encodes roles for storage and the access-token claim.
func JoinRoles(roles []string) string { return strings.Join(roles, ",") }

// SplitRoles decodes a comma-joined role list, dropping blanks.
func SplitRoles(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// DisplayName returns name trimmed, or a title-cased rendering of the email
// local part ("jane.doe@x" -> "Jane Doe"), or "User".
func DisplayName(name, email string) string {
	if v := strings.TrimSpace(name); v != "" {
		return v
	}
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	parts := strings.Fields(strings.ToLower(local))
	for i, p := range parts {
		r := []rune(p)
		parts[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	if len(parts) == 0 {
		return "User"
	}
	return strings.Join(parts, " ")
}
