package middleware

import "context"

type contextKey struct{ name string }

var (
	identityIDKey = contextKey{"identity_id"}
	emailKey      = contextKey{"email"}
	clientIPKey   = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, identityID, email string) context.Context {
	ctx = context.WithValue(ctx, identityIDKey, identityID)
	return context.WithValue(ctx, emailKey, email)
}

// IdentityID returns the identity id set by RequireBearer and true if set.
func IdentityID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(identityIDKey).(string)
	return v, ok && v != ""
}

// Email returns the email claim of the access token, if any.
func Email(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(emailKey).(string)
	return v, ok
}

// WithClientIP returns a context carrying the caller's address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the address recorded by the ClientIP middleware, or ""
// when none was set. It has the shape of audit.IPExtractor.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
