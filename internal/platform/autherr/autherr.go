// Package autherr defines the client-facing error taxonomy of the auth flows
// and how each kind maps onto an HTTP status and a stable code.
package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrBadCredentials covers both unknown email and wrong password.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrDuplicateEmail is returned when the normalized email is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredential is returned for any refresh credential that is absent,
	// expired, revoked or replayed. Callers are not told which.
	ErrInvalidCredential = errors.New("invalid refresh credential")
	// ErrInvalidExternalToken is returned when a third-party identity token fails verification.
	ErrInvalidExternalToken = errors.New("invalid external identity token")
	// ErrEmailNotVerified refuses local login until the email is proven.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidProof is returned for an unknown or already consumed proof token.
	ErrInvalidProof = errors.New("invalid verification token")
	// ErrExpiredProof is returned for a proof token past its expiry.
	ErrExpiredProof = errors.New("verification token expired")
	// ErrPasswordChangeNotAllowed is returned for identities without a local password.
	ErrPasswordChangeNotAllowed = errors.New("password change not allowed")
	// ErrValidation marks a malformed request.
	ErrValidation = errors.New("validation error")
	// ErrUnauthenticated is returned when a bearer access token is missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Validation returns an error wrapping ErrValidation with a field message.
func Validation(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrValidation }

// Error is the resolved client view of an error.
type Error struct {
	Status  int
	Code    string
	Message string
}

var table = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{ErrBadCredentials, http.StatusUnauthorized, "bad_credentials", "invalid email or password"},
	{ErrDuplicateEmail, http.StatusConflict, "email_taken", "email is already registered"},
	{ErrInvalidCredential, http.StatusUnauthorized, "invalid_refresh", "refresh credential is invalid"},
	{ErrInvalidExternalToken, http.StatusUnauthorized, "invalid_external_token", "external identity token is invalid"},
	{ErrEmailNotVerified, http.StatusForbidden, "email_not_verified", "email address has not been verified"},
	{ErrInvalidProof, http.StatusBadRequest, "token_invalid", "verification token is invalid"},
	{ErrExpiredProof, http.StatusGone, "token_expired", "verification token has expired"},
	{ErrPasswordChangeNotAllowed, http.StatusForbidden, "password_change_not_allowed", "this account has no local password"},
	{ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "authentication required"},
}

// Resolve maps err onto its client representation. Validation errors carry
// their own message; anything outside the taxonomy becomes a generic 500.
func Resolve(err error) Error {
	var ve *validationError
	if errors.As(err, &ve) {
		return Error{Status: http.StatusBadRequest, Code: "validation_error", Message: ve.msg}
	}
	if errors.Is(err, ErrValidation) {
		return Error{Status: http.StatusBadRequest, Code: "validation_error", Message: "request is invalid"}
	}
	for _, row := range table {
		if errors.Is(err, row.err) {
			return Error{Status: row.status, Code: row.code, Message: row.message}
		}
	}
	return Error{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
}

// IsClientError reports whether err belongs to the taxonomy.
func IsClientError(err error) bool {
	return Resolve(err).Status < http.StatusInternalServerError
}
