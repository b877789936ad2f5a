package autherr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ErrBadCredentials, http.StatusUnauthorized, "bad_credentials"},
		{ErrDuplicateEmail, http.StatusConflict, "email_taken"},
		{fmt.Errorf("rotate: %w", ErrInvalidCredential), http.StatusUnauthorized, "invalid_refresh"},
		{ErrInvalidExternalToken, http.StatusUnauthorized, "invalid_external_token"},
		{ErrEmailNotVerified, http.StatusForbidden, "email_not_verified"},
		{ErrInvalidProof, http.StatusBadRequest, "token_invalid"},
		{ErrExpiredProof, http.StatusGone, "token_expired"},
		{ErrPasswordChangeNotAllowed, http.StatusForbidden, "password_change_not_allowed"},
		{ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{ErrValidation, http.StatusBadRequest, "validation_error"},
		{errors.New("connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			got := Resolve(tc.err)
			if got.Status != tc.status || got.Code != tc.code {
				t.Errorf("Resolve(%v) = %d %s, want %d %s", tc.err, got.Status, got.Code, tc.status, tc.code)
			}
		})
	}
}

func TestValidation(t *testing.T) {
	err := Validation("email %q is invalid", "x")
	if !errors.Is(err, ErrValidation) {
		t.Fatal("Validation should wrap ErrValidation")
	}
	got := Resolve(fmt.Errorf("register: %w", err))
	if got.Message != `email "x" is invalid` || got.Status != http.StatusBadRequest {
		t.Errorf("Resolve = %+v", got)
	}
	if !IsClientError(err) || IsClientError(errors.New("boom")) {
		t.Error("IsClientError misclassified")
	}
}

func TestInternalErrorsHideDetail(t *testing.T) {
	got := Resolve(errors.New("pq: password authentication failed for user admin"))
	if got.Message != "internal server error" {
		t.Errorf("internal detail leaked: %q", got.Message)
	}
}
