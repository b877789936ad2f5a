package engine

import "context"

// AdmissionInput is what the login admission policy sees about an
// identity that has already proven who it is.
type AdmissionInput struct {
	Provider                 string
	EmailVerified            bool
	RequireEmailVerification bool
}

// AdmissionResult is the policy decision. Reason is set when Allow is false.
type AdmissionResult struct {
	Allow  bool
	Reason string
}

// ReasonEmailNotVerified is the deny reason for unverified local identities.
const ReasonEmailNotVerified = "email_not_verified"

// Evaluator decides whether an authenticated identity may be issued tokens.
type Evaluator interface {
	EvaluateAdmission(ctx context.Context, in AdmissionInput) (AdmissionResult, error)
}

// builtinAdmission is the decision used when no policy can be evaluated.
func builtinAdmission(in AdmissionInput) AdmissionResult {
	if in.Provider == "LOCAL" && in.RequireEmailVerification && !in.EmailVerified {
		return AdmissionResult{Allow: false, Reason: ReasonEmailNotVerified}
	}
	return AdmissionResult{Allow: true}
}
