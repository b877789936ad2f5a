package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"auth-service/internal/logger"
)

const (
	allowQuery  = "data.authsvc.login.allow"
	reasonQuery = "data.authsvc.login.deny_reason"
)

// DefaultAdmissionPolicy admits external identities unconditionally and local
// identities once their email is verified, unless verification is switched off.
const DefaultAdmissionPolicy = `package authsvc.login

default allow := false

default deny_reason := ""

allow if {
	input.identity.provider == "EXTERNAL"
}

allow if {
	not input.settings.require_email_verification
}

allow if {
	input.identity.email_verified
}

deny_reason := "email_not_verified" if {
	not allow
	not input.identity.email_verified
}
`

// OPAEvaluator evaluates login admission with an in-process Rego policy.
type OPAEvaluator struct {
	compiler *ast.Compiler
	log      *logger.Logger
}

// NewOPAEvaluator compiles policy, or DefaultAdmissionPolicy when policy is empty.
func NewOPAEvaluator(policy string, log *logger.Logger) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultAdmissionPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"login.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile admission policy: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &OPAEvaluator{compiler: compiler, log: log}, nil
}

// NewOPAEvaluatorFromFile reads the policy at path. An empty path selects the default policy.
func NewOPAEvaluatorFromFile(path string, log *logger.Logger) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator("", log)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read admission policy: %w", err)
	}
	return NewOPAEvaluator(string(raw), log)
}

// HealthCheck evaluates the compiled policy against a minimal input.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.eval(ctx, AdmissionInput{Provider: "LOCAL", RequireEmailVerification: true})
	return err
}

// EvaluateAdmission evaluates the policy. When evaluation fails it logs and
// falls back to the built-in rule.
func (e *OPAEvaluator) EvaluateAdmission(ctx context.Context, in AdmissionInput) (AdmissionResult, error) {
	res, err := e.eval(ctx, in)
	if err != nil {
		e.log.Warn("policy: admission evaluation failed, using built-in rule", "error", err)
		return builtinAdmission(in), nil
	}
	return res, nil
}

func (e *OPAEvaluator) eval(ctx context.Context, in AdmissionInput) (AdmissionResult, error) {
	input := map[string]interface{}{
		"identity": map[string]interface{}{
			"provider":       in.Provider,
			"email_verified": in.EmailVerified,
		},
		"settings": map[string]interface{}{
			"require_email_verification": in.RequireEmailVerification,
		},
	}

	allowRS, err := rego.New(rego.Query(allowQuery), rego.Compiler(e.compiler), rego.Input(input)).Eval(ctx)
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("eval allow: %w", err)
	}
	if len(allowRS) == 0 || len(allowRS[0].Expressions) == 0 {
		return AdmissionResult{}, fmt.Errorf("policy query returned no result")
	}
	allow, ok := allowRS[0].Expressions[0].Value.(bool)
	if !ok {
		return AdmissionResult{}, fmt.Errorf("allow is %T, want bool", allowRS[0].Expressions[0].Value)
	}
	out := AdmissionResult{Allow: allow}
	if allow {
		return out, nil
	}

	reasonRS, err := rego.New(rego.Query(reasonQuery), rego.Compiler(e.compiler), rego.Input(input)).Eval(ctx)
	if err == nil && len(reasonRS) > 0 && len(reasonRS[0].Expressions) > 0 {
		if v, ok := reasonRS[0].Expressions[0].Value.(string); ok {
			out.Reason = v
		}
	}
	return out, nil
}
