package authorizers

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/nerval-io/gatehouse/internal/config"
	"github.com/nerval-io/gatehouse/internal/core"
)

var _ core.Authorizer = (*Policy)(nil)

// PolicyRule binds a match expression to an outcome. Rules are evaluated
// in config order; the first one whose expression is true decides.
type PolicyRule struct {
	Name string `mapstructure:"name"`

	// Expr is evaluated against the connection environment (user, name,
	// host, kind, tls). It must yield a bool.
	Expr string `mapstructure:"expr"`

	// Deny turns a matching rule into a rejection instead of a grant.
	Deny bool `mapstructure:"deny"`

	Grant Grant `mapstructure:"grant"`

	compiled *vm.Program
}

type PolicyConfig struct {
	Rules []PolicyRule `mapstructure:"rules"`
}

// Policy authorizes connections by evaluating ordered match expressions
// over the connection metadata. Expressions are compiled once at build
// time.
type Policy struct {
	name   string
	rules  []PolicyRule
	issuer core.CredentialIssuer
}

// policyEnv is the expression environment. Compile gets it with zero
// values so unknown identifiers fail at build time, not per request.
func policyEnv(req *core.Request) map[string]any {
	env := map[string]any{
		"user": "",
		"name": "",
		"host": "",
		"kind": "",
		"tls":  false,
	}
	if req != nil {
		env["user"] = req.ConnectOptions.Username
		env["name"] = req.ClientInfo.Name
		env["host"] = req.ClientInfo.Host
		env["kind"] = req.ClientInfo.Kind
		env["tls"] = req.TLS != nil
	}
	return env
}

func NewPolicy(cfg config.AuthorizerConfig, issuer core.CredentialIssuer) (*Policy, error) {
	var conf PolicyConfig
	if err := decodeConfig(cfg.Config, &conf); err != nil {
		return nil, err
	}
	if len(conf.Rules) == 0 {
		return nil, fmt.Errorf("no rules configured")
	}

	for idx := range conf.Rules {
		rule := &conf.Rules[idx]
		if rule.Name == "" {
			return nil, fmt.Errorf("rule at index %d has empty name", idx)
		}
		if rule.Expr == "" {
			return nil, fmt.Errorf("rule %q has empty expr", rule.Name)
		}
		program, err := expr.Compile(rule.Expr, expr.Env(policyEnv(nil)), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compiling expr of rule %q: %w", rule.Name, err)
		}
		rule.compiled = program
	}

	return &Policy{
		name:   cfg.Name,
		rules:  conf.Rules,
		issuer: issuer,
	}, nil
}

func (p *Policy) Name() string {
	return p.name
}

func (p *Policy) Authorize(ctx context.Context, req *core.Request) (*core.Decision, error) {
	env := policyEnv(req)

	for _, rule := range p.rules {
		out, err := expr.Run(rule.compiled, env)
		if err != nil {
			return nil, fmt.Errorf("evaluating rule %q: %w", rule.Name, err)
		}
		matched, ok := out.(bool)
		if !ok || !matched {
			continue
		}

		log.Ctx(ctx).Debug().Str("rule", rule.Name).Bool("deny", rule.Deny).Msg("policy rule matched")

		if rule.Deny {
			return core.Deny(fmt.Sprintf("denied by rule %q", rule.Name)), nil
		}
		token, err := p.issuer.Issue(rule.Grant.Claims(req.UserNkey, req.ConnectOptions.Username))
		if err != nil {
			return nil, fmt.Errorf("issuing credential via rule %q: %w", rule.Name, err)
		}
		return core.Allow(token), nil
	}

	return core.Deny("no policy rule matched"), nil
}
