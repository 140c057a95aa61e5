package authorizers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/nerval-io/gatehouse/internal/config"
	"github.com/nerval-io/gatehouse/internal/core"
)

var _ core.Authorizer = (*Allow)(nil)

type AllowConfig struct {
	Grant Grant `mapstructure:"grant"`
}

// Allow accepts every connection with a fixed grant. Meant for local
// development and tests, never for production deployments.
type Allow struct {
	name   string
	grant  Grant
	issuer core.CredentialIssuer
}

func NewAllow(cfg config.AuthorizerConfig, issuer core.CredentialIssuer) (*Allow, error) {
	var conf AllowConfig
	if err := decodeConfig(cfg.Config, &conf); err != nil {
		return nil, err
	}
	log.Warn().Str("authorizer", cfg.Name).Msg("allow-all authorizer configured, every connection will be accepted")
	return &Allow{
		name:   cfg.Name,
		grant:  conf.Grant,
		issuer: issuer,
	}, nil
}

func (a *Allow) Name() string {
	return a.name
}

func (a *Allow) Authorize(ctx context.Context, req *core.Request) (*core.Decision, error) {
	token, err := a.issuer.Issue(a.grant.Claims(req.UserNkey, req.ConnectOptions.Username))
	if err != nil {
		return nil, fmt.Errorf("issuing credential: %w", err)
	}
	return core.Allow(token), nil
}
