package authorizers

import (
	"context"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/nerval-io/gatehouse/internal/config"
	"github.com/nerval-io/gatehouse/internal/core"
)

var _ core.Authorizer = (*Token)(nil)

type TokenConfig struct {
	// Secret is the shared HMAC secret the upstream system signs its
	// bearer tokens with.
	Secret string `mapstructure:"secret"`

	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string `mapstructure:"issuer"`

	Grant Grant `mapstructure:"grant"`
}

// Token authorizes connections that present a JWT as their auth token.
// An upstream system (CI, a provisioning portal) signs short-lived tokens
// with the shared secret; this authorizer verifies them and exchanges them
// for NATS credentials.
type Token struct {
	name         string
	secret       []byte
	expectIssuer string
	grant        Grant
	issuer       core.CredentialIssuer
}

func NewToken(cfg config.AuthorizerConfig, issuer core.CredentialIssuer) (*Token, error) {
	var conf TokenConfig
	if err := decodeConfig(cfg.Config, &conf); err != nil {
		return nil, err
	}
	if conf.Secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	return &Token{
		name:         cfg.Name,
		secret:       []byte(conf.Secret),
		expectIssuer: conf.Issuer,
		grant:        conf.Grant,
		issuer:       issuer,
	}, nil
}

func (t *Token) Name() string {
	return t.name
}

func (t *Token) Authorize(ctx context.Context, req *core.Request) (*core.Decision, error) {
	raw := req.ConnectOptions.Token
	if raw == "" {
		return core.Deny("no auth token provided"), nil
	}

	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwtv5.WithExpirationRequired(),
	}
	if t.expectIssuer != "" {
		opts = append(opts, jwtv5.WithIssuer(t.expectIssuer))
	}

	var claims jwtv5.RegisteredClaims
	if _, err := jwtv5.ParseWithClaims(raw, &claims, func(*jwtv5.Token) (any, error) {
		return t.secret, nil
	}, opts...); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("token authorizer: verification failed")
		return core.Deny("token verification failed"), nil
	}

	name := claims.Subject
	if name == "" {
		name = req.ConnectOptions.Username
	}

	token, err := t.issuer.Issue(t.grant.Claims(req.UserNkey, name))
	if err != nil {
		return nil, fmt.Errorf("issuing credential for %q: %w", name, err)
	}
	return core.Allow(token), nil
}
