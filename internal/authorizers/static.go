package authorizers

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/nerval-io/gatehouse/internal/config"
	"github.com/nerval-io/gatehouse/internal/core"
)

var _ core.Authorizer = (*Static)(nil)

// StaticUser is one entry of the static user table. Either a bcrypt hash
// or (for test setups) a plain password must be given, not both.
type StaticUser struct {
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
	Grant        Grant  `mapstructure:"grant"`
}

type StaticConfig struct {
	Users map[string]StaticUser `mapstructure:"users"`
}

// Static authorizes connections against a fixed user table from the config
// file.
type Static struct {
	name   string
	users  map[string]StaticUser
	issuer core.CredentialIssuer
}

func NewStatic(cfg config.AuthorizerConfig, issuer core.CredentialIssuer) (*Static, error) {
	var conf StaticConfig
	if err := decodeConfig(cfg.Config, &conf); err != nil {
		return nil, err
	}
	if len(conf.Users) == 0 {
		return nil, fmt.Errorf("no users configured")
	}
	for name, user := range conf.Users {
		if (user.Password == "") == (user.PasswordHash == "") {
			return nil, fmt.Errorf("user %q needs exactly one of password or password_hash", name)
		}
	}
	return &Static{
		name:   cfg.Name,
		users:  conf.Users,
		issuer: issuer,
	}, nil
}

func (s *Static) Name() string {
	return s.name
}

func (s *Static) Authorize(ctx context.Context, req *core.Request) (*core.Decision, error) {
	username := req.ConnectOptions.Username
	user, ok := s.users[username]
	if !ok {
		return core.Deny("unknown user"), nil
	}

	if !user.checkPassword(req.ConnectOptions.Password) {
		log.Ctx(ctx).Debug().Str("user", username).Msg("static authorizer: password mismatch")
		return core.Deny("invalid credentials"), nil
	}

	token, err := s.issuer.Issue(user.Grant.Claims(req.UserNkey, username))
	if err != nil {
		return nil, fmt.Errorf("issuing credential for %q: %w", username, err)
	}
	return core.Allow(token), nil
}

func (u StaticUser) checkPassword(given string) bool {
	if u.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(given)) == 1
}
