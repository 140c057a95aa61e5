package authorizers

import (
	"time"

	natsjwt "github.com/nats-io/jwt/v2"
)

// Grant describes the credential an authorizer issues when it accepts a
// connection. Interpretation of the subjects follows NATS permission
// wildcard rules; the server enforces them, not this service.
type Grant struct {
	// Account is the account the user is placed into. Defaults to the
	// global account.
	Account string `mapstructure:"account"`

	PubAllow []string `mapstructure:"pub_allow"`
	PubDeny  []string `mapstructure:"pub_deny"`
	SubAllow []string `mapstructure:"sub_allow"`
	SubDeny  []string `mapstructure:"sub_deny"`

	// TTL limits the credential lifetime. Zero means no expiry, the
	// credential lives as long as the connection.
	TTL time.Duration `mapstructure:"ttl"`
}

const defaultAccount = "$G"

// Claims builds the user claims for this grant. The subject is the user
// nkey the server assigned, the audience the target account.
func (g Grant) Claims(userNkey, name string) *natsjwt.UserClaims {
	uc := natsjwt.NewUserClaims(userNkey)
	uc.Name = name
	uc.Audience = g.Account
	if uc.Audience == "" {
		uc.Audience = defaultAccount
	}
	uc.Pub.Allow.Add(g.PubAllow...)
	uc.Pub.Deny.Add(g.PubDeny...)
	uc.Sub.Allow.Add(g.SubAllow...)
	uc.Sub.Deny.Add(g.SubDeny...)
	if g.TTL > 0 {
		uc.Expires = time.Now().Add(g.TTL).Unix()
	}
	return uc
}
