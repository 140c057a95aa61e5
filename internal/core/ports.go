package core

import (
	"context"

	natsjwt "github.com/nats-io/jwt/v2"
)

// Authorizer decides whether a connecting client may join and with which
// permissions. Implementations: static user table, token verifier, policy
// engine, chain.
type Authorizer interface {
	// Name returns the identifier of this authorizer (as used in config).
	Name() string

	// Authorize takes a verified request and returns a decision.
	// Ordinary rejections go into Decision.Error; an error return means
	// the authorizer itself failed (lookup backend down, bad state).
	Authorize(ctx context.Context, req *Request) (*Decision, error)
}

// CredentialIssuer signs user claims on behalf of the configured account.
// Authorizers mint credentials through it instead of holding key material.
type CredentialIssuer interface {
	// Issue encodes and signs the given user claims, returning the JWT.
	Issue(claims *natsjwt.UserClaims) (string, error)
}
