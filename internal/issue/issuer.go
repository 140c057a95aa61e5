package issue

import (
	"errors"
	"fmt"

	natsjwt "github.com/nats-io/jwt/v2"
	"github.com/nats-io/nkeys"

	"github.com/nerval-io/gatehouse/internal/core"
)

var _ core.CredentialIssuer = (*AccountIssuer)(nil)

// AccountIssuer signs user claims with the account key configured as the
// auth_callout issuer. It is the only place apart from the callout handler
// that touches the signing key.
type AccountIssuer struct {
	signer nkeys.KeyPair
}

func NewAccountIssuer(signer nkeys.KeyPair) (*AccountIssuer, error) {
	if signer == nil {
		return nil, errors.New("signing key is required")
	}
	pub, err := signer.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("reading signing public key: %w", err)
	}
	if !nkeys.IsValidPublicAccountKey(pub) {
		return nil, fmt.Errorf("signing key must be an account key, got %q", pub)
	}
	return &AccountIssuer{signer: signer}, nil
}

func (i *AccountIssuer) Issue(claims *natsjwt.UserClaims) (string, error) {
	if claims == nil {
		return "", errors.New("user claims are required")
	}
	if !nkeys.IsValidPublicUserKey(claims.Subject) {
		return "", fmt.Errorf("claims subject %q is not a user key", claims.Subject)
	}
	token, err := claims.Encode(i.signer)
	if err != nil {
		return "", fmt.Errorf("encoding user claims: %w", err)
	}
	return token, nil
}
