package callout

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	natsjwt "github.com/nats-io/jwt/v2"
	"github.com/nats-io/nkeys"
	"github.com/rs/zerolog/log"

	"github.com/nerval-io/gatehouse/internal/core"
)

const (
	// jwtPrefix is the fixed first bytes of every encoded claims document
	// (the base64url form of `{"typ"`). A payload that does not start with
	// it is classified as sealed. This is a classification signal only,
	// the decrypt/verify steps below provide the actual assurance.
	jwtPrefix = "eyJ0"

	// ServerXKeyHeader carries the server's encryption public key when the
	// callout exchange is xkey-sealed.
	ServerXKeyHeader = "Nats-Server-Xkey"

	// AuthRequestAudience is the fixed audience the NATS server sets on every
	// authorization request claims document. The nats-io/jwt library does not
	// export this value.
	AuthRequestAudience = "nats-authorization-request"
)

// Mode is the encryption setting of a Handler, fixed at construction.
// The server's auth_callout block and the service must agree on it; a
// per-request mismatch in either direction is rejected before any decode.
type Mode int

const (
	ModePlaintext Mode = iota
	ModeEncrypted
)

func (m Mode) String() string {
	if m == ModeEncrypted {
		return "encrypted"
	}
	return "plaintext"
}

// Headers is the read side of the transport headers of a callout request.
// Satisfied by micro.Headers and nats.Header.
type Headers interface {
	Get(key string) string
}

// Handler implements the auth-callout exchange: it turns raw request bytes
// plus transport headers into raw, signed response bytes. It holds only
// construction-time keys and is safe for concurrent use.
type Handler struct {
	signer nkeys.KeyPair // account key, signs responses
	curve  nkeys.KeyPair // xkey pair, nil unless mode is ModeEncrypted
	mode   Mode
	auth   core.Authorizer
}

type Option func(*Handler) error

// WithEncryption puts the handler into encrypted mode. Every request must
// then be sealed for this curve key, and every response is sealed back to
// the server's xkey from the request headers.
func WithEncryption(curve nkeys.KeyPair) Option {
	return func(h *Handler) error {
		pub, err := curve.PublicKey()
		if err != nil {
			return fmt.Errorf("reading encryption public key: %w", err)
		}
		if !nkeys.IsValidPublicCurveKey(pub) {
			return fmt.Errorf("encryption key must be a curve (x)key, got %q", pub)
		}
		h.curve = curve
		h.mode = ModeEncrypted
		return nil
	}
}

// New builds a Handler around the account signing key and the authorizer.
// The signing key must classify as an account key: responses and issued
// user credentials are only trusted by the server if the configured
// auth_callout issuer signed them.
func New(signer nkeys.KeyPair, auth core.Authorizer, opts ...Option) (*Handler, error) {
	if signer == nil {
		return nil, errors.New("signing key is required")
	}
	if auth == nil {
		return nil, errors.New("authorizer is required")
	}

	pub, err := signer.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("reading signing public key: %w", err)
	}
	if !nkeys.IsValidPublicAccountKey(pub) {
		return nil, fmt.Errorf("signing key must be an account key, got %q", pub)
	}

	h := &Handler{
		signer: signer,
		mode:   ModePlaintext,
		auth:   auth,
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Mode returns the encryption setting of this handler.
func (h *Handler) Mode() Mode {
	return h.mode
}

// Handle processes one callout request and returns the raw reply bytes.
// All verification failures come back wrapped in one of the sentinel
// errors of this package; an authorizer rejection is not a failure and
// still produces a signed response.
func (h *Handler) Handle(ctx context.Context, data []byte, hdr Headers) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	sealed := !bytes.HasPrefix(data, []byte(jwtPrefix))
	switch {
	case sealed && h.mode == ModePlaintext:
		return nil, fmt.Errorf("%w: received a sealed request but no encryption key is configured", ErrConfigMismatch)
	case !sealed && h.mode == ModeEncrypted:
		return nil, fmt.Errorf("%w: received a plaintext request but encryption is required", ErrConfigMismatch)
	}

	payload := data
	var serverXKey string
	if sealed {
		if hdr != nil {
			serverXKey = hdr.Get(ServerXKeyHeader)
		}
		if serverXKey == "" {
			return nil, fmt.Errorf("%w: missing %s header", ErrDecryption, ServerXKeyHeader)
		}
		var err error
		if payload, err = h.curve.Open(data, serverXKey); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
		}
	}

	arc, err := natsjwt.DecodeAuthorizationRequestClaims(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if arc.Audience != AuthRequestAudience {
		return nil, fmt.Errorf("%w: %q", ErrAudience, arc.Audience)
	}
	if arc.UserNkey == "" || arc.Server.ID == "" {
		return nil, fmt.Errorf("%w: request body is missing", ErrMalformed)
	}
	if !nkeys.IsValidPublicServerKey(arc.Server.ID) {
		return nil, fmt.Errorf("%w: server_id %q is not a server key", ErrKeyType, arc.Server.ID)
	}
	if sealed && arc.Server.XKey != serverXKey {
		// the payload was relayed under a different peer's header
		return nil, fmt.Errorf("%w: request declares %q", ErrXKeyMismatch, arc.Server.XKey)
	}

	req := &core.Request{
		UserNkey:       arc.UserNkey,
		Server:         arc.Server,
		ClientInfo:     arc.ClientInformation,
		ConnectOptions: arc.ConnectOptions,
		TLS:            arc.TLS,
	}

	log.Ctx(ctx).Debug().
		Str("user_nkey", req.UserNkey).
		Str("server_id", req.Server.ID).
		Str("mode", h.mode.String()).
		Msg("callout request verified")

	decision, err := h.auth.Authorize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorizer, err)
	}
	if decision == nil || (decision.UserJWT == "") == (decision.Error == "") {
		return nil, fmt.Errorf("%w: decision must carry exactly one of jwt or error", ErrAuthorizer)
	}

	rc := natsjwt.NewAuthorizationResponseClaims(req.UserNkey)
	rc.Audience = req.Server.ID
	rc.Jwt = decision.UserJWT
	rc.Error = decision.Error

	token, err := rc.Encode(h.signer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	out := []byte(token)
	if sealed {
		if out, err = h.curve.Seal(out, serverXKey); err != nil {
			return nil, fmt.Errorf("%w: sealing response: %v", ErrSigning, err)
		}
	}
	return out, nil
}
