package callout

import "errors"

// Failure categories for a callout exchange. The service wiring matches on
// these with errors.Is to pick a reply code and a log level; the wire reply
// itself never echoes the category (clients only ever see a generic
// authorization failure).
var (
	// ErrMalformed covers payloads that are not a well-formed claims
	// document or that lack the embedded request body.
	ErrMalformed = errors.New("malformed authorization request")

	// ErrAudience is returned when the claims audience is not the fixed
	// authorization-request audience.
	ErrAudience = errors.New("unexpected request audience")

	// ErrConfigMismatch means the local encryption setting and the observed
	// payload disagree. This points at a deployment misconfiguration
	// between server and service, not at a bad client.
	ErrConfigMismatch = errors.New("encryption configuration mismatch")

	// ErrDecryption means a sealed payload could not be opened for the
	// claimed server xkey.
	ErrDecryption = errors.New("opening sealed request failed")

	// ErrKeyType means an identity in the request does not classify as the
	// expected nkey type.
	ErrKeyType = errors.New("unexpected key type")

	// ErrXKeyMismatch means the server xkey inside the decrypted request
	// differs from the one in the transport header used to open it.
	ErrXKeyMismatch = errors.New("server xkey does not match transport header")

	// ErrAuthorizer wraps unexpected failures raised by the Authorizer.
	ErrAuthorizer = errors.New("authorizer failure")

	// ErrSigning covers failures encoding, signing or sealing the response.
	ErrSigning = errors.New("building response failed")
)
