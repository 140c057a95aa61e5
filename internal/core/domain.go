package core

import (
	natsjwt "github.com/nats-io/jwt/v2"
)

// Request is the verified authorization request handed to an Authorizer.
// It is a read-only view of the decoded callout claims: by the time an
// Authorizer sees it, the envelope signature, audience and server key type
// have already been checked.
type Request struct {
	// UserNkey is the public user key the server assigned to the
	// connecting client. Issued credentials must use it as their subject.
	UserNkey string

	// Server identifies the NATS server instance that sent the callout.
	Server natsjwt.ServerID

	// ClientInfo carries connection metadata (client name, host, kind, ...).
	ClientInfo natsjwt.ClientInformation

	// ConnectOptions are the raw client-supplied credentials
	// (username, password, auth token, JWT).
	ConnectOptions natsjwt.ConnectOptions

	// TLS holds the client certificate chain, if the connection presented one.
	TLS *natsjwt.ClientTLS
}

// Decision is the outcome of an authorization check.
// Exactly one of UserJWT or Error is set: either the client gets a signed
// user credential, or a reason why not. A rejection is a normal outcome,
// not a Go error.
type Decision struct {
	// UserJWT is the encoded user credential granting the connection.
	UserJWT string

	// Error is the human-readable rejection reason.
	Error string
}

// Allow builds an accepting decision carrying the issued credential.
func Allow(userJWT string) *Decision {
	return &Decision{UserJWT: userJWT}
}

// Deny builds a rejecting decision with the given reason.
func Deny(reason string) *Decision {
	return &Decision{Error: reason}
}

// Rejected reports whether the decision denies the connection.
func (d *Decision) Rejected() bool {
	return d.Error != ""
}
