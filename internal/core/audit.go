package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID assigned by the service wiring.
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "auth.request")
	Action string `json:"action"`

	// User is the user nkey the server assigned to the client.
	User string `json:"user,omitempty"`

	// Name is the client-requested user name, if any.
	Name string `json:"name,omitempty"`

	// Host is the client's remote address.
	Host string `json:"host,omitempty"`

	// Server is the ID of the NATS server that sent the callout.
	Server string `json:"server,omitempty"`

	// Authorizer that produced the decision.
	Authorizer string `json:"authorizer,omitempty"`

	// Decision details
	Granted bool   `json:"granted"`
	Error   string `json:"error,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}
