package service

import (
	"errors"

	"github.com/nerval-io/gatehouse/internal/callout"
)

// replyCode maps a handler failure to the numeric code and generic message
// returned to the server. The specific category only shows up in logs and
// audit entries, never on the wire.
func replyCode(err error) (code string, msg string) {
	switch {
	case errors.Is(err, callout.ErrAuthorizer), errors.Is(err, callout.ErrSigning):
		return "500", "authorization service failure"
	case errors.Is(err, callout.ErrConfigMismatch),
		errors.Is(err, callout.ErrDecryption),
		errors.Is(err, callout.ErrXKeyMismatch):
		return "403", "authorization failed"
	default:
		return "400", "authorization failed"
	}
}
