package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/nats-io/nkeys"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nerval-io/gatehouse/internal/audit"
	"github.com/nerval-io/gatehouse/internal/buildinfo"
	"github.com/nerval-io/gatehouse/internal/callout"
	"github.com/nerval-io/gatehouse/internal/core"
)

// Subject is the fixed callout subject the NATS server sends authorization
// requests on.
const Subject = "$SYS.REQ.USER.AUTH"

// Service binds the callout handler to the micro endpoint and turns handler
// outcomes into transport replies. One audit entry is written per request.
type Service struct {
	handler *callout.Handler
	auditor core.Auditor
}

// New builds the service around the account signing key and the authorizer.
// A non-nil curve key puts the exchange into encrypted mode. The authorizer
// is wrapped so every decision lands in the request's audit entry.
func New(signer nkeys.KeyPair, curve nkeys.KeyPair, auth core.Authorizer, auditor core.Auditor) (*Service, error) {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}

	var opts []callout.Option
	if curve != nil {
		opts = append(opts, callout.WithEncryption(curve))
	}
	handler, err := callout.New(signer, &recording{inner: auth}, opts...)
	if err != nil {
		return nil, err
	}

	return &Service{
		handler: handler,
		auditor: auditor,
	}, nil
}

// Start registers the callout endpoint on the given connection.
// The returned micro service is owned by the caller; stop it to unbind.
func (s *Service) Start(nc *nats.Conn) (micro.Service, error) {
	return micro.AddService(nc, micro.Config{
		Name:        "gatehouse",
		Version:     strings.TrimPrefix(buildinfo.Version, "v"),
		Description: "NATS auth-callout service",
		Endpoint: &micro.EndpointConfig{
			Subject: Subject,
			Handler: micro.HandlerFunc(s.handleRequest),
		},
	})
}

func (s *Service) handleRequest(req micro.Request) {
	id := xid.New().String()
	logger := log.With().Str("request_id", id).Logger()

	entry := core.AuditEntry{
		ID:     id,
		Time:   time.Now(),
		Action: "auth.request",
	}
	defer func() {
		if err := s.auditor.Log(entry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry")
		}
	}()

	ctx := withEntry(logger.WithContext(context.Background()), &entry)

	out, err := s.handler.Handle(ctx, req.Data(), req.Headers())
	if err != nil {
		entry.Error = err.Error()
		s.logFailure(logger, err)

		code, msg := replyCode(err)
		if err := req.Error(code, msg, nil); err != nil {
			logger.Error().Err(err).Msg("failed to send error reply")
		}
		return
	}

	logger.Info().
		Str("user", entry.User).
		Str("authorizer", entry.Authorizer).
		Bool("granted", entry.Granted).
		Msg("callout request handled")

	if err := req.Respond(out); err != nil {
		logger.Error().Err(err).Msg("failed to send reply")
	}
}

// logFailure keeps the taxonomy visible on the service side. A config
// mismatch points at deployment, not at a bad client, so it logs louder
// than a malformed request.
func (s *Service) logFailure(logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, callout.ErrConfigMismatch):
		logger.Error().Err(err).Msg("server/service encryption settings disagree, check the auth_callout block and the xkey seed")
	case errors.Is(err, callout.ErrAuthorizer), errors.Is(err, callout.ErrSigning):
		logger.Error().Err(err).Msg("callout request failed")
	case errors.Is(err, callout.ErrDecryption), errors.Is(err, callout.ErrXKeyMismatch):
		logger.Warn().Err(err).Msg("rejected callout request")
	default:
		logger.Warn().Err(err).Msg("rejected malformed callout request")
	}
}

type entryCtxKey struct{}

func withEntry(ctx context.Context, entry *core.AuditEntry) context.Context {
	return context.WithValue(ctx, entryCtxKey{}, entry)
}

func entryFrom(ctx context.Context) *core.AuditEntry {
	entry, _ := ctx.Value(entryCtxKey{}).(*core.AuditEntry)
	return entry
}

var _ core.Authorizer = (*recording)(nil)

// recording copies request metadata and the decision into the audit entry
// travelling in the context, then defers to the real authorizer.
type recording struct {
	inner core.Authorizer
}

func (r *recording) Name() string {
	return r.inner.Name()
}

func (r *recording) Authorize(ctx context.Context, req *core.Request) (*core.Decision, error) {
	entry := entryFrom(ctx)
	if entry != nil {
		entry.User = req.UserNkey
		entry.Name = req.ConnectOptions.Username
		entry.Host = req.ClientInfo.Host
		entry.Server = req.Server.ID
	}

	decision, err := r.inner.Authorize(ctx, req)
	if err == nil && decision != nil && entry != nil {
		entry.Authorizer = r.inner.Name()
		entry.Granted = !decision.Rejected()
		entry.Error = decision.Error
	}
	return decision, err
}
