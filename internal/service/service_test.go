package service

import (
	"context"
	"fmt"
	"testing"

	natsjwt "github.com/nats-io/jwt/v2"

	"github.com/nerval-io/gatehouse/internal/callout"
	"github.com/nerval-io/gatehouse/internal/core"
)

func TestReplyCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "Malformed", err: fmt.Errorf("%w: boom", callout.ErrMalformed), wantCode: "400"},
		{name: "Audience", err: fmt.Errorf("%w: other", callout.ErrAudience), wantCode: "400"},
		{name: "Key Type", err: fmt.Errorf("%w: nope", callout.ErrKeyType), wantCode: "400"},
		{name: "Config Mismatch", err: fmt.Errorf("%w: sealed", callout.ErrConfigMismatch), wantCode: "403"},
		{name: "Decryption", err: fmt.Errorf("%w: bad seal", callout.ErrDecryption), wantCode: "403"},
		{name: "XKey Mismatch", err: fmt.Errorf("%w: relayed", callout.ErrXKeyMismatch), wantCode: "403"},
		{name: "Authorizer Fault", err: fmt.Errorf("%w: down", callout.ErrAuthorizer), wantCode: "500"},
		{name: "Signing", err: fmt.Errorf("%w: key", callout.ErrSigning), wantCode: "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := replyCode(tt.err)
			if code != tt.wantCode {
				t.Errorf("replyCode() code = %s, want %s", code, tt.wantCode)
			}
			if msg == "" {
				t.Error("replyCode() returned empty message")
			}
		})
	}
}

type stubAuthorizer struct {
	decision *core.Decision
}

func (s *stubAuthorizer) Name() string { return "stub" }

func (s *stubAuthorizer) Authorize(context.Context, *core.Request) (*core.Decision, error) {
	return s.decision, nil
}

func TestRecordingFillsAuditEntry(t *testing.T) {
	rec := &recording{inner: &stubAuthorizer{decision: core.Deny("not today")}}

	entry := core.AuditEntry{}
	ctx := withEntry(context.Background(), &entry)

	req := &core.Request{
		UserNkey:       "UXXX",
		Server:         natsjwt.ServerID{ID: "NXXX"},
		ClientInfo:     natsjwt.ClientInformation{Host: "10.0.0.7"},
		ConnectOptions: natsjwt.ConnectOptions{Username: "alice"},
	}
	decision, err := rec.Authorize(ctx, req)
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !decision.Rejected() {
		t.Fatal("Authorize() did not pass the rejection through")
	}

	if entry.User != "UXXX" || entry.Server != "NXXX" || entry.Host != "10.0.0.7" || entry.Name != "alice" {
		t.Errorf("entry metadata not recorded: %+v", entry)
	}
	if entry.Granted {
		t.Error("entry marked granted for a rejection")
	}
	if entry.Error != "not today" {
		t.Errorf("entry error = %q, want rejection reason", entry.Error)
	}
	if entry.Authorizer != "stub" {
		t.Errorf("entry authorizer = %q, want stub", entry.Authorizer)
	}
}

func TestRecordingWithoutEntryInContext(t *testing.T) {
	rec := &recording{inner: &stubAuthorizer{decision: core.Allow("jwt")}}

	decision, err := rec.Authorize(context.Background(), &core.Request{UserNkey: "UXXX"})
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if decision.Rejected() {
		t.Error("Authorize() changed the decision")
	}
}
