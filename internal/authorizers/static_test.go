package authorizers

import (
	"context"
	"testing"

	natsjwt "github.com/nats-io/jwt/v2"
	"github.com/nats-io/nkeys"
	"golang.org/x/crypto/bcrypt"

	"github.com/nerval-io/gatehouse/internal/config"
	"github.com/nerval-io/gatehouse/internal/core"
	"github.com/nerval-io/gatehouse/internal/issue"
)

func testIssuer(t *testing.T) (core.CredentialIssuer, string) {
	t.Helper()
	account, err := nkeys.CreateAccount()
	if err != nil {
		t.Fatalf("creating account key: %v", err)
	}
	issuer, err := issue.NewAccountIssuer(account)
	if err != nil {
		t.Fatalf("creating issuer: %v", err)
	}
	accountPub, err := account.PublicKey()
	if err != nil {
		t.Fatalf("reading account public key: %v", err)
	}
	return issuer, accountPub
}

func testRequest(t *testing.T, username, password string) *core.Request {
	t.Helper()
	user, err := nkeys.CreateUser()
	if err != nil {
		t.Fatalf("creating user key: %v", err)
	}
	userPub, err := user.PublicKey()
	if err != nil {
		t.Fatalf("reading user public key: %v", err)
	}
	return &core.Request{
		UserNkey: userPub,
		ConnectOptions: natsjwt.ConnectOptions{
			Username: username,
			Password: password,
		},
	}
}

func TestStaticAuthorize(t *testing.T) {
	issuer, accountPub := testIssuer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	auth, err := NewStatic(config.AuthorizerConfig{
		Name: "local",
		Type: "static",
		Config: map[string]any{
			"users": map[string]any{
				"alice": map[string]any{
					"password": "wonderland",
					"grant": map[string]any{
						"account":   "APP",
						"pub_allow": []any{"app.>"},
						"sub_allow": []any{"app.replies.*"},
						"ttl":       "5m",
					},
				},
				"bob": map[string]any{
					"password_hash": string(hash),
				},
			},
		},
	}, issuer)
	if err != nil {
		t.Fatalf("NewStatic() error = %v", err)
	}

	t.Run("Valid Password", func(t *testing.T) {
		req := testRequest(t, "alice", "wonderland")
		decision, err := auth.Authorize(context.Background(), req)
		if err != nil {
			t.Fatalf("Authorize() error = %v", err)
		}
		if decision.Rejected() {
			t.Fatalf("Authorize() rejected: %s", decision.Error)
		}

		uc, err := natsjwt.DecodeUserClaims(decision.UserJWT)
		if err != nil {
			t.Fatalf("decoding issued credential: %v", err)
		}
		if uc.Subject != req.UserNkey {
			t.Errorf("credential subject = %q, want %q", uc.Subject, req.UserNkey)
		}
		if uc.Issuer != accountPub {
			t.Errorf("credential issuer = %q, want %q", uc.Issuer, accountPub)
		}
		if uc.Audience != "APP" {
			t.Errorf("credential audience = %q, want APP", uc.Audience)
		}
		if len(uc.Pub.Allow) != 1 || uc.Pub.Allow[0] != "app.>" {
			t.Errorf("pub allow = %v, want [app.>]", uc.Pub.Allow)
		}
		if uc.Expires == 0 {
			t.Error("credential has no expiry despite ttl")
		}
	})

	t.Run("Bcrypt Hash", func(t *testing.T) {
		decision, err := auth.Authorize(context.Background(), testRequest(t, "bob", "s3cret"))
		if err != nil {
			t.Fatalf("Authorize() error = %v", err)
		}
		if decision.Rejected() {
			t.Fatalf("Authorize() rejected: %s", decision.Error)
		}

		uc, err := natsjwt.DecodeUserClaims(decision.UserJWT)
		if err != nil {
			t.Fatalf("decoding issued credential: %v", err)
		}
		// no account in the grant puts bob into the global account
		if uc.Audience != "$G" {
			t.Errorf("credential audience = %q, want $G", uc.Audience)
		}
	})

	t.Run("Wrong Password", func(t *testing.T) {
		decision, err := auth.Authorize(context.Background(), testRequest(t, "alice", "through-the-looking-glass"))
		if err != nil {
			t.Fatalf("Authorize() error = %v", err)
		}
		if !decision.Rejected() {
			t.Error("Authorize() accepted a wrong password")
		}
	})

	t.Run("Unknown User", func(t *testing.T) {
		decision, err := auth.Authorize(context.Background(), testRequest(t, "mallory", "whatever"))
		if err != nil {
			t.Fatalf("Authorize() error = %v", err)
		}
		if !decision.Rejected() {
			t.Error("Authorize() accepted an unknown user")
		}
	})
}

func TestNewStaticValidation(t *testing.T) {
	issuer, _ := testIssuer(t)

	tests := []struct {
		name   string
		config map[string]any
	}{
		{
			name:   "No Users",
			config: map[string]any{},
		},
		{
			name: "Password And Hash",
			config: map[string]any{
				"users": map[string]any{
					"alice": map[string]any{"password": "a", "password_hash": "b"},
				},
			},
		},
		{
			name: "Neither Password Nor Hash",
			config: map[string]any{
				"users": map[string]any{
					"alice": map[string]any{},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatic(config.AuthorizerConfig{Name: "local", Type: "static", Config: tt.config}, issuer)
			if err == nil {
				t.Error("NewStatic() accepted invalid config")
			}
		})
	}
}
