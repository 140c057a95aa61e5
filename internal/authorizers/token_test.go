package authorizers

import (
	"context"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	natsjwt "github.com/nats-io/jwt/v2"

	"github.com/nerval-io/gatehouse/internal/config"
)

func signedToken(t *testing.T, secret, issuer, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwtv5.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return token
}

func TestTokenAuthorize(t *testing.T) {
	issuer, _ := testIssuer(t)

	auth, err := NewToken(config.AuthorizerConfig{
		Name: "upstream",
		Type: "token",
		Config: map[string]any{
			"secret": "hush",
			"issuer": "provisioner",
			"grant": map[string]any{
				"account":   "EDGE",
				"pub_allow": []any{"edge.>"},
			},
		},
	}, issuer)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	tests := []struct {
		name       string
		token      string
		wantReject bool
	}{
		{
			name:  "Valid Token",
			token: signedToken(t, "hush", "provisioner", "edge-17", time.Minute),
		},
		{
			name:       "No Token",
			token:      "",
			wantReject: true,
		},
		{
			name:       "Wrong Secret",
			token:      signedToken(t, "loud", "provisioner", "edge-17", time.Minute),
			wantReject: true,
		},
		{
			name:       "Wrong Issuer",
			token:      signedToken(t, "hush", "imposter", "edge-17", time.Minute),
			wantReject: true,
		},
		{
			name:       "Expired Token",
			token:      signedToken(t, "hush", "provisioner", "edge-17", -time.Minute),
			wantReject: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest(t, "", "")
			req.ConnectOptions.Token = tt.token

			decision, err := auth.Authorize(context.Background(), req)
			if err != nil {
				t.Fatalf("Authorize() error = %v", err)
			}
			if decision.Rejected() != tt.wantReject {
				t.Fatalf("Rejected() = %v (%s), want %v", decision.Rejected(), decision.Error, tt.wantReject)
			}
			if !tt.wantReject {
				uc, err := natsjwt.DecodeUserClaims(decision.UserJWT)
				if err != nil {
					t.Fatalf("decoding issued credential: %v", err)
				}
				if uc.Audience != "EDGE" {
					t.Errorf("credential audience = %q, want EDGE", uc.Audience)
				}
				if uc.Name != "edge-17" {
					t.Errorf("credential name = %q, want token subject", uc.Name)
				}
			}
		})
	}
}

func TestNewTokenRequiresSecret(t *testing.T) {
	issuer, _ := testIssuer(t)
	if _, err := NewToken(config.AuthorizerConfig{Name: "upstream", Type: "token", Config: map[string]any{}}, issuer); err == nil {
		t.Error("NewToken() accepted a missing secret")
	}
}

func TestChainFallsThroughRejections(t *testing.T) {
	issuer, _ := testIssuer(t)

	static, err := NewStatic(config.AuthorizerConfig{
		Name: "local",
		Type: "static",
		Config: map[string]any{
			"users": map[string]any{
				"alice": map[string]any{"password": "wonderland"},
			},
		},
	}, issuer)
	if err != nil {
		t.Fatalf("NewStatic() error = %v", err)
	}
	token, err := NewToken(config.AuthorizerConfig{
		Name:   "upstream",
		Type:   "token",
		Config: map[string]any{"secret": "hush"},
	}, issuer)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	chain := NewChain("chain", token, static)

	t.Run("Second Member Accepts", func(t *testing.T) {
		decision, err := chain.Authorize(context.Background(), testRequest(t, "alice", "wonderland"))
		if err != nil {
			t.Fatalf("Authorize() error = %v", err)
		}
		if decision.Rejected() {
			t.Fatalf("Authorize() rejected: %s", decision.Error)
		}
	})

	t.Run("Nobody Accepts", func(t *testing.T) {
		decision, err := chain.Authorize(context.Background(), testRequest(t, "mallory", "nope"))
		if err != nil {
			t.Fatalf("Authorize() error = %v", err)
		}
		if !decision.Rejected() {
			t.Error("Authorize() accepted an unknown user")
		}
	})
}
