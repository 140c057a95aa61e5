package authorizers

import (
	"testing"

	"github.com/nerval-io/gatehouse/internal/config"
)

func TestBuild(t *testing.T) {
	issuer, _ := testIssuer(t)

	staticCfg := config.AuthorizerConfig{
		Name: "local",
		Type: "static",
		Config: map[string]any{
			"users": map[string]any{
				"alice": map[string]any{"password": "wonderland"},
			},
		},
	}
	allowCfg := config.AuthorizerConfig{Name: "open", Type: "allow", Config: map[string]any{}}

	t.Run("Single Authorizer", func(t *testing.T) {
		auth, err := Build([]config.AuthorizerConfig{staticCfg}, issuer)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if auth.Name() != "local" {
			t.Errorf("Name() = %q, want the authorizer itself, not a chain", auth.Name())
		}
	})

	t.Run("Multiple Become A Chain", func(t *testing.T) {
		auth, err := Build([]config.AuthorizerConfig{staticCfg, allowCfg}, issuer)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if _, ok := auth.(*Chain); !ok {
			t.Errorf("Build() returned %T, want *Chain", auth)
		}
	})

	t.Run("Unknown Type", func(t *testing.T) {
		_, err := Build([]config.AuthorizerConfig{{Name: "x", Type: "ldap"}}, issuer)
		if err == nil {
			t.Error("Build() accepted an unknown authorizer type")
		}
	})
}
