package authorizers

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/nerval-io/gatehouse/internal/config"
	"github.com/nerval-io/gatehouse/internal/core"
)

// Build constructs the configured authorizers and wires them to the
// credential issuer. A single entry is returned directly; multiple entries
// are chained in config order.
func Build(cfgs []config.AuthorizerConfig, issuer core.CredentialIssuer) (core.Authorizer, error) {
	members := make([]core.Authorizer, 0, len(cfgs))
	for _, cfg := range cfgs {
		switch cfg.Type {
		case "static":
			a, err := NewStatic(cfg, issuer)
			if err != nil {
				return nil, fmt.Errorf("building static authorizer %q: %w", cfg.Name, err)
			}
			members = append(members, a)
		case "token":
			a, err := NewToken(cfg, issuer)
			if err != nil {
				return nil, fmt.Errorf("building token authorizer %q: %w", cfg.Name, err)
			}
			members = append(members, a)
		case "policy":
			a, err := NewPolicy(cfg, issuer)
			if err != nil {
				return nil, fmt.Errorf("building policy authorizer %q: %w", cfg.Name, err)
			}
			members = append(members, a)
		case "allow":
			a, err := NewAllow(cfg, issuer)
			if err != nil {
				return nil, fmt.Errorf("building allow authorizer %q: %w", cfg.Name, err)
			}
			members = append(members, a)
		default:
			return nil, fmt.Errorf("unknown authorizer type %q for authorizer %q", cfg.Type, cfg.Name)
		}
	}

	if len(members) == 1 {
		return members[0], nil
	}
	return NewChain("chain", members...), nil
}

// decodeConfig maps the inline YAML remainder of an authorizer block onto a
// typed config struct.
func decodeConfig(in map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     out,
	})
	if err != nil {
		return fmt.Errorf("creating config decoder: %w", err)
	}
	if err := decoder.Decode(in); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}
