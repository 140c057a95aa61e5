package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/nats-io/nkeys"
)

type Config struct {
	NATS        NATSConfig         `yaml:"nats"`
	Keys        KeysConfig         `yaml:"keys"`
	Authorizers []AuthorizerConfig `yaml:"authorizers"`
	Audit       AuditConfig        `yaml:"audit"`
}

// NATSConfig holds the connection the service process itself uses to reach
// the server. This is the service's own identity, not related to the
// clients being authorized.
type NATSConfig struct {
	URL             string `yaml:"url"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	CredentialsFile string `yaml:"credentials_file"`
}

func (n *NATSConfig) Validate() error {
	if n.URL == "" {
		return fmt.Errorf("url is required")
	}
	if n.CredentialsFile != "" && (n.User != "" || n.Password != "") {
		return fmt.Errorf("credentials_file and user/password are mutually exclusive")
	}
	return nil
}

// KeysConfig holds the seeds for the account signing key and the optional
// encryption xkey. Each can be given inline or as a file path, not both.
type KeysConfig struct {
	AccountSeed     string `yaml:"account_seed"`
	AccountSeedFile string `yaml:"account_seed_file"`

	// XKeySeed configures the curve key. Setting it makes encryption
	// mandatory for every request; leaving it out forbids encryption.
	XKeySeed     string `yaml:"xkey_seed"`
	XKeySeedFile string `yaml:"xkey_seed_file"`
}

func (k *KeysConfig) Validate() error {
	if k.AccountSeed == "" && k.AccountSeedFile == "" {
		return fmt.Errorf("one of account_seed or account_seed_file is required")
	}
	if k.AccountSeed != "" && k.AccountSeedFile != "" {
		return fmt.Errorf("account_seed and account_seed_file are mutually exclusive")
	}
	if k.XKeySeed != "" && k.XKeySeedFile != "" {
		return fmt.Errorf("xkey_seed and xkey_seed_file are mutually exclusive")
	}
	return nil
}

// SigningKey loads and classifies the account key pair.
func (k *KeysConfig) SigningKey() (nkeys.KeyPair, error) {
	seed, err := readSeed(k.AccountSeed, k.AccountSeedFile)
	if err != nil {
		return nil, fmt.Errorf("loading account seed: %w", err)
	}
	kp, err := nkeys.FromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("parsing account seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, err
	}
	if !nkeys.IsValidPublicAccountKey(pub) {
		return nil, fmt.Errorf("account seed resolves to %q, which is not an account key", pub)
	}
	return kp, nil
}

// EncryptionKey loads the curve key pair, or returns (nil, nil) when no
// xkey is configured.
func (k *KeysConfig) EncryptionKey() (nkeys.KeyPair, error) {
	if k.XKeySeed == "" && k.XKeySeedFile == "" {
		return nil, nil
	}
	seed, err := readSeed(k.XKeySeed, k.XKeySeedFile)
	if err != nil {
		return nil, fmt.Errorf("loading xkey seed: %w", err)
	}
	kp, err := nkeys.FromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("parsing xkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, err
	}
	if !nkeys.IsValidPublicCurveKey(pub) {
		return nil, fmt.Errorf("xkey seed resolves to %q, which is not a curve key", pub)
	}
	return kp, nil
}

func readSeed(inline, file string) ([]byte, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return []byte(strings.TrimSpace(string(data))), nil
	}
	return []byte(strings.TrimSpace(inline)), nil
}

// AuthorizerConfig holds configuration for a single authorizer.
type AuthorizerConfig struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`    // e.g., "static", "policy", "token", "allow"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

func (a *AuditConfig) Validate() error {
	if !a.Enabled {
		return nil
	}
	switch a.Type {
	case "", "file":
		if a.Path == "" {
			return fmt.Errorf("path is required for file audit")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown audit type %q", a.Type)
	}
	return nil
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.NATS.Validate(); err != nil {
		return fmt.Errorf("validating nats connection: %w", err)
	}
	if err := c.Keys.Validate(); err != nil {
		return fmt.Errorf("validating keys: %w", err)
	}

	if len(c.Authorizers) == 0 {
		return fmt.Errorf("at least one authorizer is required")
	}
	seen := make(map[string]struct{})
	for idx, a := range c.Authorizers {
		if a.Name == "" {
			return fmt.Errorf("authorizer at index %d has empty name", idx)
		}
		if _, ok := seen[a.Name]; ok {
			return fmt.Errorf("duplicate authorizer name %q", a.Name)
		}
		seen[a.Name] = struct{}{}
	}

	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("validating audit: %w", err)
	}
	return nil
}
