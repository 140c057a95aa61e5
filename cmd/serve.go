package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nerval-io/gatehouse/internal/audit"
	"github.com/nerval-io/gatehouse/internal/authorizers"
	"github.com/nerval-io/gatehouse/internal/buildinfo"
	"github.com/nerval-io/gatehouse/internal/config"
	"github.com/nerval-io/gatehouse/internal/core"
	"github.com/nerval-io/gatehouse/internal/issue"
	"github.com/nerval-io/gatehouse/internal/service"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Gatehouse auth-callout service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		signer, err := cfg.Keys.SigningKey()
		if err != nil {
			return fmt.Errorf("loading signing key: %w", err)
		}
		curve, err := cfg.Keys.EncryptionKey()
		if err != nil {
			return fmt.Errorf("loading encryption key: %w", err)
		}
		if curve != nil {
			log.Info().Msg("xkey configured, callout exchange runs in encrypted mode")
		}

		issuer, err := issue.NewAccountIssuer(signer)
		if err != nil {
			return fmt.Errorf("building credential issuer: %w", err)
		}

		log.Info().Msg("Initializing authorizers...")
		auth, err := authorizers.Build(cfg.Authorizers, issuer)
		if err != nil {
			return fmt.Errorf("building authorizers: %w", err)
		}

		auditor, err := buildAuditor(cfg.Audit)
		if err != nil {
			return fmt.Errorf("building auditor: %w", err)
		}
		defer func() {
			if err := auditor.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close auditor")
			}
		}()

		svc, err := service.New(signer, curve, auth, auditor)
		if err != nil {
			return fmt.Errorf("building service: %w", err)
		}

		nc, err := connect(cfg.NATS)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer nc.Close()

		ms, err := svc.Start(nc)
		if err != nil {
			return fmt.Errorf("starting callout endpoint: %w", err)
		}

		log.Info().Str("subject", service.Subject).Str("url", nc.ConnectedUrl()).Msg("Gatehouse is serving callout requests")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down...")

		if err := ms.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop callout endpoint")
		}
		if err := nc.Drain(); err != nil {
			return fmt.Errorf("draining connection: %w", err)
		}

		log.Info().Msg("Service exited")
		return nil
	},
}

func connect(cfg config.NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("gatehouse " + buildinfo.Version),
	}
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, nats.UserCredentials(cfg.CredentialsFile))
	case cfg.User != "":
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	return nats.Connect(cfg.URL, opts...)
}

func buildAuditor(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return audit.NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "", "file":
		return audit.NewFileAuditor(cfg.Path)
	case "memory":
		return audit.NewInMemoryAuditor(), nil
	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Type)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
