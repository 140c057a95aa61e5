package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nerval-io/gatehouse/internal/config"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			color.Red("Configuration is invalid.")
			return err
		}

		mode := "plaintext"
		if cfg.Keys.XKeySeed != "" || cfg.Keys.XKeySeedFile != "" {
			mode = "encrypted"
		}

		color.Green("Configuration is valid.")
		fmt.Printf("  callout mode: %s\n", mode)
		fmt.Printf("  authorizers:  %d\n", len(cfg.Authorizers))
		for _, a := range cfg.Authorizers {
			fmt.Printf("    - %s (%s)\n", a.Name, a.Type)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
