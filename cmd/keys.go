package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/nats-io/nkeys"
	"github.com/spf13/cobra"
)

var keysRaw bool

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Work with nkeys",
	Long:  `Utilities for generating the nkeys Gatehouse and its NATS server need`,
}

// keysGenerateCmd represents the keys generate command
var keysGenerateCmd = &cobra.Command{
	Use:     "generate [account|curve|server|user]",
	Aliases: []string{"gen"},
	Short:   "Generate a new nkey pair",
	Long: `Generates a new nkey pair of the given type and prints the seed and
the public key.

Gatehouse itself needs an "account" key (the auth_callout issuer) and,
for encrypted callout, a "curve" xkey. The "server" and "user" types are
handy for test setups.`,
	Example: `  # Generate the signing account key
  gatehouse keys generate account

  # Generate an xkey for encrypted callout, seed only (for scripts)
  gatehouse keys generate curve --raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			kp  nkeys.KeyPair
			err error
		)
		switch args[0] {
		case "account":
			kp, err = nkeys.CreateAccount()
		case "curve", "xkey":
			kp, err = nkeys.CreateCurveKeys()
		case "server":
			kp, err = nkeys.CreateServer()
		case "user":
			kp, err = nkeys.CreateUser()
		default:
			return fmt.Errorf("unknown key type %q (want account, curve, server or user)", args[0])
		}
		if err != nil {
			return fmt.Errorf("generating %s key: %w", args[0], err)
		}

		seed, err := kp.Seed()
		if err != nil {
			return fmt.Errorf("reading seed: %w", err)
		}
		pub, err := kp.PublicKey()
		if err != nil {
			return fmt.Errorf("reading public key: %w", err)
		}

		if keysRaw {
			fmt.Println(string(seed))
			return nil
		}

		bold := color.New(color.Bold).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Type", "Public Key", "Seed"})
		t.AppendRow(table.Row{args[0], bold(pub), faint(string(seed))})

		s := table.StyleRounded
		s.Format.Header = text.FormatDefault
		t.SetStyle(s)
		t.Render()

		fmt.Println(faint("Keep the seed secret. The public key is safe to share."))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd)

	keysGenerateCmd.Flags().BoolVar(&keysRaw, "raw", false, "Print only the seed, for scripting")
}
