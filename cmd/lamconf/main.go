// Command lamconf serves the directory settings editor and administers its
// stored configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lamconf/internal/observability"
)

// version can be set during build with -ldflags.
var version = "dev"

// app carries state shared by every subcommand once the root command has
// loaded the configuration.
type app struct {
	configPath string
	cfg        *Config
	logger     observability.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "lamconf",
		Short: "Edit and serve the directory connection settings",
		Long: `lamconf serves a password-protected editor for the directory
connection settings (host, port, admin users, SSL and search suffixes)
and provides commands to inspect and bootstrap the stored configuration.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			logCfg := observability.ConfigFromEnv()
			logCfg.Output = cmd.ErrOrStderr()
			a.cfg = cfg
			a.logger = observability.NewLogger(logCfg)
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "lamconf version %s\n" .Version}}`)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to YAML config file (optional, env vars override it)")

	root.AddCommand(
		newServeCmd(a),
		newShowCmd(a),
		newPasswdCmd(a),
		newAuditCmd(a),
		newMigrateCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
