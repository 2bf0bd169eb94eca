// Back-office Core - retail back-office authentication service
//
// This is the main entry point. It serves the HTTP API that gates every
// back-office operation behind a login, and provides maintenance
// subcommands for password hashes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar names the environment variable holding the config path.
const configEnvVar = "BACKOFFICE_CONFIG"

func main() {
	// Cancel on Ctrl+C or SIGTERM so serve shuts down gracefully.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root cobra command for the backoffice binary.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "backoffice",
		Short:        "Retail back-office core",
		Long:         "Back-office core serves the login, session and user administration API.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config file (or "+configEnvVar+" env, default "+defaultConfigPath+")")

	root.AddCommand(
		newServeCmd(&configPath),
		newHashPasswordCmd(),
		newMigratePasswordsCmd(&configPath),
		newVersionCmd(),
	)

	return root
}

// resolveConfigPath picks the config file: the flag, then the environment
// variable, then the default path if it exists. An empty result means
// built-in defaults plus environment overrides.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(configEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "backoffice %s (commit %s, built %s)\n", version, commit, date)
			return err
		},
	}
}
