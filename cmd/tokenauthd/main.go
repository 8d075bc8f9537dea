// Command tokenauthd serves the login, reissue and logout endpoints backed
// by a Redis session store and a Postgres user directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "tokenauthd"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "JWT access/refresh session service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		hashPasswordCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}
