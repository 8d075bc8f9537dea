package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boardhub/tokenauth/internal/config"
	"github.com/boardhub/tokenauth/users"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply user directory schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.DB.DatabaseURL == "" {
				return errors.New("db.db_url (DATABASE_URL) is required")
			}
			if err := users.Migrate(cmd.Context(), cfg.DB.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
