package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/workshops/internal/adapter/postgres"
	"github.com/neomorfeo/workshops/internal/adapter/sqlite"
	"github.com/neomorfeo/workshops/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Opening a store applies every pending migration.
			switch cfg.DatabaseDriver {
			case config.DriverPostgres:
				store, err := postgres.New(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("migrating postgres: %w", err)
				}
				store.Close()
			default:
				store, err := sqlite.New(cfg.DatabasePath)
				if err != nil {
					return fmt.Errorf("migrating sqlite: %w", err)
				}
				store.Close()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s database is up to date\n", cfg.DatabaseDriver)
			return nil
		},
	}
}
