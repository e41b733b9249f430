package main

import (
	"fmt"
	"log/slog"

	"github.com/restify-pos/api/internal/config"
	"github.com/restify-pos/api/internal/database"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setupLogging(cfg.LogLevel)

			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			slog.Info("schema is up to date")
			return nil
		},
	}
}
