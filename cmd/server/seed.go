package main

import (
	"fmt"
	"log/slog"

	"github.com/restify-pos/api/internal/backend"
	"github.com/restify-pos/api/internal/config"
	"github.com/restify-pos/api/internal/seed"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load tables, categories and products from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setupLogging(cfg.LogLevel)

			fx, err := loadFixture(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := backend.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			res, err := seed.ApplyPostgres(ctx, pool, fx)
			if err != nil {
				return err
			}
			slog.Info("seed complete",
				"tables", res.Tables,
				"categories", res.Categories,
				"products", res.Products)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixture file (default: bundled menu)")

	return cmd
}
