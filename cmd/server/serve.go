package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/restify-pos/api/internal/backend"
	"github.com/restify-pos/api/internal/config"
	"github.com/restify-pos/api/internal/feed"
	"github.com/restify-pos/api/internal/metrics"
	"github.com/restify-pos/api/internal/router"
	"github.com/restify-pos/api/internal/seed"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var (
		memory  bool
		fixture string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setupLogging(cfg.LogLevel)
			return serve(cmd.Context(), cfg, memory, fixture)
		},
	}

	cmd.Flags().BoolVar(&memory, "memory", false, "Use the in-memory backend instead of PostgreSQL")
	cmd.Flags().StringVar(&fixture, "fixture", "", "YAML fixture for --memory (default: bundled menu)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, memory bool, fixture string) error {
	m := metrics.New()
	hub := feed.NewHub()
	hub.OnPublish = func(c feed.Change) { m.FeedEvent(c.Table, c.Op) }

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	var client backend.Client
	if memory {
		mem := backend.NewMemory(hub)
		fx, err := loadFixture(fixture)
		if err != nil {
			return err
		}
		res, err := seed.Apply(ctx, mem, fx)
		if err != nil {
			return fmt.Errorf("seed memory backend: %w", err)
		}
		slog.Info("using in-memory backend", "tables", res.Tables, "products", res.Products)
		client = mem
	} else {
		pool, err := backend.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		listener := backend.NewListener(pool, hub)
		g.Go(func() error { return listener.Run(ctx) })
		client = backend.NewPostgres(pool, hub)
	}

	r, err := router.New(cfg, client, m)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Screen sessions end with the server's context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr, "version", router.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.LoadFile(path)
}
