// Command server runs the restaurant POS: the screen pages and sockets, the
// REST API, and the database maintenance commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/restify-pos/api/internal/router"
	"github.com/spf13/cobra"
)

const appName = "pos"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	serve := serveCmd()

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Restaurant point of sale",
		Long: `Serves the order-taking, kitchen, ready-board and waiter screens
over WebSockets, plus a JSON API over the same tables and orders.

Without a subcommand it behaves like "serve".`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve, migrateCmd(), seedCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, router.Version)
		},
	})

	return cmd
}

// setupLogging installs the JSON handler on stderr as the default logger.
func setupLogging(level slog.Level) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
