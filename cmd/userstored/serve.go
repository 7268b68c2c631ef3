package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/WolfieLeader/benchmarks/pkg/config"
	"github.com/WolfieLeader/benchmarks/pkg/drivers"
	"github.com/WolfieLeader/benchmarks/pkg/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	settings, err := config.Load()
	if err != nil {
		return err
	}

	registry := drivers.NewRegistry(settings)

	// Warm every backend up front so first traffic skips connection setup.
	// A backend that is down only logs; the server still starts.
	registry.InitializeAll(context.Background())

	srv := server.New(settings, registry)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}

	// Disconnect only after in-flight requests have drained.
	registry.DisconnectAll(ctx)
	slog.Info("server stopped")
	return nil
}
