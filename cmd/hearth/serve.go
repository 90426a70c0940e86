package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sagarc03/hearth/filesystem"
	"github.com/sagarc03/hearth/handlers"
	hearthhttp "github.com/sagarc03/hearth/http"
	"github.com/sagarc03/hearth/metrics"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long:  `Start the hearth server and run until interrupted.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (default: localhost, env: HEARTH_SERVER_HOST)")
	serveCmd.Flags().Int("port", 0, "listen port (default: 8000, env: HEARTH_SERVER_PORT)")
	serveCmd.Flags().String("root", "", "static file root (default: ., env: HEARTH_STORAGE_ROOT)")
	serveCmd.Flags().Duration("idle-timeout", 0, "per-read idle timeout (default: 500ms)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	routes, err := handlers.Default().Bind(cfg.RouteMap())
	if err != nil {
		return fmt.Errorf("bind routes: %w", err)
	}

	store, err := filesystem.NewStore(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("open static root: %w", err)
	}
	defer func() { _ = store.Close() }()

	provider, shutdownMetrics, err := metrics.Setup(ctx, metrics.ExportConfig{
		Endpoint:    cfg.Metrics.OTLPEndpoint,
		Interval:    cfg.Metrics.Interval,
		Insecure:    cfg.Metrics.Insecure,
		ServiceName: "hearth",
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("setup metrics: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(flushCtx); err != nil {
			slog.Warn("metrics shutdown failed", "err", err)
		}
	}()

	recorder, err := metrics.New(provider)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	srv := hearthhttp.NewServer(&hearthhttp.Config{
		Addr:            cfg.Server.Addr(),
		IdleTimeout:     cfg.Server.IdleTimeout,
		ReadBufferSize:  cfg.Server.ReadBufferSize,
		MaxConnections:  cfg.Server.MaxConnections,
		StreamThreshold: cfg.Transfer.StreamThreshold,
		ChunkSize:       cfg.Transfer.ChunkSize,
		GzipLevel:       cfg.Transfer.GzipLevel,
	}, routes, store,
		hearthhttp.WithLogger(slog.Default()),
		hearthhttp.WithMetrics(recorder),
	)

	slog.Info("starting server",
		"addr", cfg.Server.Addr(),
		"root", store.Dir(),
		"routes", routes.Len(),
		"idle_timeout", cfg.Server.IdleTimeout,
		"stream_threshold", humanize.Bytes(uint64(cfg.Transfer.StreamThreshold)),
	)

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "err", err)
	}
	return nil
}
