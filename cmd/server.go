package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/vzahanych/forecast-client-demo/internal/server"
	"github.com/vzahanych/forecast-client-demo/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func serverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the forecast client demo server",
		Long: `Load the mutual TLS transport profile, then serve the three forecast endpoints.
The process refuses to start when the key store or trust store cannot be loaded.`,
		RunE: runServer,
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := initializeServices(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting forecast client demo server",
		zap.String("config_path", configPath),
		zap.String("version", cfg.Version),
		zap.Bool("telemetry_enabled", cfg.Telemetry.Enabled),
		zap.Int("server_port", cfg.Server.Port),
		zap.String("upstream", cfg.Upstream.BaseURL))

	profile, err := transport.NewProfile(cfg.Upstream)
	if err != nil {
		var cerr *transport.ConfigurationError
		if errors.As(err, &cerr) {
			log.Error("Invalid transport profile",
				zap.String("store", cerr.Store),
				zap.String("path", cerr.Path),
				zap.Error(cerr.Err))
		} else {
			log.Error("Failed to build transport profile", zap.Error(err))
		}
		return err
	}

	srv := server.NewServer(cfg, profile, log.Logger, tele)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Error("Server error", zap.Error(err))
		}
		shutdownTelemetry()
		return err
	case <-cmd.Context().Done():
		log.Info("Shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Error during server shutdown", zap.Error(err))
			shutdownTelemetry()
			return err
		}
		shutdownTelemetry()

		log.Info("Server shutdown complete")
		return nil
	}
}

func shutdownTelemetry() {
	if err := tele.Shutdown(context.Background()); err != nil {
		log.Warn("Error during telemetry shutdown", zap.Error(err))
	}
}
