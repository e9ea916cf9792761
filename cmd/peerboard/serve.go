package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/peerboard"
	"github.com/jpalmerr/peerboard/config"
	"github.com/jpalmerr/peerboard/internal/metrics"
	"github.com/jpalmerr/peerboard/internal/sink"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the PeerBoard mirror server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mirror server",
	Long: `Start the PeerBoard mirror server.

The server will:
  - Load configuration from the specified YAML file
  - Fetch every configured resource, then poll the auto-refreshing ones
  - Serve the latest state on the configured port
  - Publish record changes to Kafka when configured

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  peerboard serve -c config.yaml
  peerboard serve --config /etc/peerboard/config.yaml --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"resources", cfg.ResourceCount(),
		"graphql_url", cfg.GraphQLURL,
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"refresh_interval", cfg.RefreshInterval.Duration().String(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder, metricsHandler, shutdownMetrics, err := metrics.Setup(ctx, metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}()

	clientOpts := append(config.BuildClientOptions(cfg),
		peerboard.WithLogger(logger),
		peerboard.WithObserver(recorder),
	)
	client, err := peerboard.New(clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	view, err := config.BuildView(client, cfg)
	if err != nil {
		return fmt.Errorf("failed to build resources: %w", err)
	}

	mirrorOpts := append(config.BuildMirrorOptions(cfg),
		peerboard.WithRequestObserver(recorder),
	)
	if metricsHandler != nil {
		mirrorOpts = append(mirrorOpts, peerboard.WithMetricsHandler(metricsHandler))
	}
	if cfg.Kafka.Enabled() {
		kafkaSink, err := sink.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("failed to create kafka sink: %w", err)
		}
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				logger.Warn("kafka sink close failed", "error", err)
			}
		}()
		mirrorOpts = append(mirrorOpts, peerboard.WithPublisher(kafkaSink))
		logger.Info("publishing records", "topic", cfg.Kafka.Topic, "brokers", len(cfg.Kafka.Brokers))
	}

	mirror, err := peerboard.NewMirror(view, mirrorOpts...)
	if err != nil {
		return fmt.Errorf("failed to create mirror: %w", err)
	}

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- mirror.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
