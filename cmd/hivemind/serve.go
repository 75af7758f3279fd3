package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/hivemind/internal/api"
	"github.com/MikeSquared-Agency/hivemind/internal/hermes"
	"github.com/MikeSquared-Agency/hivemind/internal/ingest"
	"github.com/MikeSquared-Agency/hivemind/internal/processor"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var noNATS bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and NATS ingest consumer",
		Long: `Serve the ingest and recall API on HIVEMIND_PORT and consume
swarm.hivemind.ingest.request events from NATS_URL.

NATS is optional: when it cannot be reached the API still starts.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context(), noNATS)
		},
	}
	cmd.Flags().BoolVar(&noNATS, "no-nats", false, "Do not connect to NATS")
	return cmd
}

func (c *cli) serve(parent context.Context, noNATS bool) error {
	logger := setupLogging(c.cfg.LogLevel, true, os.Stdout)
	c.logger = logger
	logger.Info("hivemind starting", "port", c.cfg.Port, "sink", c.cfg.SinkBackend)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := c.openSink(ctx)
	if err != nil {
		return err
	}
	defer sink.Close()
	if err := sink.Ping(ctx); err != nil {
		logger.Warn("memory sink unreachable, starting degraded", "sink", c.cfg.SinkBackend, "error", err)
	} else {
		logger.Info("memory sink connected", "sink", c.cfg.SinkBackend)
	}

	// NATS/Hermes
	var (
		hermesClient *hermes.Client
		events       ingest.Publisher
	)
	if !noNATS {
		hermesClient, err = hermes.NewClient(ctx, c.cfg.NatsURL, c.cfg.NatsToken, logger)
		if err != nil {
			logger.Warn("NATS unavailable, running without event bus", "url", c.cfg.NatsURL, "error", err)
		} else {
			defer hermesClient.Close()
			events = hermesClient
			logger.Info("NATS connected", "url", c.cfg.NatsURL)
		}
	}

	runner := ingest.NewRunner(ingest.Config{
		StatePath:      c.cfg.StatePath,
		DefaultProject: c.cfg.Project,
		Workers:        c.cfg.ParseWorkers,
	}, sink, events, logger)

	if hermesClient != nil {
		proc := processor.New(runner, events, logger)
		if err := hermesClient.QueueSubscribe(hermes.SubjectIngestRequest, hermes.QueueIngest, proc.HandleIngestRequest); err != nil {
			return err
		}
	}

	srv := api.NewServer(c.cfg.Port, c.cfg.APIToken, c.cfg.SinkBackend, runner, sink, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectAgentRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      c.cfg.Port,
			"sink":      c.cfg.SinkBackend,
		}); err != nil {
			logger.Warn("failed to publish registration", "error", err)
		}
	}

	logger.Info("hivemind ready", "port", c.cfg.Port)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown incomplete", "error", err)
	}
	logger.Info("hivemind stopped")
	return nil
}
