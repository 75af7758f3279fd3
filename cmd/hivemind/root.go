package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/hivemind/internal/config"
	"github.com/MikeSquared-Agency/hivemind/internal/ingest"
	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

// cli carries state shared by subcommands once the root pre-run has loaded
// the environment.
type cli struct {
	envFile string
	backend string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "hivemind",
		Short: "Turn chat exports into searchable memory",
		Long: `hivemind ingests ChatGPT and Claude conversation exports, pairs each
question with its answer, and stores the pairs in a memory sink
(Chroma, PostgreSQL or SQLite) for later recall.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.PersistentFlags().StringVar(&c.envFile, "env-file", "", "Load environment from this file (default .env if present)")
	cmd.PersistentFlags().StringVar(&c.backend, "backend", "", "Override SINK_BACKEND (chroma, postgres, sqlite)")

	cmd.AddCommand(
		newIngestCmd(c),
		newDetectCmd(c),
		newAddCmd(c),
		newRecallCmd(c),
		newServeCmd(c),
	)
	return cmd
}

func (c *cli) load(cmd *cobra.Command, _ []string) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil {
			return &usageError{err: fmt.Errorf("load env file: %w", err)}
		}
	} else {
		_ = godotenv.Load()
	}

	c.cfg = config.Load()
	if c.backend != "" {
		c.cfg.SinkBackend = c.backend
	}
	c.logger = setupLogging(c.cfg.LogLevel, false, os.Stderr)
	return nil
}

// openSink validates the configuration and opens the sink.
func (c *cli) openSink(ctx context.Context) (memory.Sink, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, &usageError{err: err}
	}
	return openSink(ctx, c.cfg, c.logger)
}

func (c *cli) newRunner(sink memory.Sink) *ingest.Runner {
	return ingest.NewRunner(ingest.Config{
		StatePath:      c.cfg.StatePath,
		DefaultProject: c.cfg.Project,
		Workers:        c.cfg.ParseWorkers,
	}, sink, nil, c.logger)
}

// usageArgs marks positional-argument failures as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
