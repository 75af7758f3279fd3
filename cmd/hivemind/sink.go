package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/hivemind/internal/config"
	"github.com/MikeSquared-Agency/hivemind/internal/memory"
	"github.com/MikeSquared-Agency/hivemind/internal/memory/chroma"
	"github.com/MikeSquared-Agency/hivemind/internal/memory/pgsink"
	"github.com/MikeSquared-Agency/hivemind/internal/memory/sqlitesink"
)

// openSink builds the configured backend.
func openSink(ctx context.Context, cfg config.Config, logger *slog.Logger) (memory.Sink, error) {
	switch cfg.SinkBackend {
	case config.BackendChroma:
		return chroma.NewClient(cfg.ChromaURL, cfg.ChromaCollection, logger,
			chroma.WithTenant(cfg.ChromaTenant),
			chroma.WithDatabase(cfg.ChromaDatabase),
		), nil
	case config.BackendPostgres:
		s, err := pgsink.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlitesink.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sink backend %q", cfg.SinkBackend)
	}
}
