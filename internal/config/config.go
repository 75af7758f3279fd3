package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Sink backends.
const (
	BackendChroma   = "chroma"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Port             int
	NatsURL          string
	NatsToken        string
	LogLevel         string
	SinkBackend      string
	ChromaURL        string
	ChromaCollection string
	ChromaTenant     string
	ChromaDatabase   string
	DatabaseURL      string
	SQLitePath       string
	StatePath        string
	APIToken         string
	Project          string
	ParseWorkers     int
}

func Load() Config {
	return Config{
		Port:             envInt("HIVEMIND_PORT", 8760),
		NatsURL:          envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:        envStr("NATS_TOKEN", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		SinkBackend:      envStr("SINK_BACKEND", BackendChroma),
		ChromaURL:        envStr("CHROMA_URL", "http://localhost:8000"),
		ChromaCollection: envStr("CHROMA_COLLECTION", "hive_mind"),
		ChromaTenant:     envStr("CHROMA_TENANT", "default_tenant"),
		ChromaDatabase:   envStr("CHROMA_DATABASE", "default_database"),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		SQLitePath:       expandHome(envStr("SQLITE_PATH", "~/.hivemind/memory.db")),
		StatePath:        expandHome(envStr("HIVEMIND_STATE_PATH", "~/.hivemind/ingest-state.json")),
		APIToken:         envStr("HIVEMIND_API_TOKEN", ""),
		Project:          envStr("HIVEMIND_PROJECT", "generic"),
		ParseWorkers:     envInt("HIVEMIND_PARSE_WORKERS", 0),
	}
}

// Validate reports settings the selected backend cannot run with.
func (c Config) Validate() error {
	switch c.SinkBackend {
	case BackendChroma:
		if c.ChromaURL == "" {
			return fmt.Errorf("CHROMA_URL is required for the %s backend", c.SinkBackend)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", c.SinkBackend)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s backend", c.SinkBackend)
		}
	default:
		return fmt.Errorf("unknown SINK_BACKEND %q (want %s, %s or %s)", c.SinkBackend, BackendChroma, BackendPostgres, BackendSQLite)
	}
	if c.ParseWorkers < 0 {
		return fmt.Errorf("HIVEMIND_PARSE_WORKERS must not be negative, got %d", c.ParseWorkers)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
