// Package pgsink implements memory.Sink on PostgreSQL. Ranking uses the
// built-in full-text search; metadata lives in a JSONB column and filters use
// containment.
package pgsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

const (
	defaultTableName = "memory_units"
	defaultLimit     = 5
	backendName      = "postgres"
)

// Querier is the subset of *pgxpool.Pool the sink needs.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type Store struct {
	db        Querier
	name      string
	tableName string
	closeFn   func()

	// schemaReady is false until EnsureSchema has succeeded on a store built
	// by Connect. Stores from New leave schema management to the caller.
	schemaMu    sync.Mutex
	schemaReady bool
}

var _ memory.Sink = (*Store)(nil)

type Option func(*Store)

// WithTableName overrides the default table. The name is quoted with
// pgx.Identifier since it is interpolated into statements.
func WithTableName(name string) Option {
	return func(s *Store) {
		s.name = name
		s.tableName = pgx.Identifier{name}.Sanitize()
	}
}

func New(db Querier, opts ...Option) *Store {
	s := &Store{
		db:          db,
		name:        defaultTableName,
		tableName:   defaultTableName,
		schemaReady: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect builds a pool without dialing. The server is first contacted by
// Ping, Add or Query, and the schema is created on the first successful
// contact, so an unreachable database surfaces as ErrSinkUnavailable there
// rather than here. Only an invalid URL fails Connect.
func Connect(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("configure database pool: %w", err)
	}

	s := New(pool, opts...)
	s.closeFn = pool.Close
	s.schemaReady = false
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func (s *Store) Add(ctx context.Context, content string, metadata map[string]string) (string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return "", err
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	id := uuid.New().String()
	query := fmt.Sprintf(`INSERT INTO %s (id, content, metadata) VALUES ($1, $2, $3::jsonb)`, s.tableName)
	if _, err := s.db.Exec(ctx, query, id, content, string(meta)); err != nil {
		return "", wrap("insert memory unit", err)
	}
	return id, nil
}

// Query ranks matching rows with ts_rank. Every filter key must match
// exactly; an empty filter is the empty JSON object, which every row contains.
func (s *Store) Query(ctx context.Context, text string, limit int, filter memory.Filter) ([]memory.Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if filter == nil {
		filter = memory.Filter{}
	}
	where, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, content, metadata,
		ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1)) AS score
		FROM %s
		WHERE to_tsvector('english', content) @@ plainto_tsquery('english', $1)
		  AND metadata @> $2::jsonb
		ORDER BY score DESC, created_at DESC
		LIMIT $3`, s.tableName)

	rows, err := s.db.Query(ctx, query, text, string(where), limit)
	if err != nil {
		return nil, wrap("query memory units", err)
	}
	defer rows.Close()

	var records []memory.Record
	for rows.Next() {
		var (
			rec   memory.Record
			meta  []byte
			score float32
		)
		if err := rows.Scan(&rec.ID, &rec.Content, &meta, &score); err != nil {
			return nil, fmt.Errorf("scan memory unit: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", rec.ID, err)
			}
		}
		if rec.Metadata == nil {
			rec.Metadata = map[string]string{}
		}
		rec.Score = float64(score)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate memory units", err)
	}
	return records, nil
}

// Ping checks connectivity and, on a store built by Connect, creates the
// schema the first time the server answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return memory.Unavailable(backendName, err)
	}
	return s.ensureSchema(ctx)
}

func (s *Store) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// wrap reports connection failures as sink unavailability.
func wrap(op string, err error) error {
	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return memory.Unavailable(backendName, fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
