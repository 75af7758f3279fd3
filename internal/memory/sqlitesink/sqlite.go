// Package sqlitesink implements memory.Sink on a local SQLite file. It needs
// no server, which makes it the offline backend for the CLI.
package sqlitesink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

const (
	defaultLimit = 5
	backendName  = "sqlite"
)

type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy io.Reader
}

var _ memory.Sink = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS memory_units (
		id         TEXT PRIMARY KEY,
		content    TEXT NOT NULL,
		metadata   TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memory_units_created ON memory_units(created_at DESC);
	`)
	return err
}

// ULIDs sort by creation time. Monotonic entropy is not safe for concurrent
// use.
func (s *Store) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) Add(ctx context.Context, content string, metadata map[string]string) (string, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	id := s.newID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_units (id, content, metadata, created_at) VALUES (?, ?, ?, ?)`,
		id, content, string(meta), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert memory unit: %w", err)
	}
	return id, nil
}

// Query selects rows containing any query term and ranks them by the share
// of terms they contain, newest first on ties. An empty query returns the
// newest rows matching the filter.
func (s *Store) Query(ctx context.Context, text string, limit int, filter memory.Filter) ([]memory.Record, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	terms := queryTerms(text)

	var where []string
	var args []any

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		where = append(where, "json_extract(metadata, ?) = ?")
		args = append(args, jsonPath(k), filter[k])
	}

	if len(terms) > 0 {
		var likes []string
		for _, t := range terms {
			likes = append(likes, `content LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(t)+"%")
		}
		where = append(where, "("+strings.Join(likes, " OR ")+")")
	}

	query := `SELECT id, content, metadata FROM memory_units`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if len(terms) == 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memory units: %w", err)
	}
	defer rows.Close()

	var records []memory.Record
	for rows.Next() {
		var rec memory.Record
		var meta string
		if err := rows.Scan(&rec.ID, &rec.Content, &meta); err != nil {
			return nil, fmt.Errorf("scan memory unit: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", rec.ID, err)
		}
		if rec.Metadata == nil {
			rec.Metadata = map[string]string{}
		}
		rec.Score = termScore(rec.Content, terms)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory units: %w", err)
	}

	// Rows arrive newest first, so a stable sort keeps recency as tiebreak.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return memory.Unavailable(backendName, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func queryTerms(text string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(text)) {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

func termScore(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func jsonPath(key string) string {
	return fmt.Sprintf(`$.%q`, key)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
