package pgsink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    id         TEXT PRIMARY KEY,
    content    TEXT NOT NULL,
    metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createContentIndexSQL = `CREATE INDEX IF NOT EXISTS %s
    ON %s USING GIN (to_tsvector('english', content))`

const createMetadataIndexSQL = `CREATE INDEX IF NOT EXISTS %s
    ON %s USING GIN (metadata jsonb_path_ops)`

// EnsureSchema creates the table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createTableSQL, s.tableName)); err != nil {
		return wrap("create table", err)
	}

	contentIdx := pgx.Identifier{"idx_" + s.name + "_content_fts"}.Sanitize()
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createContentIndexSQL, contentIdx, s.tableName)); err != nil {
		return wrap("create content index", err)
	}

	metaIdx := pgx.Identifier{"idx_" + s.name + "_metadata"}.Sanitize()
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createMetadataIndexSQL, metaIdx, s.tableName)); err != nil {
		return wrap("create metadata index", err)
	}
	return nil
}
