// Package store memoizes compiled scripts and query results in a
// schema-versioned SQLite database. Queries are pure functions of their
// inputs (spec.md §5), which is exactly what makes them safe to cache; a
// miss here always falls through to a full script compile or
// query.Evaluate call, never a correctness concern.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
-- Compiled script cache, keyed by a content hash of the script text.
CREATE TABLE IF NOT EXISTS script_cache (
    content_hash TEXT PRIMARY KEY,
    compiled TEXT NOT NULL,
    created_at TEXT NOT NULL
);

-- Query result cache, keyed by a content hash of (script hash, target
-- scope, global scope, initial values).
CREATE TABLE IF NOT EXISTS query_cache (
    query_key TEXT PRIMARY KEY,
    result TEXT NOT NULL,
    created_at TEXT NOT NULL
);

-- Dirty tracking so Invalidate can drop every query result derived from a
-- given script without re-hashing every query key.
CREATE TABLE IF NOT EXISTS query_cache_script (
    query_key TEXT NOT NULL REFERENCES query_cache(query_key) ON DELETE CASCADE,
    content_hash TEXT NOT NULL,
    PRIMARY KEY (query_key, content_hash)
);
CREATE INDEX IF NOT EXISTS idx_query_cache_script_hash ON query_cache_script(content_hash);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the schema if it does not already exist and records
// the applied version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version WHERE version = ?`, SchemaVersion).Scan(&count); err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion); err != nil {
			return fmt.Errorf("recording schema version: %w", err)
		}
	}

	return nil
}
