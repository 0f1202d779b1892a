package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store is the sqlite-backed memoization cache for compiled scripts and
// query results. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open creates or opens the cache database at path, creating its parent
// directory if necessary, and applies the current schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ContentHash returns the hex-encoded sha256 digest of data, used as the
// cache key for both compiled scripts and query results.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetCompiledScript looks up a previously cached compiled script by its
// content hash. The second return value reports whether an entry was found.
func (s *Store) GetCompiledScript(ctx context.Context, contentHash string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var compiled string
	err := s.db.QueryRowContext(ctx, `SELECT compiled FROM script_cache WHERE content_hash = ?`, contentHash).Scan(&compiled)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading script cache: %w", err)
	}
	return compiled, true, nil
}

// PutCompiledScript stores a compiled script under its content hash.
func (s *Store) PutCompiledScript(ctx context.Context, contentHash, compiled string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO script_cache (content_hash, compiled, created_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(content_hash) DO UPDATE SET compiled = excluded.compiled, created_at = excluded.created_at
	`, contentHash, compiled)
	if err != nil {
		return fmt.Errorf("writing script cache: %w", err)
	}
	return nil
}

// GetQueryResult looks up a previously cached query result by its query
// key (a content hash over the script hash and query parameters).
func (s *Store) GetQueryResult(ctx context.Context, queryKey string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result string
	err := s.db.QueryRowContext(ctx, `SELECT result FROM query_cache WHERE query_key = ?`, queryKey).Scan(&result)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading query cache: %w", err)
	}
	return result, true, nil
}

// PutQueryResult stores a query result under its query key, recording
// which script content hash it was derived from so Invalidate can drop it
// later without re-hashing every cached query.
func (s *Store) PutQueryResult(ctx context.Context, queryKey, scriptHash, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning query cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO query_cache (query_key, result, created_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(query_key) DO UPDATE SET result = excluded.result, created_at = excluded.created_at
	`, queryKey, result); err != nil {
		return fmt.Errorf("writing query cache: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO query_cache_script (query_key, content_hash) VALUES (?, ?)
	`, queryKey, scriptHash); err != nil {
		return fmt.Errorf("writing query cache script link: %w", err)
	}

	return tx.Commit()
}

// Invalidate drops every cached query result derived from the given script
// content hash, used when a script's source text changes.
func (s *Store) Invalidate(ctx context.Context, scriptHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM query_cache WHERE query_key IN (
			SELECT query_key FROM query_cache_script WHERE content_hash = ?
		)
	`, scriptHash)
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	return nil
}
