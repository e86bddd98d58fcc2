package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// SqliteStore keeps cache entries in a SQLite database. With a shared file it
// serves as the cross-process cache store, a fetch done by one process is
// visible to the others until the entry expires.
type SqliteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at TIMESTAMP NOT NULL
)`

// NewSqliteStore opens (and initializes if needed) a SQLite-backed cache.
func NewSqliteStore(ctx context.Context, dsn string) (*SqliteStore, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, cacheSchema); err != nil {
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &SqliteStore{db: db, now: time.Now}, nil
}

// Get returns the entry for key if present and not expired. Expired entries
// are removed lazily on read.
func (s *SqliteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row struct {
		Value     []byte    `db:"value"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	err := s.db.GetContext(ctx, &row, "SELECT value, expires_at FROM cache_entries WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}

	if s.now().After(row.ExpiresAt) {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
			return nil, false, fmt.Errorf("drop expired cache entry: %w", err)
		}
		return nil, false, nil
	}
	return row.Value, true, nil
}

// Set upserts the entry with the given TTL, retrying on a contended database.
func (s *SqliteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)",
			key, value, s.now().Add(ttl))
		if err != nil {
			return fmt.Errorf("set cache entry: %w", err)
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}
