// Package sqlite provides a ResultCache backed by a SQLite table, so
// cache entries survive restarts and can be shared by several engine
// processes on the same host.
//
// The cache contract is best-effort: every backend failure is logged and
// surfaced as a miss, never as an error.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
)

// Ensure Cache implements the interface.
var _ driven.ResultCache = (*Cache)(nil)

// Cache stores entries in a single cache_entries table.
type Cache struct {
	db  *sql.DB
	now func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Open opens or creates the cache database.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure cache schema: %w", err)
	}
	return &Cache{db: db, now: time.Now}, nil
}

// Get returns the cached value for the key, or false on a miss. Backend
// errors count as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache_entries WHERE key = ?", key).
		Scan(&value, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.misses.Add(1)
		return nil, false
	case err != nil:
		logger.Warn("cache get %s: %v", key, err)
		c.misses.Add(1)
		return nil, false
	}
	if c.now().Unix() >= expiresAt {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
			logger.Warn("cache expire %s: %v", key, err)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return value, true
}

// Set stores the value under the key with the given TTL. Failures are
// logged and dropped.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	expiresAt := c.now().Add(ttl).Unix()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		logger.Warn("cache set %s: %v", key, err)
	}
}

// DeletePattern removes every key matching the glob pattern. Globs are
// translated to SQL LIKE: * becomes %, ? becomes _, and LIKE wildcards
// in the pattern itself are escaped.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	like := globToLike(pattern)
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE key LIKE ? ESCAPE '\\'", like)
	if err != nil {
		logger.Warn("cache delete pattern %s: %v", pattern, err)
	}
}

// Stats reports cache health and hit counters. A failing backend
// reports status "error" with an unknown entry count.
func (c *Cache) Stats(ctx context.Context) domain.CacheStats {
	stats := domain.CacheStats{
		Status: "connected",
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	var entries int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cache_entries WHERE expires_at > ?", c.now().Unix()).
		Scan(&entries)
	if err != nil {
		stats.Status = "error"
		stats.Entries = -1
		return stats
	}
	stats.Entries = entries
	return stats
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func globToLike(pattern string) string {
	var sb strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteByte('%')
		case '?':
			sb.WriteByte('_')
		case '%', '_', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
