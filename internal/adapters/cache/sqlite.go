package cache

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SQLiteCache persists summaries across restarts in a single SQLite file.
type SQLiteCache struct {
	db     *sql.DB
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteCache opens (creating if needed) the cache database at path.
func NewSQLiteCache(path string, ttl time.Duration, logger *zap.Logger) (*SQLiteCache, error) {
	if path == "" {
		path = "./data/summaries.db"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, eris.Wrap(err, "creating cache directory")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, eris.Wrap(err, "opening cache database")
	}
	// One connection: SQLite serializes writers.
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{
		db:     db,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}

	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "initializing cache schema")
	}

	logger.Info("sqlite summary cache opened", zap.String("path", path), zap.Duration("ttl", ttl))
	return c, nil
}

func (c *SQLiteCache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		key TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_summaries_expires_at ON summaries(expires_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached summary if present and unexpired. Expired rows are
// removed lazily.
func (c *SQLiteCache) Get(ctx context.Context, key string) (string, bool, error) {
	var summary string
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT summary, expires_at FROM summaries WHERE key = ?", key,
	).Scan(&summary, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "reading summary %s", key)
	}

	if c.now().UnixNano() >= expiresAt {
		if err := c.Delete(ctx, key); err != nil {
			c.logger.Warn("failed to drop expired summary", zap.String("key", key), zap.Error(err))
		}
		return "", false, nil
	}
	return summary, true, nil
}

// Set stores a summary. A zero ttl uses the cache default.
func (c *SQLiteCache) Set(ctx context.Context, key, summary string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	expiresAt := c.now().Add(ttl).UnixNano()

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO summaries (key, summary, expires_at)
		VALUES (?, ?, ?)
	`, key, summary, expiresAt)
	if err != nil {
		return eris.Wrapf(err, "storing summary %s", key)
	}
	return nil
}

// Delete removes a cached summary.
func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM summaries WHERE key = ?", key)
	return eris.Wrapf(err, "deleting summary %s", key)
}

// Purge removes every expired row and reports how many were dropped.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM summaries WHERE expires_at <= ?", c.now().UnixNano())
	if err != nil {
		return 0, eris.Wrap(err, "purging expired summaries")
	}
	return res.RowsAffected()
}

// Count returns the number of stored rows, expired or not.
func (c *SQLiteCache) Count(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM summaries").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
