package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache", "summaries.db"), time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSQLiteCache_SetAndGet(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "summary:abc:1000", "a short summary", 0))

	got, ok, err := c.Get(ctx, "summary:abc:1000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a short summary", got)
}

func TestSQLiteCache_Miss(t *testing.T) {
	c := newTestSQLiteCache(t)

	got, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestSQLiteCache_Overwrite(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "first", 0))
	require.NoError(t, c.Set(ctx, "k", "second", 0))

	got, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteCache_Expiry(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "k", "stale soon", time.Minute))

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "expired row dropped on read")
}

func TestSQLiteCache_Purge(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "short", "x", time.Second))
	require.NoError(t, c.Set(ctx, "long", "y", time.Hour))

	c.now = func() time.Time { return now.Add(time.Minute) }
	purged, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	got, ok, err := c.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "y", got)
}

func TestSQLiteCache_Delete(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCache_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.db")
	ctx := context.Background()

	first, err := NewSQLiteCache(path, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", "kept", 0))
	require.NoError(t, first.Close())

	second, err := NewSQLiteCache(path, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer second.Close()

	got, ok, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "kept", got)
}
