package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"wikifetch/pkg/db"
)

// Cacher defines the caching interface.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// Nop is a Cacher that never hits. Used when caching is disabled.
type Nop struct{}

func (Nop) GetCache(ctx context.Context, key string) ([]byte, bool)    { return nil, false }
func (Nop) SetCache(ctx context.Context, key string, val []byte) error { return nil }

// SQLiteCache implements Cacher on top of the cache table in pkg/db.
// Values are gzip-compressed transparently.
type SQLiteCache struct {
	db  *db.DB
	ttl time.Duration
}

// NewSQLiteCache creates a new cache. Entries older than ttl are treated
// as misses; ttl <= 0 disables expiry.
func NewSQLiteCache(d *db.DB, ttl time.Duration) *SQLiteCache {
	return &SQLiteCache{db: d, ttl: ttl}
}

func (c *SQLiteCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	var createdAt time.Time
	err := c.db.QueryRowContext(ctx, "SELECT value, created_at FROM cache WHERE key = ?", key).Scan(&val, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Cache read failed", "key", key, "error", err)
		return nil, false
	}
	if c.ttl > 0 && time.Since(createdAt) > c.ttl {
		return nil, false
	}

	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		decompressed, err := decompress(val)
		if err == nil {
			return decompressed, true
		}
		slog.Warn("Cache entry not decompressible, returning raw", "key", key, "error", err)
	}
	return val, true
}

func (c *SQLiteCache) SetCache(ctx context.Context, key string, val []byte) error {
	if compressed, err := compress(val); err == nil {
		val = compressed
	}

	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err := c.db.ExecContext(ctx, query, key, val, time.Now().UTC())
	return err
}

var (
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// buf goes back to the pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
