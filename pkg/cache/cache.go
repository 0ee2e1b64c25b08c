// Package cache stores fetched payloads keyed by URL.
//
// Blobs live in an afero filesystem under their SHA-256 key. Metadata lives
// in a small SQLite index so that pruning and lookups do not walk the tree.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/warpfetch/pkg/logger"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound              = errors.New("cache: entry not found")
	ErrInProgress            = errors.New("cache: entry is being written")
	ErrInsufficientDiskSpace = errors.New("insufficient disk space")
	ErrClosed                = errors.New("cache: closed")
)

const partSuffix = ".part"

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key        TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	size       INTEGER NOT NULL,
	fetched_at INTEGER NOT NULL
)`

// Options configures a Cache.
type Options struct {
	// Fs holds the blobs. Defaults to the OS filesystem.
	Fs afero.Fs
	// Dir is the blob directory inside Fs.
	Dir string
	// DBPath is the SQLite index path. ":memory:" keeps the index in memory.
	DBPath string
	Logger logger.Logger
}

// Stats summarizes the committed entries.
type Stats struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
	Writing int   `json:"writing"`
}

// Cache is safe for concurrent use.
type Cache struct {
	fs  afero.Fs
	dir string
	db  *sql.DB
	log logger.Logger

	now       func() time.Time
	diskCheck func(path string, required int64) error

	mu      sync.Mutex
	writing map[string]struct{}
	closed  bool
}

// Open prepares the blob directory and the index.
func Open(opts Options) (*Cache, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Dir == "" {
		return nil, errors.New("cache: directory is required")
	}
	if opts.DBPath == "" {
		opts.DBPath = filepath.Join(opts.Dir, "index.db")
	}
	if err := opts.Fs.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}
	dsn := opts.DBPath
	if dsn != ":memory:" {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open index: %w", err)
	}
	// One connection serializes index writes from concurrent commits and
	// keeps a ":memory:" index from splitting across pooled connections.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create schema: %w", err)
	}
	c := &Cache{
		fs:        opts.Fs,
		dir:       opts.Dir,
		db:        db,
		log:       logger.OrNop(opts.Logger),
		now:       time.Now,
		diskCheck: checkDiskSpace,
		writing:   make(map[string]struct{}),
	}
	c.sweepParts()
	return c, nil
}

// Key returns the blob name for url.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) blobPath(key string) string {
	return filepath.Join(c.dir, key)
}

// sweepParts removes partial blobs left behind by an earlier process.
func (c *Cache) sweepParts() {
	matches, err := afero.Glob(c.fs, filepath.Join(c.dir, "*"+partSuffix))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := c.fs.Remove(m); err != nil {
			c.log.Warning("cache: failed to remove stale %s: %v", m, err)
		}
	}
}

// Has reports whether url has a committed entry.
func (c *Cache) Has(url string) bool {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE key = ?`, Key(url)).Scan(&n)
	return err == nil && n > 0
}

// Writing reports whether an entry for url is currently being written.
func (c *Cache) Writing(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.writing[Key(url)]
	return ok
}

// Create reserves an entry for url. size may be -1 when unknown; a known size
// larger than the free space on the cache volume is refused.
func (c *Cache) Create(url string, size int64) (*Entry, error) {
	key := Key(url)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if _, busy := c.writing[key]; busy {
		c.mu.Unlock()
		return nil, ErrInProgress
	}
	c.writing[key] = struct{}{}
	c.mu.Unlock()

	if err := c.diskCheck(c.dir, size); err != nil {
		c.release(key)
		return nil, err
	}
	f, err := c.fs.OpenFile(c.blobPath(key)+partSuffix, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		c.release(key)
		return nil, fmt.Errorf("cache: create blob: %w", err)
	}
	return &Entry{c: c, key: key, url: url, f: f}, nil
}

func (c *Cache) release(key string) {
	c.mu.Lock()
	delete(c.writing, key)
	c.mu.Unlock()
}

// Open returns a reader over the committed blob of url.
func (c *Cache) Open(url string) (io.ReadCloser, error) {
	if !c.Has(url) {
		return nil, ErrNotFound
	}
	f, err := c.fs.Open(c.blobPath(Key(url)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Remove deletes the entry of url. Missing entries are not an error.
func (c *Cache) Remove(url string) error {
	key := Key(url)
	if _, err := c.db.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache: delete row: %w", err)
	}
	if err := c.fs.Remove(c.blobPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: delete blob: %w", err)
	}
	return nil
}

// Prune drops every entry fetched before the cutoff and returns how many
// were removed.
func (c *Cache) Prune(before time.Time) (int, error) {
	rows, err := c.db.Query(`SELECT key FROM entries WHERE fetched_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("cache: query stale entries: %w", err)
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return 0, fmt.Errorf("cache: scan stale entry: %w", err)
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, k := range keys {
		if err := c.fs.Remove(c.blobPath(k)); err != nil && !os.IsNotExist(err) {
			c.log.Warning("cache: failed to remove blob %s: %v", k, err)
			continue
		}
		if _, err := c.db.Exec(`DELETE FROM entries WHERE key = ?`, k); err != nil {
			return removed, fmt.Errorf("cache: delete row: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Stats returns entry count and total committed size.
func (c *Cache) Stats() (Stats, error) {
	var s Stats
	err := c.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM entries`).Scan(&s.Entries, &s.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: stats: %w", err)
	}
	c.mu.Lock()
	s.Writing = len(c.writing)
	c.mu.Unlock()
	return s, nil
}

// Close closes the index. Entries still being written can only be aborted.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.db.Close()
}
