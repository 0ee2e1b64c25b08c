package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
)

var ErrEntryDone = errors.New("cache: entry already committed or aborted")

// Entry is a blob being written. Exactly one of Commit or Abort finishes it.
type Entry struct {
	c   *Cache
	key string
	url string
	f   afero.File

	mu      sync.Mutex
	written int64
	done    bool
}

// Write appends p to the partial blob.
func (e *Entry) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return 0, ErrEntryDone
	}
	n, err := e.f.Write(p)
	e.written += int64(n)
	return n, err
}

// Written returns the number of bytes written so far.
func (e *Entry) Written() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.written
}

// Commit publishes the blob and records it in the index.
func (e *Entry) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return ErrEntryDone
	}
	e.done = true
	defer e.c.release(e.key)

	part := e.f.Name()
	if err := e.f.Close(); err != nil {
		e.c.fs.Remove(part)
		return fmt.Errorf("cache: close blob: %w", err)
	}
	final := e.c.blobPath(e.key)
	if err := e.c.fs.Rename(part, final); err != nil {
		e.c.fs.Remove(part)
		return fmt.Errorf("cache: publish blob: %w", err)
	}
	_, err := e.c.db.Exec(
		`INSERT INTO entries (key, url, size, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET size = excluded.size, fetched_at = excluded.fetched_at`,
		e.key, e.url, e.written, e.c.now().Unix(),
	)
	if err != nil {
		e.c.fs.Remove(final)
		return fmt.Errorf("cache: record entry: %w", err)
	}
	return nil
}

// Abort discards the partial blob. Aborting a finished entry is a no-op.
func (e *Entry) Abort() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return nil
	}
	e.done = true
	defer e.c.release(e.key)

	part := e.f.Name()
	e.f.Close()
	if err := e.c.fs.Remove(part); err != nil {
		return fmt.Errorf("cache: discard blob: %w", err)
	}
	return nil
}
