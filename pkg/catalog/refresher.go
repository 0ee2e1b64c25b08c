package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/warpdl/warpfetch/pkg/logger"
)

// Status describes the last refresh of a catalog.
type Status struct {
	Items       int       `json:"items"`
	Source      string    `json:"source,omitempty"`
	LastRefresh time.Time `json:"lastRefresh,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
}

// Refresher reloads a List from a Source and remembers the outcome.
// A failed load leaves the current list untouched.
type Refresher struct {
	source Source
	list   *List
	name   string
	log    logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	last    time.Time
	lastErr error
}

// NewRefresher returns a Refresher feeding list from src. name is reported in
// Status and is usually the source path.
func NewRefresher(src Source, list *List, name string, l logger.Logger) *Refresher {
	return &Refresher{
		source: src,
		list:   list,
		name:   name,
		log:    logger.OrNop(l),
		now:    time.Now,
	}
}

// Refresh loads the source and replaces the list. It has the signature of a
// cron job.
func (r *Refresher) Refresh(ctx context.Context) error {
	if r.source == nil {
		return ErrNoSource
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	urls, err := r.source.Load()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
	if err != nil {
		r.log.Error("catalog: refresh %s: %v", r.name, err)
		return err
	}
	r.list.Replace(urls)
	r.last = r.now()
	r.log.Info("catalog: loaded %d items from %s", len(urls), r.name)
	return nil
}

// Status reports the list size and the outcome of the last refresh.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		Items:       r.list.Len(),
		Source:      r.name,
		LastRefresh: r.last,
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}
