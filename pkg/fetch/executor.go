package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/warpdl/warpfetch/pkg/cache"
	"github.com/warpdl/warpfetch/pkg/logger"
	"github.com/warpdl/warpfetch/pkg/prefetch"
)

const DefaultMaxConcurrent = 4

// Resolver maps item indices to URLs.
type Resolver interface {
	URL(index int) (string, bool)
}

// Handlers are optional callbacks fired from fetch goroutines.
type Handlers struct {
	OnStart    func(index int, url string, size int64)
	OnProgress func(index int, n int)
	OnComplete func(index int, url string, bytes int64)
	OnError    func(index int, url string, err error)
	OnCancel   func(index int, url string)
}

// ExecutorOptions configures an Executor. Router, Catalog and Cache are
// required.
type ExecutorOptions struct {
	Router        *SchemeRouter
	Catalog       Resolver
	Cache         *cache.Cache
	MaxConcurrent int
	Retry         RetryConfig
	Fetch         *Options
	Handlers      *Handlers
	Logger        logger.Logger
}

// Stats is a snapshot of executor activity.
type Stats struct {
	Active    int   `json:"active"`
	Waiting   int   `json:"waiting"`
	Paused    bool  `json:"paused"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
	Skipped   int64 `json:"skipped"`
}

type job struct {
	id     int
	index  int
	url    string
	ctx    context.Context
	cancel context.CancelFunc
}

// Executor turns prefetch deltas into cached downloads.
type Executor struct {
	router   *SchemeRouter
	catalog  Resolver
	cache    *cache.Cache
	retry    RetryConfig
	fopts    *Options
	handlers Handlers
	log      logger.Logger
	queue    *Queue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	nextID  int
	byIndex map[int]*job
	jobs    map[int]*job
	closed  bool

	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
	skipped   atomic.Int64
}

func NewExecutor(opts ExecutorOptions) (*Executor, error) {
	if opts.Router == nil || opts.Catalog == nil || opts.Cache == nil {
		return nil, errors.New("fetch: executor needs a router, a catalog and a cache")
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Fetch == nil {
		opts.Fetch = &Options{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		router:  opts.Router,
		catalog: opts.Catalog,
		cache:   opts.Cache,
		retry:   opts.Retry,
		fopts:   opts.Fetch,
		log:     logger.OrNop(opts.Logger),
		ctx:     ctx,
		cancel:  cancel,
		byIndex: make(map[int]*job),
		jobs:    make(map[int]*job),
	}
	if opts.Handlers != nil {
		e.handlers = *opts.Handlers
	}
	e.queue = NewQueue(opts.MaxConcurrent, e.start)
	return e, nil
}

var _ prefetch.Sink = (*Executor)(nil)

// BeginPrefetch queues a fetch for every index that resolves to a URL not
// already cached or in flight.
func (e *Executor) BeginPrefetch(indices []int) {
	for _, i := range indices {
		url, ok := e.catalog.URL(i)
		if !ok {
			e.skipped.Add(1)
			e.log.Warning("fetch: %v: %d", ErrNotResolvable, i)
			continue
		}
		if e.cache.Has(url) || e.cache.Writing(url) {
			e.skipped.Add(1)
			continue
		}

		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return
		}
		if _, busy := e.byIndex[i]; busy {
			e.mu.Unlock()
			continue
		}
		if e.urlQueuedLocked(url) {
			// another index shares the URL
			e.mu.Unlock()
			e.skipped.Add(1)
			continue
		}
		ctx, cancel := context.WithCancel(e.ctx)
		j := &job{id: e.nextID, index: i, url: url, ctx: ctx, cancel: cancel}
		e.nextID++
		e.byIndex[i] = j
		e.jobs[j.id] = j
		e.mu.Unlock()

		e.queue.Add(j.id)
	}
}

func (e *Executor) urlQueuedLocked(url string) bool {
	for _, j := range e.jobs {
		if j.url == url && j.ctx.Err() == nil {
			return true
		}
	}
	return false
}

// CancelPrefetch drops queued fetches for indices and cancels running ones.
func (e *Executor) CancelPrefetch(indices []int) {
	for _, i := range indices {
		e.mu.Lock()
		j, ok := e.byIndex[i]
		if ok {
			delete(e.byIndex, i)
			j.cancel()
		}
		e.mu.Unlock()
		if !ok {
			continue
		}
		if e.queue.Remove(j.id) {
			e.mu.Lock()
			delete(e.jobs, j.id)
			e.mu.Unlock()
			e.cancelled.Add(1)
			e.fireCancel(j)
		}
	}
}

// start is the queue's onStart callback. It runs with the queue lock held.
func (e *Executor) start(id int) {
	e.mu.Lock()
	j, ok := e.jobs[id]
	if !ok || e.closed {
		e.mu.Unlock()
		go e.queue.OnComplete(id)
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	safeGo(e.log, &e.wg, "fetch:"+j.url, func(r interface{}) {
		e.failed.Add(1)
		e.fireError(j, fmt.Errorf("panic: %v", r))
		e.finish(j)
	}, func() {
		e.run(j)
		e.finish(j)
	})
}

func (e *Executor) finish(j *job) {
	j.cancel()
	e.mu.Lock()
	delete(e.jobs, j.id)
	if e.byIndex[j.index] == j {
		delete(e.byIndex, j.index)
	}
	e.mu.Unlock()
	e.queue.OnComplete(j.id)
}

func (e *Executor) run(j *job) {
	state := &RetryState{}
	for {
		state.Attempts++
		n, err := e.attempt(j, state.Attempts == 1)
		if err == nil {
			e.completed.Add(1)
			if e.handlers.OnComplete != nil {
				e.handlers.OnComplete(j.index, j.url, n)
			}
			return
		}
		if j.ctx.Err() != nil {
			e.cancelled.Add(1)
			e.fireCancel(j)
			return
		}
		if !e.retry.ShouldRetry(state, err) {
			e.failed.Add(1)
			e.log.Error("fetch: %s failed after %d attempt(s): %v",
				StripURLCredentials(j.url), state.Attempts, err)
			e.fireError(j, err)
			return
		}
		category := ClassifyError(err)
		e.log.Warning("fetch: %s attempt %d failed (%s), retrying: %v",
			StripURLCredentials(j.url), state.Attempts, category, err)
		if err := e.retry.WaitForRetry(j.ctx, state, category); err != nil {
			e.cancelled.Add(1)
			e.fireCancel(j)
			return
		}
	}
}

// attempt performs one probe and transfer into a fresh cache entry.
func (e *Executor) attempt(j *job, first bool) (int64, error) {
	f, err := e.router.NewFetcher(j.url, e.fopts)
	if err != nil {
		return 0, err
	}
	probe, err := f.Probe(j.ctx)
	if err != nil {
		return 0, err
	}
	if first && e.handlers.OnStart != nil {
		e.handlers.OnStart(j.index, j.url, probe.ContentLength)
	}
	entry, err := e.cache.Create(j.url, probe.ContentLength)
	if err != nil {
		if errors.Is(err, cache.ErrInProgress) {
			// an earlier, cancelled fetch of the same URL is still unwinding
			return 0, NewTransientError("cache", "reserve", err)
		}
		return 0, NewPermanentError("cache", "reserve", err)
	}

	var progress func(int)
	if e.handlers.OnProgress != nil {
		progress = func(n int) { e.handlers.OnProgress(j.index, n) }
	}
	n, err := f.Fetch(j.ctx, entry, progress)
	if err == nil {
		err = j.ctx.Err()
	}
	if err != nil {
		if aerr := entry.Abort(); aerr != nil {
			e.log.Warning("fetch: %v", aerr)
		}
		return n, err
	}
	if err := entry.Commit(); err != nil {
		return n, NewPermanentError("cache", "commit", err)
	}
	return n, nil
}

func (e *Executor) fireCancel(j *job) {
	if e.handlers.OnCancel != nil {
		e.handlers.OnCancel(j.index, j.url)
	}
}

func (e *Executor) fireError(j *job, err error) {
	if e.handlers.OnError != nil {
		e.handlers.OnError(j.index, j.url, err)
	}
}

// Stats returns current queue occupancy and lifetime counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Active:    e.queue.ActiveCount(),
		Waiting:   e.queue.WaitingCount(),
		Paused:    e.queue.IsPaused(),
		Completed: e.completed.Load(),
		Failed:    e.failed.Load(),
		Cancelled: e.cancelled.Load(),
		Skipped:   e.skipped.Load(),
	}
}

// Pause keeps queued fetches from starting. Running fetches continue.
func (e *Executor) Pause() {
	e.queue.Pause()
}

// Resume starts queued fetches up to the concurrency limit.
func (e *Executor) Resume() {
	e.queue.Resume()
}

// Close cancels every fetch and waits for running ones to unwind.
func (e *Executor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	dropped := e.queue.Clear()
	e.mu.Lock()
	for _, id := range dropped {
		if j, ok := e.jobs[id]; ok {
			j.cancel()
			delete(e.jobs, id)
			delete(e.byIndex, j.index)
		}
	}
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
	return nil
}
