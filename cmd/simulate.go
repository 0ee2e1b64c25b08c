package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/warpdl/warpfetch/cmd/common"
	"github.com/warpdl/warpfetch/pkg/catalog"
	"github.com/warpdl/warpfetch/pkg/fetch"
	"github.com/warpdl/warpfetch/pkg/logger"
	"github.com/warpdl/warpfetch/pkg/prefetch"
)

// drainTimeout caps how long simulate waits for the last window to finish.
const drainTimeout = 2 * time.Minute

// barSet keeps one progress bar per in-flight index.
type barSet struct {
	p    *mpb.Progress
	mu   sync.Mutex
	bars map[int]*mpb.Bar
}

func newBarSet(p *mpb.Progress) *barSet {
	return &barSet{p: p, bars: make(map[int]*mpb.Bar)}
}

func (b *barSet) handlers() *fetch.Handlers {
	return &fetch.Handlers{
		OnStart: func(index int, url string, size int64) {
			name := fmt.Sprintf("#%d %s", index, path.Base(url))
			bar := common.NewFetchBar(b.p, name, size)
			b.mu.Lock()
			if old := b.bars[index]; old != nil {
				old.Abort(true)
			}
			b.bars[index] = bar
			b.mu.Unlock()
		},
		OnProgress: func(index int, n int) {
			if bar := b.get(index); bar != nil {
				bar.IncrBy(n)
			}
		},
		OnComplete: func(index int, _ string, _ int64) {
			if bar := b.take(index); bar != nil {
				bar.SetTotal(-1, true)
			}
		},
		OnError: func(index int, _ string, _ error) {
			if bar := b.take(index); bar != nil {
				bar.Abort(false)
			}
		},
		OnCancel: func(index int, _ string) {
			if bar := b.take(index); bar != nil {
				bar.Abort(true)
			}
		},
	}
}

func (b *barSet) get(index int) *mpb.Bar {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bars[index]
}

func (b *barSet) take(index int) *mpb.Bar {
	b.mu.Lock()
	defer b.mu.Unlock()
	bar := b.bars[index]
	delete(b.bars, index)
	return bar
}

// abortAll ends every bar still open so the progress container can exit.
func (b *barSet) abortAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, bar := range b.bars {
		bar.Abort(true)
		delete(b.bars, i)
	}
}

// viewportStep is one position of the simulated viewport.
type viewportStep struct {
	lo, hi int
}

// scrollPlan lists the viewport positions for a list of n items. A negative
// step starts at the end and scrolls up.
func scrollPlan(n, size, step, ticks int) []viewportStep {
	if n <= 0 || size <= 0 || step == 0 {
		return nil
	}
	if size > n {
		size = n
	}
	lo := 0
	if step < 0 {
		lo = n - size
	}
	var plan []viewportStep
	for {
		plan = append(plan, viewportStep{lo: lo, hi: lo + size})
		if ticks > 0 && len(plan) >= ticks {
			return plan
		}
		next := lo + step
		if next < 0 {
			next = 0
		}
		if next+size > n {
			next = n - size
		}
		if next == lo {
			return plan
		}
		lo = next
	}
}

// applyStep reports the visibility changes from prev to next to the viewport.
func applyStep(v interface {
	OnAppear(int)
	OnDisappear(int)
}, prev, next viewportStep) {
	for i := prev.lo; i < prev.hi; i++ {
		if i < next.lo || i >= next.hi {
			v.OnDisappear(i)
		}
	}
	for i := next.lo; i < next.hi; i++ {
		if i < prev.lo || i >= prev.hi {
			v.OnAppear(i)
		}
	}
}

func simulate(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("expected exactly one catalog"))
	}
	cfg, err := fetchConfigFromContext(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	log := logger.Logger(logger.NewNopLogger())
	if cfg.debug {
		log, _ = newLogger("")
	}

	src, err := catalog.NewSource(ctx.Args().First(), log)
	if err != nil {
		common.PrintRuntimeErr(ctx, "simulate", "catalog", err)
		return err
	}
	urls, err := src.Load()
	if err != nil {
		common.PrintRuntimeErr(ctx, "simulate", "catalog", err)
		return err
	}
	list := catalog.NewList(urls)

	if cfg.cacheDir == "" {
		dir, err := os.MkdirTemp("", "warpfetch-sim-")
		if err != nil {
			common.PrintRuntimeErr(ctx, "simulate", "cache_dir", err)
			return err
		}
		defer os.RemoveAll(dir)
		cfg.cacheDir = dir
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var out io.Writer = ctx.App.Writer
	p := mpb.NewWithContext(sigCtx, mpb.WithOutput(out), mpb.WithWidth(48))
	bars := newBarSet(p)
	stack, err := newFetchStack(&cfg, list, bars.handlers(), log)
	if err != nil {
		common.PrintRuntimeErr(ctx, "simulate", "fetch_stack", err)
		return err
	}

	var begun, cancelled int
	var countMu sync.Mutex
	sink := prefetch.SinkFuncs{
		Begin: func(indices []int) {
			countMu.Lock()
			begun += len(indices)
			countMu.Unlock()
			stack.executor.BeginPrefetch(indices)
		},
		Cancel: func(indices []int) {
			countMu.Lock()
			cancelled += len(indices)
			countMu.Unlock()
			stack.executor.CancelPrefetch(indices)
		},
	}
	sched := prefetch.New(sink, list,
		prefetch.WithWindowSize(cfg.window),
		prefetch.WithDelay(cfg.delay),
		prefetch.WithLogger(log),
	)

	plan := scrollPlan(list.Len(), ctx.Int("viewport"), ctx.Int("step"), ctx.Int("ticks"))
	interval := ctx.Duration("interval")
	prev := viewportStep{}
	for _, st := range plan {
		applyStep(sched, prev, st)
		prev = st
		select {
		case <-sigCtx.Done():
		case <-time.After(interval):
		}
		if sigCtx.Err() != nil {
			break
		}
	}

	waitIdle(sigCtx, sched, stack.executor)
	sched.Close()
	stats := stack.executor.Stats()
	_ = stack.executor.Close()
	bars.abortAll()
	p.Wait()
	_ = stack.cache.Close()

	countMu.Lock()
	fmt.Fprintf(out, "\nScrolled %d steps over %d items; window %d\n", len(plan), list.Len(), cfg.window)
	fmt.Fprintf(out, "Prefetch: %d begun, %d cancelled\n", begun, cancelled)
	countMu.Unlock()
	fmt.Fprintf(out, "Fetches:  %d completed, %d failed, %d cancelled, %d skipped\n",
		stats.Completed, stats.Failed, stats.Cancelled, stats.Skipped)
	return nil
}

// waitIdle blocks until no recompute is pending and the executor has
// nothing active or queued, or until ctx ends or drainTimeout passes.
func waitIdle(ctx context.Context, sched *prefetch.Scheduler, exec *fetch.Executor) {
	deadline := time.After(drainTimeout)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		st := exec.Stats()
		if !sched.Pending() && st.Active == 0 && st.Waiting == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
		}
	}
}
