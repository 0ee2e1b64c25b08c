package cron

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/adhocore/gronx"
	"github.com/warpdl/warpfetch/pkg/logger"
)

const maxSleepCap = 60 * time.Second

var ErrInvalidExpr = errors.New("invalid cron expression")

// Scheduler runs jobs from a single goroutine. Jobs run on that goroutine
// one at a time; a slow job delays the ones behind it.
type Scheduler struct {
	addChan    chan event
	removeChan chan string
	ctx        context.Context
	log        logger.Logger
	now        func() time.Time
}

// New starts a Scheduler that stops when ctx is cancelled.
func New(ctx context.Context, l logger.Logger) *Scheduler {
	s := &Scheduler{
		addChan:    make(chan event, 16),
		removeChan: make(chan string, 16),
		ctx:        ctx,
		log:        logger.OrNop(l),
		now:        time.Now,
	}
	go s.run()
	return s
}

// Add validates job.Expr and schedules the job's next run.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("cron: job needs a name and a run function")
	}
	if !gronx.New().IsValid(job.Expr) {
		return fmt.Errorf("cron: %w: %q", ErrInvalidExpr, job.Expr)
	}
	at := s.now()
	if !job.RunAtStart {
		next, err := nextOccurrence(job.Expr, at)
		if err != nil {
			return fmt.Errorf("cron: %w: %v", ErrInvalidExpr, err)
		}
		at = next
	}
	select {
	case s.addChan <- event{job: job, triggerAt: at}:
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	return nil
}

// Remove cancels every pending run of the named job.
func (s *Scheduler) Remove(name string) {
	select {
	case s.removeChan <- name:
	case <-s.ctx.Done():
	}
}

func (s *Scheduler) run() {
	h := &eventHeap{}
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := (*h)[0].triggerAt.Sub(s.now())
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}
	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case e := <-s.addChan:
			heapRemoveByName(h, e.job.Name)
			heapPush(h, e)
			timerCh = resetTimer()

		case name := <-s.removeChan:
			heapRemoveByName(h, name)
			timerCh = resetTimer()

		case <-timerCh:
			now := s.now()
			for h.Len() > 0 && !(*h)[0].triggerAt.After(now) {
				e := heapPop(h)
				s.fire(e.job)
				next, err := nextOccurrence(e.job.Expr, s.now())
				if err != nil {
					s.log.Error("cron: %s: cannot compute next run: %v", e.job.Name, err)
					continue
				}
				heapPush(h, event{job: e.job, triggerAt: next})
			}
			timerCh = resetTimer()
		}
	}
}

func (s *Scheduler) fire(job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("PANIC [cron:%s]: %v\n%s", job.Name, r, debug.Stack())
		}
	}()
	start := s.now()
	if err := job.Run(s.ctx); err != nil {
		s.log.Warning("cron: %s failed: %v", job.Name, err)
		return
	}
	s.log.Info("cron: %s finished in %s", job.Name, s.now().Sub(start).Round(time.Millisecond))
}

// nextOccurrence returns the first tick strictly after start.
func nextOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}
