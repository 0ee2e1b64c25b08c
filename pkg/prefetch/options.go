package prefetch

import (
	"time"

	"github.com/warpdl/warpfetch/pkg/logger"
)

const (
	// DefaultWindowSize is the number of indices prefetched past the visible region.
	DefaultWindowSize = 12
	// DefaultDelay is the quiescence delay between the first visibility event
	// of a burst and the window recomputation.
	DefaultDelay = 100 * time.Millisecond
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWindowSize sets how many indices to look ahead or behind.
// Non-positive values keep DefaultWindowSize.
func WithWindowSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.windowSize = n
		}
	}
}

// WithDelay sets the debounce delay. Non-positive values keep DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the logger used for invariant warnings.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		s.log = logger.OrNop(l)
	}
}

// stopper is the part of *time.Timer the scheduler needs.
type stopper interface {
	Stop() bool
}

func withAfterFunc(fn func(time.Duration, func()) stopper) Option {
	return func(s *Scheduler) {
		s.afterFunc = fn
	}
}

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}
