package prefetch

import (
	"sync"
	"time"

	"github.com/warpdl/warpfetch/pkg/logger"
)

// Scheduler tracks visible indices and keeps a prefetch window just past them.
//
// OnAppear and OnDisappear never block. The first event after a quiet period
// arms a one-shot timer; events arriving before it fires are folded into the
// same recomputation. An armed timer is never rescheduled.
type Scheduler struct {
	windowSize int
	delay      time.Duration
	space      IndexSpace
	sink       Sink
	log        logger.Logger
	afterFunc  func(time.Duration, func()) stopper

	// mu guards visible, flushed, window, pending, timer and closed.
	mu      sync.Mutex
	visible Set
	flushed Set
	window  Range
	pending bool
	timer   stopper
	closed  bool

	// flushMu serializes recomputations so sink calls never interleave.
	flushMu sync.Mutex
}

// New creates a Scheduler emitting to sink and clamping against space.
// A nil space is treated as an empty index space; a nil sink drops emissions.
func New(sink Sink, space IndexSpace, opts ...Option) *Scheduler {
	s := &Scheduler{
		windowSize: DefaultWindowSize,
		delay:      DefaultDelay,
		space:      space,
		sink:       sink,
		log:        logger.NewNopLogger(),
		afterFunc:  realAfterFunc,
		visible:    make(Set),
		flushed:    make(Set),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnAppear records index as visible. Negative indices are ignored.
func (s *Scheduler) OnAppear(index int) {
	if index < 0 {
		s.log.Warning("prefetch: ignoring negative index %d", index)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.visible.add(index)
	s.armLocked()
}

// OnDisappear records index as no longer visible. Unknown indices are a no-op
// apart from arming the timer.
func (s *Scheduler) OnDisappear(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.visible.remove(index)
	s.armLocked()
}

func (s *Scheduler) armLocked() {
	if s.pending {
		return
	}
	s.pending = true
	s.timer = s.afterFunc(s.delay, s.flush)
}

// Window returns the current prefetch window.
func (s *Scheduler) Window() Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// Visible returns the visible indices in ascending order.
func (s *Scheduler) Visible() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible.Sorted()
}

// Pending reports whether a recomputation is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Close stops a pending recomputation and turns later events into no-ops.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}

// flush is the debounce callback: it recomputes the window and emits deltas.
func (s *Scheduler) flush() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	s.pending = false
	s.timer = nil
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.visible) == 0 {
		s.mu.Unlock()
		s.log.Warning("prefetch: recompute scheduled with no visible indices")
		return
	}
	prev := s.window
	next := s.nextWindowLocked()
	s.window = next
	s.mu.Unlock()

	valid := s.validIndices()
	added := next.without(prev, valid)
	removed := prev.without(next, valid)

	if s.sink != nil {
		s.sink.BeginPrefetch(added)
		s.sink.CancelPrefetch(removed)
	}

	// Snapshot after emission: indices a sink reports during the calls
	// belong to this cycle's flushed set.
	s.mu.Lock()
	s.flushed = s.visible.clone()
	s.mu.Unlock()
}

// nextWindowLocked infers the scroll direction from the previous flush.
// Seeing index 0 always counts as scrolling forward.
func (s *Scheduler) nextWindowLocked() Range {
	lo, hi, _ := s.visible.bounds()
	forward := true
	if _, prevHi, ok := s.flushed.bounds(); ok {
		forward = hi > prevHi || s.visible.Contains(0)
	}
	if forward {
		return Range{Lo: hi + 1, Hi: hi + 1 + s.windowSize}
	}
	upper := lo - 1
	return Range{Lo: upper - s.windowSize, Hi: upper}
}

func (s *Scheduler) validIndices() Indices {
	if s.space == nil {
		return emptyIndices{}
	}
	v := s.space.ValidIndices()
	if v == nil {
		return emptyIndices{}
	}
	return v
}
