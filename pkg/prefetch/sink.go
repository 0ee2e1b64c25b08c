package prefetch

// IndexSpace reports which indices currently correspond to real items.
// It is queried once per recomputation and must not mutate list state.
type IndexSpace interface {
	ValidIndices() Indices
}

// IndexSpaceFunc adapts a function to IndexSpace.
type IndexSpaceFunc func() Indices

func (f IndexSpaceFunc) ValidIndices() Indices {
	return f()
}

// CountSpace is an IndexSpace of [0, n) for a list of fixed length n.
type CountSpace int

func (n CountSpace) ValidIndices() Indices {
	return Range{Lo: 0, Hi: int(n)}
}

// Sink receives prefetch deltas. Both slices are ascending and disjoint
// within one recomputation. Calls come from the scheduler's timer goroutine
// without the scheduler lock held, so a Sink may call back into the scheduler.
type Sink interface {
	BeginPrefetch(indices []int)
	CancelPrefetch(indices []int)
}

// SinkFuncs adapts a pair of functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	Begin  func(indices []int)
	Cancel func(indices []int)
}

func (f SinkFuncs) BeginPrefetch(indices []int) {
	if f.Begin != nil {
		f.Begin(indices)
	}
}

func (f SinkFuncs) CancelPrefetch(indices []int) {
	if f.Cancel != nil {
		f.Cancel(indices)
	}
}

var (
	_ Sink       = SinkFuncs{}
	_ IndexSpace = CountSpace(0)
	_ IndexSpace = IndexSpaceFunc(nil)
)
