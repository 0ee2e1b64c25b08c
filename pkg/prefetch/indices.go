package prefetch

import (
	"fmt"
	"sort"
)

// Indices is a read-only membership test over item indices.
type Indices interface {
	Contains(i int) bool
}

// Range is a half-open index range [Lo, Hi).
type Range struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	if r.Hi <= r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// Empty reports whether r holds no index.
func (r Range) Empty() bool {
	return r.Len() == 0
}

// Contains reports whether i lies in [Lo, Hi).
func (r Range) Contains(i int) bool {
	return i >= r.Lo && i < r.Hi
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Lo, r.Hi)
}

// without returns the indices of r that are not in other and are in valid,
// in ascending order.
func (r Range) without(other Range, valid Indices) []int {
	out := []int{}
	for i := r.Lo; i < r.Hi; i++ {
		if other.Contains(i) || !valid.Contains(i) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Set is an unordered set of indices.
type Set map[int]struct{}

// NewSet returns a set holding idx.
func NewSet(idx ...int) Set {
	s := make(Set, len(idx))
	for _, i := range idx {
		s[i] = struct{}{}
	}
	return s
}

func (s Set) Contains(i int) bool {
	_, ok := s[i]
	return ok
}

func (s Set) add(i int) {
	s[i] = struct{}{}
}

func (s Set) remove(i int) {
	delete(s, i)
}

func (s Set) clone() Set {
	c := make(Set, len(s))
	for i := range s {
		c[i] = struct{}{}
	}
	return c
}

// Sorted returns the members of s in ascending order.
func (s Set) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// bounds returns the smallest and largest member. ok is false for an empty set.
func (s Set) bounds() (lo, hi int, ok bool) {
	for i := range s {
		if !ok {
			lo, hi, ok = i, i, true
			continue
		}
		if i < lo {
			lo = i
		}
		if i > hi {
			hi = i
		}
	}
	return
}

// emptyIndices is the index space used when no IndexSpace is configured.
type emptyIndices struct{}

func (emptyIndices) Contains(int) bool { return false }

var (
	_ Indices = Range{}
	_ Indices = Set{}
)
