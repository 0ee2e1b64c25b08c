// Package catalog holds the ordered URL list whose indices the prefetch
// scheduler works with, and the sources it is loaded from.
package catalog

import (
	"sync"

	"github.com/warpdl/warpfetch/pkg/prefetch"
)

// List is an ordered, replaceable list of URLs. Index i of the viewport maps
// to URL(i). It is safe for concurrent use.
type List struct {
	mu   sync.RWMutex
	urls []string
}

// NewList returns a List holding a copy of urls.
func NewList(urls []string) *List {
	l := &List{}
	l.Replace(urls)
	return l
}

// Len returns the number of items.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.urls)
}

// URL returns the URL at index i.
func (l *List) URL(i int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.urls) {
		return "", false
	}
	return l.urls[i], true
}

// Replace swaps in a new list. Indices beyond the new length become invalid.
func (l *List) Replace(urls []string) {
	cp := make([]string, len(urls))
	copy(cp, urls)
	l.mu.Lock()
	l.urls = cp
	l.mu.Unlock()
}

// ValidIndices implements prefetch.IndexSpace.
func (l *List) ValidIndices() prefetch.Indices {
	return prefetch.Range{Lo: 0, Hi: l.Len()}
}

var _ prefetch.IndexSpace = (*List)(nil)
