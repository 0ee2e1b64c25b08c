// Package prefetch implements a windowed prefetch scheduler for virtualized
// lists.
//
// A viewport layer reports items entering and leaving the screen through
// OnAppear and OnDisappear. Bursts of such events are coalesced by a debounce
// timer; when it fires, the scheduler infers the scroll direction, computes a
// window of indices just past the visible region, and tells a Sink which
// indices to start prefetching and which earlier prefetches to cancel.
//
// The scheduler performs no I/O. Index bounds come from an IndexSpace and every
// emitted index is clamped against it, so a shrinking list never produces
// commands for items that no longer exist.
package prefetch
