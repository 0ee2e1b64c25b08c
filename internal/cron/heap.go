package cron

import "container/heap"

// eventHeap is a min-heap of events by trigger time.
type eventHeap []event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].triggerAt.Before(h[j].triggerAt) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *eventHeap, e event) {
	heap.Push(h, e)
}

func heapPop(h *eventHeap) event {
	return heap.Pop(h).(event)
}

// heapRemoveByName removes every pending run of the named job.
func heapRemoveByName(h *eventHeap, name string) bool {
	removed := false
	for i := 0; i < h.Len(); {
		if (*h)[i].job.Name == name {
			heap.Remove(h, i)
			removed = true
			continue
		}
		i++
	}
	return removed
}
