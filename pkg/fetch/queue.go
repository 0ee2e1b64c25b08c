package fetch

import "sync"

// Queue limits how many keyed jobs run at once. Keys beyond the limit wait
// in FIFO order and start as running ones complete.
type Queue struct {
	maxConcurrent int
	onStart       func(key int)

	mu      sync.Mutex
	active  map[int]struct{}
	waiting []int
	paused  bool
}

// NewQueue creates a queue running at most maxConcurrent keys. onStart is
// called with the queue lock held whenever a key becomes active, so it must
// not call back into the queue synchronously.
func NewQueue(maxConcurrent int, onStart func(key int)) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Queue{
		maxConcurrent: maxConcurrent,
		onStart:       onStart,
		active:        make(map[int]struct{}),
	}
}

// Add enqueues key. It returns false when key is already active or waiting.
func (q *Queue) Add(key int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.active[key]; ok {
		return false
	}
	for _, k := range q.waiting {
		if k == key {
			return false
		}
	}
	if !q.paused && len(q.active) < q.maxConcurrent {
		q.startLocked(key)
		return true
	}
	q.waiting = append(q.waiting, key)
	return true
}

// Remove drops a waiting key. It returns false if key was not waiting;
// active keys are left to finish through OnComplete.
func (q *Queue) Remove(key int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, k := range q.waiting {
		if k == key {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// OnComplete frees key's slot and starts the next waiting key.
func (q *Queue) OnComplete(key int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, key)
	q.fillLocked()
}

func (q *Queue) startLocked(key int) {
	q.active[key] = struct{}{}
	if q.onStart != nil {
		q.onStart(key)
	}
}

func (q *Queue) fillLocked() {
	for !q.paused && len(q.waiting) > 0 && len(q.active) < q.maxConcurrent {
		next := q.waiting[0]
		q.waiting = q.waiting[1:]
		q.startLocked(next)
	}
}

// Clear drops every waiting key and returns them.
func (q *Queue) Clear() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := q.waiting
	q.waiting = nil
	return dropped
}

// Pause stops waiting keys from starting. Active keys are unaffected.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paused = true
}

// Resume starts waiting keys up to capacity.
func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paused = false
	q.fillLocked()
}

func (q *Queue) IsPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

func (q *Queue) WaitingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func (q *Queue) MaxConcurrent() int {
	return q.maxConcurrent
}
