package cron

import (
	"context"
	"time"
)

// Job is a recurring task.
type Job struct {
	// Name identifies the job. Adding a job with an existing name replaces it.
	Name string
	// Expr is a standard cron expression.
	Expr string
	// RunAtStart fires the job once immediately after it is added.
	RunAtStart bool
	Run        func(ctx context.Context) error
}

// event is one pending run in the heap.
type event struct {
	job       Job
	triggerAt time.Time
}
