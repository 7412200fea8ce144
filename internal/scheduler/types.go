package scheduler

import (
	"context"
	"time"
)

// Job is a recurring unit of work. Exactly one of Interval or CronExpr must
// be set.
type Job struct {
	// Name identifies the job for Remove and in logs.
	Name string
	// Interval jobs fire on wall-clock multiples of Interval.
	Interval time.Duration
	// CronExpr is a five-field cron expression evaluated by gronx.
	CronExpr string
	// RunAtStart fires the job once immediately when added.
	RunAtStart bool
	Run        func(ctx context.Context, now time.Time) error
}

// pending is one queued run of a job.
type pending struct {
	job       Job
	triggerAt time.Time
}
