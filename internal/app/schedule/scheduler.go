package schedule

import "context"

// Job is a recurring task. Its error is logged by the scheduler and does not
// stop later runs.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron-style schedules.
type Scheduler interface {
	Register(name, spec string, job Job) error
}
