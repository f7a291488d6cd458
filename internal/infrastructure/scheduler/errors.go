package scheduler

import "errors"

var (
	// ErrSchedulerRunning is returned when registering tasks after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrInvalidTask is returned for tasks without a name, interval or function
	ErrInvalidTask = errors.New("invalid scheduled task")

	// ErrDuplicateTask is returned when two tasks share a name
	ErrDuplicateTask = errors.New("duplicate scheduled task")

	// ErrTaskNotFound is returned by RunNow for unknown tasks
	ErrTaskNotFound = errors.New("scheduled task not found")
)
