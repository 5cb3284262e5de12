package jobs

import "errors"

var (
	// ErrInvalidArgument is returned for empty input, a malformed session or a nil job.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrQueueFull is returned when the queue already holds its maximum number of jobs.
	ErrQueueFull = errors.New("job queue is full")
	// ErrNotFound reports a registry miss. Cancel paths return false instead of this error.
	ErrNotFound = errors.New("job not found")
	// ErrProcessingFault wraps a panic recovered while processing a single job.
	ErrProcessingFault = errors.New("job processing fault")
	// ErrAlreadyStarted is returned by Start on a manager that is already running.
	ErrAlreadyStarted = errors.New("job manager already started")
)
