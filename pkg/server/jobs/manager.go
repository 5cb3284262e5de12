package jobs

import (
	"context"
	"time"
)

// Manager defines the interface for background job processing.
// The in-memory implementation is MemoryManager.
type Manager interface {
	// Start begins processing jobs in the background.
	Start(ctx context.Context) error

	// Stop stops accepting new dispatches and waits for in-flight jobs to
	// finish or for ctx to expire, whichever comes first.
	Stop(ctx context.Context) error

	// Submit adds a job to the queue.
	Submit(job *Job) error

	// Status returns current queue statistics.
	Status() Status
}

// Status holds job manager statistics
type Status struct {
	QueueDepth    int   `json:"queueDepth"`
	QueueCapacity int   `json:"queueCapacity"`
	ActiveJobs    int   `json:"activeJobs"`
	RunningJobs   int   `json:"runningJobs"`
	Processed     int64 `json:"processed"`
}

// Outcome is how a dispatched job ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Recorder receives job lifecycle measurements.
type Recorder interface {
	JobEnqueued()
	JobRejected()
	JobDispatched()
	JobFinished(outcome Outcome, elapsed time.Duration)
	CharacterSent()
}

type nopRecorder struct{}

func (nopRecorder) JobEnqueued()                        {}
func (nopRecorder) JobRejected()                        {}
func (nopRecorder) JobDispatched()                      {}
func (nopRecorder) JobFinished(Outcome, time.Duration) {}
func (nopRecorder) CharacterSent()                      {}
