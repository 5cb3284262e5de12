package jobs

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry indexes active jobs by session so they can be cancelled out of band.
type Registry struct {
	mu     sync.Mutex
	jobs   map[Session]*Job
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		jobs:   make(map[Session]*Job),
		logger: logger.With().Str("component", "jobs.registry").Logger(),
	}
}

// StartJob records job as the active job for its session. An existing entry
// for the same session is replaced; the replaced job keeps running but can no
// longer be reached through the registry.
func (r *Registry) StartJob(job *Job) error {
	if job == nil {
		return ErrInvalidArgument
	}

	r.mu.Lock()
	prev, ok := r.jobs[job.Session]
	r.jobs[job.Session] = job
	r.mu.Unlock()

	if ok && prev != job {
		r.logger.Warn().
			Str("connection_id", job.Session.ConnectionID).
			Str("tab_id", job.Session.TabID).
			Str("job_id", job.ID).
			Str("superseded_job_id", prev.ID).
			Msg("Session already had an active job; replacing registry entry")
	}
	return nil
}

// TryGetJob returns the active job for session without changing it.
func (r *Registry) TryGetJob(session Session) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[session]
	return job, ok
}

// CancelJob removes the active job for session and raises its signal.
// It returns false when there is nothing to cancel.
func (r *Registry) CancelJob(session Session) bool {
	r.mu.Lock()
	job, ok := r.jobs[session]
	if ok {
		delete(r.jobs, session)
		job.Cancel()
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Info().
			Str("connection_id", session.ConnectionID).
			Str("tab_id", session.TabID).
			Msg("No active job to cancel")
		return false
	}

	r.logger.Info().
		Str("connection_id", session.ConnectionID).
		Str("tab_id", session.TabID).
		Str("job_id", job.ID).
		Msg("Job cancelled")
	return true
}

// CancelAllJobs cancels every job owned by connectionID and returns how many
// were cancelled. Jobs of other connections are untouched.
func (r *Registry) CancelAllJobs(connectionID string) int {
	r.mu.Lock()
	var cancelled []*Job
	for session, job := range r.jobs {
		if session.ConnectionID == connectionID {
			delete(r.jobs, session)
			job.Cancel()
			cancelled = append(cancelled, job)
		}
	}
	r.mu.Unlock()

	if len(cancelled) == 0 {
		r.logger.Debug().
			Str("connection_id", connectionID).
			Msg("No active jobs for connection")
		return 0
	}

	r.logger.Info().
		Str("connection_id", connectionID).
		Int("count", len(cancelled)).
		Msg("Cancelled all jobs for connection")
	return len(cancelled)
}

// Release drops the entry for job's session if it still refers to job.
// A newer job registered for the same session is left in place.
//
// CancelJob and CancelAllJobs raise the signal while holding the lock, so once
// Release returns, a cancel that reported success is visible on the job.
func (r *Registry) Release(job *Job) bool {
	if job == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.jobs[job.Session]; ok && current == job {
		delete(r.jobs, job.Session)
		return true
	}
	return false
}

// Len returns the number of active entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
