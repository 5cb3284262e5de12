package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session identifies one browser tab on one push connection.
type Session struct {
	ConnectionID string
	TabID        string
}

// Validate reports ErrInvalidArgument when either half of the identity is blank.
func (s Session) Validate() error {
	if strings.TrimSpace(s.ConnectionID) == "" {
		return fmt.Errorf("%w: connection id is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(s.TabID) == "" {
		return fmt.Errorf("%w: tab id is required", ErrInvalidArgument)
	}
	return nil
}

func (s Session) String() string {
	return s.ConnectionID + "/" + s.TabID
}

// Job is a single text-processing request.
//
// The input is immutable once created. The cancellation signal is raised at
// most once and can be observed any number of times.
type Job struct {
	ID        string
	Input     string
	Session   Session
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewJob validates the request and returns a job with a fresh UUID.
func NewJob(input string, session Session) (*Job, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: input cannot be empty", ErrInvalidArgument)
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Job{
		ID:        uuid.NewString(),
		Input:     input,
		Session:   session,
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Cancel raises the cancellation signal. Repeated calls are no-ops.
func (j *Job) Cancel() {
	j.cancel()
}

// Cancelled reports whether Cancel has been called.
func (j *Job) Cancelled() bool {
	return j.ctx.Err() != nil
}

// Done is closed once the job is cancelled.
func (j *Job) Done() <-chan struct{} {
	return j.ctx.Done()
}

// Context returns a context that is cancelled together with the job.
func (j *Job) Context() context.Context {
	return j.ctx
}
