package jobs

import "context"

// EventName is the wire name of a progress event.
type EventName string

const (
	EventJobStarted       EventName = "JobStarted"
	EventOutputLength     EventName = "ProcessingOutputLength"
	EventReceiveCharacter EventName = "ReceiveCharacter"
	EventCancelled        EventName = "ProcessingCancelled"
	EventComplete         EventName = "ProcessingComplete"
)

// Terminal reports whether no further events follow e for the same job.
func (e EventName) Terminal() bool {
	return e == EventCancelled || e == EventComplete
}

// Event is a single progress notification for one job.
//
// Data carries the job id for JobStarted, the result length (int) for
// ProcessingOutputLength and a one-rune string for ReceiveCharacter.
type Event struct {
	Name  EventName
	JobID string
	Data  any
}

// Notifier delivers events to the client behind a session.
// Delivery is best effort; callers log errors and carry on.
type Notifier interface {
	Notify(ctx context.Context, session Session, event Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, session Session, event Event) error

func (f NotifierFunc) Notify(ctx context.Context, session Session, event Event) error {
	return f(ctx, session, event)
}
