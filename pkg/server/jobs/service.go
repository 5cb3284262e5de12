package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/textstream/textstream/pkg/event"
	"github.com/textstream/textstream/pkg/stringutil"
)

// EventConnectionClosed is published on the event bus with the connection id
// as payload when a push connection goes away.
const EventConnectionClosed = "connection.closed"

// Service is the entry point used by the transport layer to start and cancel jobs.
type Service struct {
	registry *Registry
	jobs     Manager
	notifier Notifier
	logger   zerolog.Logger
}

// NewService wires the registry, the job manager and the notifier together.
func NewService(registry *Registry, jobs Manager, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		jobs:     jobs,
		notifier: notifier,
		logger:   logger.With().Str("component", "jobs.service").Logger(),
	}
}

// StartProcessing registers and enqueues a job for session and returns its id.
//
// Validation failures return ErrInvalidArgument and a full queue returns
// ErrQueueFull. On success JobStarted is sent to the session.
func (s *Service) StartProcessing(ctx context.Context, input string, session Session) (string, error) {
	job, err := NewJob(input, session)
	if err != nil {
		return "", err
	}

	if err := s.registry.StartJob(job); err != nil {
		return "", fmt.Errorf("register job: %w", err)
	}

	if err := s.jobs.Submit(job); err != nil {
		s.registry.Release(job)
		job.Cancel()
		s.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Str("connection_id", session.ConnectionID).
			Str("tab_id", session.TabID).
			Msg("Failed to queue job")
		if errors.Is(err, ErrQueueFull) {
			return "", err
		}
		return "", fmt.Errorf("submit job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("connection_id", session.ConnectionID).
		Str("tab_id", session.TabID).
		Str("input", stringutil.Ellipsis(input, 32)).
		Msg("Processing job started")

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, session, Event{Name: EventJobStarted, JobID: job.ID, Data: job.ID}); err != nil {
			s.logger.Warn().
				Err(err).
				Str("job_id", job.ID).
				Msg("Failed to deliver JobStarted")
		}
	}

	return job.ID, nil
}

// CancelProcessing cancels the active job for session. It reports whether a
// job was found. The job itself emits ProcessingCancelled.
func (s *Service) CancelProcessing(session Session) bool {
	return s.registry.CancelJob(session)
}

// HandleDisconnect cancels every job of a closed connection.
func (s *Service) HandleDisconnect(connectionID string) int {
	return s.registry.CancelAllJobs(connectionID)
}

// Subscribe cancels a connection's jobs whenever bus reports it closed.
func (s *Service) Subscribe(bus event.EventBus) {
	bus.Subscribe(EventConnectionClosed, func(_ context.Context, data any) {
		connectionID := cast.ToString(data)
		if connectionID == "" {
			return
		}
		s.HandleDisconnect(connectionID)
	})
}

// Status returns current queue statistics.
func (s *Service) Status() Status {
	return s.jobs.Status()
}
