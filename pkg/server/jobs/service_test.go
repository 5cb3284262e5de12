package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/textstream/textstream/pkg/event"
)

type failingManager struct {
	err error
}

func (f failingManager) Start(context.Context) error { return nil }
func (f failingManager) Stop(context.Context) error  { return nil }
func (f failingManager) Submit(*Job) error           { return f.err }
func (f failingManager) Status() Status              { return Status{} }

func newTestService(t *testing.T, opts Options) (*Service, *MemoryManager, *Registry, *recordingNotifier) {
	t.Helper()
	notifier := newRecordingNotifier()
	mgr, registry := newTestManager(opts, notifier)
	return NewService(registry, mgr, notifier, zerolog.Nop()), mgr, registry, notifier
}

func TestService_StartProcessing(t *testing.T) {
	svc, mgr, registry, notifier := newTestService(t, DefaultOptions())
	session := Session{ConnectionID: "conn", TabID: "tab"}

	id, err := svc.StartProcessing(context.Background(), "Hello", session)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, ok := registry.TryGetJob(session)
	require.True(t, ok)
	require.Equal(t, id, job.ID)
	require.Equal(t, 1, mgr.Status().QueueDepth)

	events := notifier.forJob(id)
	require.Len(t, events, 1)
	require.Equal(t, EventJobStarted, events[0].Name)
	require.Equal(t, id, events[0].Data)
}

func TestService_StartProcessingValidation(t *testing.T) {
	svc, mgr, registry, _ := newTestService(t, DefaultOptions())

	_, err := svc.StartProcessing(context.Background(), "   ", Session{ConnectionID: "c", TabID: "t"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.StartProcessing(context.Background(), "Hello", Session{TabID: "t"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.Equal(t, 0, registry.Len())
	require.Equal(t, 0, mgr.Status().QueueDepth)
}

func TestService_StartProcessingQueueFull(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxQueueSize = 1
	svc, _, registry, notifier := newTestService(t, opts)

	_, err := svc.StartProcessing(context.Background(), "first", Session{ConnectionID: "c", TabID: "1"})
	require.NoError(t, err)

	second := Session{ConnectionID: "c", TabID: "2"}
	_, err = svc.StartProcessing(context.Background(), "second", second)
	require.ErrorIs(t, err, ErrQueueFull)

	_, ok := registry.TryGetJob(second)
	require.False(t, ok, "rejected job must not stay registered")

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.events, 1)
}

func TestService_StartProcessingSubmitFailure(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	svc := NewService(registry, failingManager{err: errors.New("disk on fire")}, nil, zerolog.Nop())

	_, err := svc.StartProcessing(context.Background(), "Hello", Session{ConnectionID: "c", TabID: "t"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrQueueFull)
	require.Equal(t, 0, registry.Len())
}

func TestService_CancelProcessing(t *testing.T) {
	svc, _, registry, _ := newTestService(t, DefaultOptions())
	session := Session{ConnectionID: "conn", TabID: "tab"}

	require.False(t, svc.CancelProcessing(session))

	_, err := svc.StartProcessing(context.Background(), "Hello", session)
	require.NoError(t, err)
	job, _ := registry.TryGetJob(session)

	require.True(t, svc.CancelProcessing(session))
	require.True(t, job.Cancelled())
	require.False(t, svc.CancelProcessing(session))
}

func TestService_EndToEnd(t *testing.T) {
	svc, mgr, _, notifier := newTestService(t, DefaultOptions())

	id, err := svc.StartProcessing(context.Background(), "Hello", Session{ConnectionID: "conn", TabID: "tab"})
	require.NoError(t, err)

	require.NoError(t, mgr.Start(context.Background()))
	defer stopManager(t, mgr)

	terminal := notifier.waitTerminal(t, 1)
	require.Equal(t, id, terminal[0].JobID)
	require.Equal(t, EventComplete, terminal[0].Name)

	events := notifier.forJob(id)
	require.Equal(t, EventJobStarted, events[0].Name)
	require.Equal(t, 1, countNamed(events, EventOutputLength))
}

func TestService_SubscribeCancelsOnDisconnect(t *testing.T) {
	svc, _, registry, _ := newTestService(t, DefaultOptions())
	bus := event.New()
	svc.Subscribe(bus)

	for _, s := range []Session{
		{ConnectionID: "gone", TabID: "1"},
		{ConnectionID: "gone", TabID: "2"},
		{ConnectionID: "alive", TabID: "1"},
	} {
		_, err := svc.StartProcessing(context.Background(), "Hello", s)
		require.NoError(t, err)
	}

	bus.Publish(context.Background(), EventConnectionClosed, "gone")
	bus.Wait()

	require.Equal(t, 1, registry.Len())
	_, ok := registry.TryGetJob(Session{ConnectionID: "alive", TabID: "1"})
	require.True(t, ok)

	// Unknown and malformed payloads are ignored.
	bus.Publish(context.Background(), EventConnectionClosed, "ghost")
	bus.Publish(context.Background(), EventConnectionClosed, nil)
	bus.Wait()
	require.Equal(t, 1, registry.Len())
}

func TestService_Status(t *testing.T) {
	svc, _, _, _ := newTestService(t, DefaultOptions())
	_, err := svc.StartProcessing(context.Background(), "Hello", Session{ConnectionID: "c", TabID: "t"})
	require.NoError(t, err)

	status := svc.Status()
	require.Equal(t, 1, status.QueueDepth)
	require.Equal(t, 1, status.ActiveJobs)
	require.Equal(t, DefaultMaxQueueSize, status.QueueCapacity)
}
