package jobs

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Session Session
	Event   Event
}

// recordingNotifier keeps every event and signals terminal ones on done.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recorded
	done   chan Event
	fail   func(Event) error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan Event, 64)}
}

func (n *recordingNotifier) Notify(_ context.Context, session Session, ev Event) error {
	n.mu.Lock()
	n.events = append(n.events, recorded{Session: session, Event: ev})
	n.mu.Unlock()

	if ev.Name.Terminal() {
		n.done <- ev
	}
	if n.fail != nil {
		return n.fail(ev)
	}
	return nil
}

func (n *recordingNotifier) forJob(id string) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Event
	for _, r := range n.events {
		if r.Event.JobID == id {
			out = append(out, r.Event)
		}
	}
	return out
}

func (n *recordingNotifier) waitTerminal(t *testing.T, count int) []Event {
	t.Helper()
	var out []Event
	for len(out) < count {
		select {
		case ev := <-n.done:
			out = append(out, ev)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %d terminal events, got %d", count, len(out))
		}
	}
	return out
}

func (n *recordingNotifier) streamed(id string) string {
	var sb strings.Builder
	for _, ev := range n.forJob(id) {
		if ev.Name == EventReceiveCharacter {
			sb.WriteString(ev.Data.(string))
		}
	}
	return sb.String()
}

func countNamed(events []Event, name EventName) int {
	n := 0
	for _, ev := range events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

// noDelay returns immediately unless ctx is already done.
func noDelay(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func mustJob(t *testing.T, input, conn, tab string) *Job {
	t.Helper()
	job, err := NewJob(input, Session{ConnectionID: conn, TabID: tab})
	require.NoError(t, err)
	return job
}

func newTestManager(opts Options, notifier Notifier, options ...Option) (*MemoryManager, *Registry) {
	registry := NewRegistry(zerolog.Nop())
	options = append([]Option{WithLogger(zerolog.Nop()), WithDelayFunc(noDelay)}, options...)
	return NewMemoryManager(opts, registry, notifier, options...), registry
}

func stopManager(t *testing.T, m *MemoryManager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))
}
