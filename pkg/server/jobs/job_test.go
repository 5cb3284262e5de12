package jobs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	job, err := NewJob("Hello", Session{ConnectionID: "conn", TabID: "tab"})
	require.NoError(t, err)

	_, err = uuid.Parse(job.ID)
	require.NoError(t, err)
	require.Equal(t, "Hello", job.Input)
	require.False(t, job.Cancelled())
	require.False(t, job.CreatedAt.IsZero())
}

func TestNewJob_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		session Session
	}{
		{name: "empty input", input: "", session: Session{ConnectionID: "c", TabID: "t"}},
		{name: "whitespace input", input: "  \t\n", session: Session{ConnectionID: "c", TabID: "t"}},
		{name: "missing connection", input: "x", session: Session{TabID: "t"}},
		{name: "missing tab", input: "x", session: Session{ConnectionID: "c", TabID: " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJob(tt.input, tt.session)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestJob_CancelIsIdempotent(t *testing.T) {
	job := mustJob(t, "x", "c", "t")

	job.Cancel()
	job.Cancel()

	require.True(t, job.Cancelled())
	select {
	case <-job.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestNewJob_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		job := mustJob(t, "x", "c", "t")
		require.False(t, seen[job.ID])
		seen[job.ID] = true
	}
}
