package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textstream/textstream/pkg/server/jobs"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"invalid argument", fmt.Errorf("%w: input is required", jobs.ErrInvalidArgument), http.StatusBadRequest, CodeInvalidRequest, "input is required"},
		{"not found", jobs.ErrNotFound, http.StatusNotFound, CodeNotFound, "not found"},
		{"queue full", jobs.ErrQueueFull, http.StatusServiceUnavailable, CodeQueueFull, "job queue is full"},
		{"timeout", fmt.Errorf("start: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, CodeTimeout, "request timed out"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/processing/start", nil)
			w := httptest.NewRecorder()

			WriteError(w, req, tt.err)

			require.Equal(t, tt.status, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			require.Equal(t, http.StatusText(tt.status), response.Error)
			require.Equal(t, tt.code, response.Code)
			require.Contains(t, response.Message, tt.message)
		})
	}
}

func TestWriteError_DoesNotLeakInternalErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/processing/status", nil)
	w := httptest.NewRecorder()

	WriteError(w, req, errors.New("password=hunter2"))

	require.NotContains(t, w.Body.String(), "hunter2")
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSONError(w, http.StatusBadRequest, "Bad Request", CodeInvalidRequest, "input is required")

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Equal(t, "Bad Request", response.Error)
	require.Equal(t, CodeInvalidRequest, response.Code)
	require.Equal(t, "input is required", response.Message)
}

func TestWriteJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusAccepted, StartProcessingResponse{JobID: "job-1", Message: "Processing started"})

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"jobId":"job-1","message":"Processing started"}`, w.Body.String())
}
