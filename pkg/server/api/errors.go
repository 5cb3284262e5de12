package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/textstream/textstream/pkg/server/jobs"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeQueueFull      = "QUEUE_FULL"
	CodeNotFound       = "NOT_FOUND"
	CodeRateLimited    = "RATE_LIMITED"
	CodeTimeout        = "TIMEOUT"
	CodeInternal       = "INTERNAL_ERROR"
	CodeUnavailable    = "UNAVAILABLE"
)

// ErrorResponse represents a standard JSON error response.
//
// Example:
//
//	{
//	  "error": "Service Unavailable",
//	  "message": "job queue is full",
//	  "code": "QUEUE_FULL"
//	}
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// WriteError writes a standard JSON error response to the client.
// The status code is derived from the error:
//   - jobs.ErrInvalidArgument → 400 Bad Request
//   - jobs.ErrNotFound → 404 Not Found
//   - jobs.ErrQueueFull → 503 Service Unavailable
//   - context.DeadlineExceeded → 504 Gateway Timeout
//   - anything else → 500 without leaking the error text
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode, code, message := classify(err)

	logEvent := log.Warn()
	if statusCode >= http.StatusInternalServerError && statusCode != http.StatusServiceUnavailable {
		logEvent = log.Error()
	}
	logEvent.
		Str("component", "api").
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", statusCode).
		Str("code", code).
		Err(err).
		Msg("Request failed")

	WriteJSONError(w, statusCode, http.StatusText(statusCode), code, message)
}

// StatusFor returns the HTTP status WriteError would use for err.
func StatusFor(err error) int {
	status, _, _ := classify(err)
	return status
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, jobs.ErrInvalidArgument):
		return http.StatusBadRequest, CodeInvalidRequest, err.Error()
	case errors.Is(err, jobs.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, err.Error()
	case errors.Is(err, jobs.ErrQueueFull):
		return http.StatusServiceUnavailable, CodeQueueFull, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	}
}

// WriteJSONError writes a custom JSON error response with a specific status code.
//
// Example:
//
//	WriteJSONError(w, http.StatusBadRequest, "Bad Request", CodeInvalidRequest, "input is required")
func WriteJSONError(w http.ResponseWriter, statusCode int, errorType, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   errorType,
		Message: message,
		Code:    code,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode error response")
	}
}

// WriteJSON writes a JSON response to the client.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode JSON response")
	}
}
