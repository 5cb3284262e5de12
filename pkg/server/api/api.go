package api

import (
	"context"
	"sync/atomic"

	"github.com/textstream/textstream/pkg/server/jobs"
)

// Deps holds dependencies for API handlers.
// This pattern enables dependency injection and easier testing.
type Deps struct {
	// Processing starts and cancels jobs
	Processing ProcessingService

	// Connections reports live push connections (optional)
	Connections ConnectionCounter

	// Ready flag for readiness check
	Ready *atomic.Bool

	// Config holds handler timeouts and health thresholds
	Config Config
}

// ProcessingService is the subset of jobs.Service needed by the API.
// Defined here to ease mocking.
type ProcessingService interface {
	StartProcessing(ctx context.Context, input string, session jobs.Session) (string, error)
	CancelProcessing(session jobs.Session) bool
	Status() jobs.Status
}

// ConnectionCounter reports the number of live push connections.
type ConnectionCounter interface {
	Count() int
}

// StatusResponse is returned by GET /api/v1/processing/status.
type StatusResponse struct {
	jobs.Status
	Connections int `json:"connections"`
}

// StartProcessingResponse is returned by POST /api/v1/processing/start.
type StartProcessingResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

// CancelProcessingResponse is returned by POST /api/v1/processing/cancel.
type CancelProcessingResponse struct {
	Cancelled bool `json:"cancelled"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	QueueDepth int    `json:"queueDepth"`
}
