package v1

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/textstream/textstream/pkg/server/api"
)

// Health states reported by /health.
const (
	HealthHealthy   = "Healthy"
	HealthDegraded  = "Degraded"
	HealthUnhealthy = "Unhealthy"
)

// ReadyzHandler returns 200 when server is ready, 503 otherwise.
//
// The ready flag is set by the app runtime once the HTTP listener and the
// processing loop are running, and cleared again when shutdown begins.
func ReadyzHandler(ready *atomic.Bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && ready.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("Ready"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Not Ready"))
		}
	}
}

// HealthHandler reports health from the queue depth: an empty queue is
// Healthy, a depth below Config.UnhealthyQueueDepth is Degraded and
// anything else is Unhealthy (503).
func HealthHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		depth := deps.Processing.Status().QueueDepth
		threshold := deps.Config.UnhealthyQueueDepth
		if threshold <= 0 {
			threshold = api.DefaultConfig().UnhealthyQueueDepth
		}

		resp := api.HealthResponse{QueueDepth: depth}
		status := http.StatusOK
		switch {
		case depth == 0:
			resp.Status, resp.Message = HealthHealthy, "The job processing service is healthy. No pending jobs."
		case depth < threshold:
			resp.Status = HealthDegraded
			resp.Message = fmt.Sprintf("The job processing service is running, but there are %d pending jobs.", depth)
		default:
			resp.Status = HealthUnhealthy
			resp.Message = fmt.Sprintf("The job processing service is overloaded with %d pending jobs.", depth)
			status = http.StatusServiceUnavailable
		}
		api.WriteJSON(w, status, resp)
	}
}
