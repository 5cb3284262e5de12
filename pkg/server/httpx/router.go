package httpx

import (
	"net/http"

	"github.com/textstream/textstream/pkg/config"
	"github.com/textstream/textstream/pkg/server/api"
	v1 "github.com/textstream/textstream/pkg/server/api/v1"
)

// Routes holds handlers mounted next to the API.
type Routes struct {
	// Hub serves the websocket push channel at /processingHub
	Hub http.Handler
	// Metrics serves Prometheus metrics at /metrics
	Metrics http.Handler
}

// NewRouter creates and configures the main HTTP router.
//
// Health endpoints are always mounted. The push hub and metrics endpoints
// are mounted when their handlers are set.
func NewRouter(cfg config.ServerConfig, deps *api.Deps, routes Routes) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", HealthzHandler)
	mux.HandleFunc("GET /readyz", v1.ReadyzHandler(deps.Ready))
	mux.HandleFunc("GET /health", v1.HealthHandler(deps))
	mux.HandleFunc("GET /_health", v1.HealthHandler(deps))

	limit := RateLimit(cfg.RateLimit)
	mux.Handle("POST /api/v1/processing/start", limit(v1.StartProcessingHandler(deps)))
	mux.HandleFunc("POST /api/v1/processing/cancel", v1.CancelProcessingHandler(deps))
	mux.HandleFunc("GET /api/v1/processing/status", v1.StatusHandler(deps))

	if routes.Hub != nil {
		mux.Handle("GET /processingHub", routes.Hub)
	}
	if routes.Metrics != nil {
		mux.Handle("GET /metrics", routes.Metrics)
	}

	return mux
}

// HealthzHandler responds with 200 OK if the server process is alive.
// It does not look at the queue; use /health or /readyz for that.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
