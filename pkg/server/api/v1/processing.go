package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/textstream/textstream/pkg/server/api"
	"github.com/textstream/textstream/pkg/server/jobs"
	"github.com/textstream/textstream/pkg/stringutil"
)

// MaxRequestBodySize bounds processing request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// requestLogger returns a logger tagged with the handler's operation and a
// function that logs the final status when deferred.
func requestLogger(r *http.Request, op string, statusCode *int) (zerolog.Logger, func()) {
	logger := log.With().
		Str("component", "api.processing").
		Str("op", op).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Logger()

	start := time.Now()
	return logger, func() {
		logger.Info().
			Int("status", *statusCode).
			Dur("duration_ms", time.Since(start)).
			Msg("request completed")
	}
}

// withHandlerTimeout applies the handler timeout unless the request context
// already carries a deadline.
func withHandlerTimeout(r *http.Request, config api.Config) (context.Context, context.CancelFunc) {
	ctx := r.Context()
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && config.HandlerTimeout > 0 {
		return context.WithTimeout(ctx, config.HandlerTimeout)
	}
	return ctx, func() {}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// StartProcessingHandler handles POST /api/v1/processing/start.
//
// Responses:
//   - 202 Accepted with {jobId, message}
//   - 400 Bad Request for malformed bodies or blank fields
//   - 503 Service Unavailable when the queue is full
//   - 500 Internal Server Error otherwise
func StartProcessingHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var statusCode int
		logger, done := requestLogger(r, "start", &statusCode)
		defer done()

		ctx, cancel := withHandlerTimeout(r, deps.Config)
		defer cancel()

		var req StartProcessingRequest
		if err := decodeBody(w, r, &req); err != nil {
			statusCode = http.StatusBadRequest
			logger.Warn().Err(err).Str("error_code", "INVALID_REQUEST_BODY").Msg("failed to decode request")
			api.WriteJSONError(w, statusCode, "Bad Request", "INVALID_REQUEST_BODY", "invalid request body: "+err.Error())
			return
		}

		if err := ParseRequest(req); err != nil {
			statusCode = http.StatusBadRequest
			logger.Warn().Err(err).Str("error_code", api.CodeInvalidRequest).Msg("validation failed")
			api.WriteJSONError(w, statusCode, "Bad Request", api.CodeInvalidRequest, err.Error())
			return
		}

		session := jobs.Session{ConnectionID: req.ConnectionID, TabID: req.TabID}
		logger.Debug().
			Str("connection_id", session.ConnectionID).
			Str("tab_id", session.TabID).
			Str("input", stringutil.Ellipsis(req.Input, 32)).
			Msg("start requested")

		jobID, err := deps.Processing.StartProcessing(ctx, req.Input, session)
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrInvalidArgument), errors.Is(err, jobs.ErrQueueFull):
				statusCode = api.StatusFor(err)
				api.WriteError(w, r, err)
			default:
				statusCode = http.StatusInternalServerError
				logger.Error().Err(err).Str("error_code", api.CodeInternal).Msg("Error starting job")
				api.WriteJSONError(w, statusCode, "Internal Server Error", api.CodeInternal,
					"An error occurred while starting the job.")
			}
			return
		}

		statusCode = http.StatusAccepted
		api.WriteJSON(w, statusCode, api.StartProcessingResponse{
			JobID:   jobID,
			Message: "Job started successfully.",
		})
	}
}

// CancelProcessingHandler handles POST /api/v1/processing/cancel.
// It answers 200 {cancelled:true} when a job was cancelled and 404 otherwise.
func CancelProcessingHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var statusCode int
		logger, done := requestLogger(r, "cancel", &statusCode)
		defer done()

		var req CancelProcessingRequest
		if err := decodeBody(w, r, &req); err != nil {
			statusCode = http.StatusBadRequest
			logger.Warn().Err(err).Str("error_code", "INVALID_REQUEST_BODY").Msg("failed to decode request")
			api.WriteJSONError(w, statusCode, "Bad Request", "INVALID_REQUEST_BODY", "invalid request body: "+err.Error())
			return
		}
		if err := ParseRequest(req); err != nil {
			statusCode = http.StatusBadRequest
			api.WriteJSONError(w, statusCode, "Bad Request", api.CodeInvalidRequest, err.Error())
			return
		}

		session := jobs.Session{ConnectionID: req.ConnectionID, TabID: req.TabID}
		if !deps.Processing.CancelProcessing(session) {
			statusCode = http.StatusNotFound
			api.WriteJSONError(w, statusCode, "Not Found", api.CodeNotFound, "no active job for "+session.String())
			return
		}

		statusCode = http.StatusOK
		api.WriteJSON(w, statusCode, api.CancelProcessingResponse{Cancelled: true})
	}
}

// StatusHandler handles GET /api/v1/processing/status.
func StatusHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := api.StatusResponse{Status: deps.Processing.Status()}
		if deps.Connections != nil {
			resp.Connections = deps.Connections.Count()
		}
		api.WriteJSON(w, http.StatusOK, resp)
	}
}
