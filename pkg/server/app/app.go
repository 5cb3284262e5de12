package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/textstream/textstream/pkg/config"
	"github.com/textstream/textstream/pkg/event"
	"github.com/textstream/textstream/pkg/server/api"
	"github.com/textstream/textstream/pkg/server/httpx"
	"github.com/textstream/textstream/pkg/server/hub"
	"github.com/textstream/textstream/pkg/server/jobs"
	"github.com/textstream/textstream/pkg/server/metrics"
)

// App orchestrates the server runtime components:
// - HTTP server (API, push hub, metrics)
// - Job manager and processing service
// - Lifecycle management
type App struct {
	HTTP    *http.Server
	Jobs    *jobs.MemoryManager
	Service *jobs.Service
	Hub     *hub.Hub
	Metrics *metrics.Collector
	Ready   *atomic.Bool
	Deps    *Deps

	mu       sync.Mutex
	config   config.Config
	listener net.Listener
	logger   zerolog.Logger
}

// New creates and configures a new server application.
func New(ctx context.Context, cfg config.Config, deps *Deps) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if deps == nil {
		deps = &Deps{}
	}
	if deps.Bus == nil {
		deps.Bus = event.New()
	}

	logger := deps.Logger.With().Str("component", "server").Logger()
	logger.Info().Msg("Initializing server application")

	registry := jobs.NewRegistry(deps.Logger)
	pushHub := hub.New(hub.Config{AllowedOrigins: cfg.Server.AllowedOrigins}, deps.Bus)

	// The manager does not exist yet when the collector is built, so status
	// is resolved lazily.
	var mgr *jobs.MemoryManager
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(promRegistry, func() jobs.Status {
		if mgr == nil {
			return jobs.Status{}
		}
		return mgr.Status()
	})

	mgr = jobs.NewMemoryManager(jobs.Options{
		MaxQueueSize: cfg.Jobs.MaxQueueSize,
		MinDelay:     cfg.Jobs.MinDelay(),
		MaxDelay:     cfg.Jobs.MaxDelay(),
		MaxParallel:  cfg.Jobs.MaxParallelOperations,
	}, registry, pushHub, jobs.WithRecorder(collector), jobs.WithLogger(deps.Logger))

	service := jobs.NewService(registry, mgr, pushHub, deps.Logger)
	service.Subscribe(deps.Bus)

	ready := &atomic.Bool{}
	apiDeps := &api.Deps{
		Processing:  service,
		Connections: pushHub,
		Ready:       ready,
		Config: api.Config{
			HandlerTimeout:      cfg.Server.HandlerTimeout,
			UnhealthyQueueDepth: cfg.Health.UnhealthyQueueDepth,
		},
	}

	router := httpx.NewRouter(cfg.Server, apiDeps, httpx.Routes{
		Hub:     pushHub,
		Metrics: collector.Handler(),
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Addr, fmt.Sprint(cfg.Server.Port)),
		Handler:      httpx.Chain(cfg.Server, router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	return &App{
		HTTP:    httpServer,
		Jobs:    mgr,
		Service: service,
		Hub:     pushHub,
		Metrics: collector,
		Ready:   ready,
		Deps:    deps,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Config returns the configuration the app currently runs with.
func (a *App) Config() config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

// Listen binds the HTTP listener. Run calls it when it has not been called.
func (a *App) Listen() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", a.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.HTTP.Addr, err)
	}
	a.listener = ln
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Run starts the server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	if err := a.Listen(); err != nil {
		return err
	}
	cfg := a.Config()

	a.logger.Info().
		Str("addr", a.Addr().String()).
		Int("max_parallel", cfg.Jobs.MaxParallelOperations).
		Int("max_queue_size", cfg.Jobs.MaxQueueSize).
		Msg("Starting textstream server")

	if err := a.Jobs.Start(ctx); err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := a.HTTP.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	a.Ready.Store(true)
	a.logger.Info().Msg("Server is ready and accepting connections")

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		_ = a.shutdown()
		return err
	}

	return a.shutdown()
}

// shutdown stops accepting requests, drains jobs and then closes push
// connections so in-flight jobs can still deliver their terminal event.
func (a *App) shutdown() error {
	a.logger.Info().Msg("Initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config().Server.ShutdownTimeout)
	defer cancel()

	a.Ready.Store(false)

	a.logger.Info().Msg("Shutting down HTTP server...")
	httpErr := a.HTTP.Shutdown(shutdownCtx)
	if httpErr != nil {
		a.logger.Error().Err(httpErr).Msg("HTTP server shutdown failed")
	} else {
		a.logger.Info().Msg("HTTP server stopped")
	}

	a.logger.Info().Msg("Stopping job manager...")
	if err := a.Jobs.Stop(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("Jobs did not drain before the shutdown deadline")
	} else {
		a.logger.Info().Msg("Job manager stopped")
	}

	a.Hub.Close()
	a.logger.Info().Msg("Push connections closed")

	if httpErr != nil {
		return fmt.Errorf("http shutdown: %w", httpErr)
	}
	a.logger.Info().Msg("Server shutdown complete")
	return nil
}

// ApplyJobsConfig applies a reloaded jobs section. The delay window changes
// immediately; queue size and parallelism need a restart.
func (a *App) ApplyJobsConfig(cfg config.JobsConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := a.Jobs.SetDelayWindow(cfg.MinDelay(), cfg.MaxDelay()); err != nil {
		return err
	}

	a.mu.Lock()
	current := a.config.Jobs
	a.config.Jobs.MinDelayMilliseconds = cfg.MinDelayMilliseconds
	a.config.Jobs.MaxDelayMilliseconds = cfg.MaxDelayMilliseconds
	a.mu.Unlock()

	if cfg.MaxQueueSize != current.MaxQueueSize || cfg.MaxParallelOperations != current.MaxParallelOperations {
		a.logger.Warn().
			Int("max_queue_size", cfg.MaxQueueSize).
			Int("max_parallel", cfg.MaxParallelOperations).
			Msg("Queue size and parallelism changes take effect after a restart")
	}
	return nil
}
