// pkg/server/jobs/memory.go
package jobs

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Options tunes queue capacity, parallelism and per-character pacing.
type Options struct {
	MaxQueueSize int
	MinDelay     time.Duration
	MaxDelay     time.Duration
	MaxParallel  int
}

// DefaultOptions returns the stock settings: 1000 queued jobs, five in
// parallel, one to five seconds between characters.
func DefaultOptions() Options {
	return Options{
		MaxQueueSize: DefaultMaxQueueSize,
		MinDelay:     1000 * time.Millisecond,
		MaxDelay:     5000 * time.Millisecond,
		MaxParallel:  5,
	}
}

// DelayFunc waits for d or until ctx is done, returning ctx.Err() in the latter case.
type DelayFunc func(ctx context.Context, d time.Duration) error

// Option customises a MemoryManager.
type Option func(*MemoryManager)

// WithDelayFunc replaces the inter-character wait. Tests use it to run without sleeping.
func WithDelayFunc(fn DelayFunc) Option {
	return func(m *MemoryManager) {
		if fn != nil {
			m.delay = fn
		}
	}
}

// WithRandom replaces the source used to pick a delay. fn(n) must return a value in [0, n).
func WithRandom(fn func(n int64) int64) Option {
	return func(m *MemoryManager) {
		if fn != nil {
			m.randN = fn
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *MemoryManager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithLogger sets the logger used by the manager.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *MemoryManager) {
		m.logger = logger.With().Str("component", "jobs").Logger()
	}
}

type delayWindow struct {
	min, max time.Duration
}

// MemoryManager is the in-memory implementation of Manager.
//
// A single loop goroutine drains the queue in FIFO order and dispatches each
// job on its own goroutine once a slot is free. At most MaxParallel jobs run
// at a time.
type MemoryManager struct {
	queue    *Queue
	registry *Registry
	notifier Notifier
	recorder Recorder
	logger   zerolog.Logger

	sem         *semaphore.Weighted
	maxParallel int
	delay       DelayFunc
	randN       func(n int64) int64
	window      atomic.Pointer[delayWindow]

	mu         sync.Mutex
	started    bool
	cancelLoop context.CancelFunc
	loopDone   chan struct{}
	baseCtx    context.Context
	killCtx    context.Context
	kill       context.CancelFunc

	wg        sync.WaitGroup
	running   atomic.Int64
	processed atomic.Int64
}

// NewMemoryManager creates a manager over registry that reports progress
// through notifier. Non-positive sizes fall back to DefaultOptions.
func NewMemoryManager(opts Options, registry *Registry, notifier Notifier, options ...Option) *MemoryManager {
	def := DefaultOptions()
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = def.MaxParallel
	}
	if opts.MaxQueueSize <= 0 {
		opts.MaxQueueSize = def.MaxQueueSize
	}
	if opts.MinDelay < 0 {
		opts.MinDelay = 0
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if registry == nil {
		registry = NewRegistry(zerolog.Nop())
	}

	m := &MemoryManager{
		queue:       NewQueue(opts.MaxQueueSize),
		registry:    registry,
		notifier:    notifier,
		recorder:    nopRecorder{},
		logger:      log.With().Str("component", "jobs").Logger(),
		sem:         semaphore.NewWeighted(int64(opts.MaxParallel)),
		maxParallel: opts.MaxParallel,
		delay:       sleepContext,
		randN:       rand.Int64N,
	}
	m.window.Store(&delayWindow{min: opts.MinDelay, max: opts.MaxDelay})

	for _, opt := range options {
		opt(m)
	}
	return m
}

// SetDelayWindow changes the inter-character delay range for characters
// emitted from now on. Running jobs pick up the new window immediately.
func (m *MemoryManager) SetDelayWindow(minDelay, maxDelay time.Duration) error {
	if minDelay < 0 || maxDelay < minDelay {
		return fmt.Errorf("%w: delay window [%s, %s]", ErrInvalidArgument, minDelay, maxDelay)
	}
	m.window.Store(&delayWindow{min: minDelay, max: maxDelay})
	m.logger.Info().
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Delay window updated")
	return nil
}

// DelayWindow returns the current inter-character delay range.
func (m *MemoryManager) DelayWindow() (time.Duration, time.Duration) {
	w := m.window.Load()
	return w.min, w.max
}

// Queue exposes the underlying queue for health reporting.
func (m *MemoryManager) Queue() *Queue {
	return m.queue
}

// Submit enqueues job for processing.
func (m *MemoryManager) Submit(job *Job) error {
	if err := m.queue.Enqueue(job); err != nil {
		m.recorder.JobRejected()
		return err
	}
	m.recorder.JobEnqueued()
	m.logger.Debug().
		Str("job_id", job.ID).
		Int("queue_depth", m.queue.Count()).
		Msg("Job queued")
	return nil
}

// Status returns current queue statistics.
func (m *MemoryManager) Status() Status {
	active := 0
	if m.registry != nil {
		active = m.registry.Len()
	}
	return Status{
		QueueDepth:    m.queue.Count(),
		QueueCapacity: m.queue.Capacity(),
		ActiveJobs:    active,
		RunningJobs:   int(m.running.Load()),
		Processed:     m.processed.Load(),
	}
}

// Start launches the processing loop. It returns immediately.
func (m *MemoryManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancelLoop = cancel
	m.loopDone = make(chan struct{})

	// Jobs outlive the start context so that shutdown can drain them.
	m.baseCtx = context.WithoutCancel(ctx)
	m.killCtx, m.kill = context.WithCancel(m.baseCtx)

	go m.loop(loopCtx, m.loopDone)

	m.started = true
	lo, hi := m.DelayWindow()
	m.logger.Info().
		Int("max_parallel", m.maxParallel).
		Int("max_queue_size", m.queue.Capacity()).
		Dur("min_delay", lo).
		Dur("max_delay", hi).
		Msg("Job manager started")

	return nil
}

// Stop stops the loop, cancels jobs still waiting in the queue and waits for
// in-flight jobs to finish. If ctx expires first, in-flight jobs are
// interrupted and report ProcessingCancelled.
func (m *MemoryManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil // Already stopped
	}
	m.started = false
	cancelLoop, loopDone, kill := m.cancelLoop, m.loopDone, m.kill
	m.mu.Unlock()

	cancelLoop()
	<-loopDone

	m.cancelQueued()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		kill()
		m.logger.Info().Msg("Job manager stopped gracefully")
		return nil
	case <-ctx.Done():
		m.logger.Warn().
			Int64("running", m.running.Load()).
			Msg("Job manager shutdown timed out; interrupting in-flight jobs")
		kill()
		<-done
		return ctx.Err()
	}
}

// loop waits for work, dequeues it and dispatches it under the parallelism cap.
func (m *MemoryManager) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	m.logger.Debug().Msg("Processing loop started")

	for {
		if err := m.queue.WaitForAvailability(ctx); err != nil {
			m.logger.Debug().Msg("Processing loop stopping")
			return
		}

		job, ok := m.queue.TryDequeue()
		if !ok {
			continue
		}

		if err := m.sem.Acquire(ctx, 1); err != nil {
			// Shutting down with a dequeued job in hand.
			m.finishCancelled(job, time.Now())
			m.logger.Debug().Msg("Processing loop stopping")
			return
		}

		m.wg.Add(1)
		m.running.Add(1)
		m.recorder.JobDispatched()
		go m.dispatch(job)
	}
}

// cancelQueued terminates jobs that never reached a worker.
func (m *MemoryManager) cancelQueued() {
	n := 0
	for {
		job, ok := m.queue.TryDequeue()
		if !ok {
			break
		}
		m.finishCancelled(job, time.Now())
		n++
	}
	if n > 0 {
		m.logger.Info().Int("count", n).Msg("Cancelled queued jobs on shutdown")
	}
}

func (m *MemoryManager) dispatch(job *Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrProcessingFault, r)
			m.logger.Error().
				Err(err).
				Str("job_id", job.ID).
				Str("connection_id", job.Session.ConnectionID).
				Str("tab_id", job.Session.TabID).
				Msg("Panic recovered while processing job")
			m.registry.Release(job)
			job.Cancel()
			m.processed.Add(1)
			m.recorder.JobFinished(OutcomeFailed, time.Since(start))
		}
		m.sem.Release(1)
		m.running.Add(-1)
		m.wg.Done()
	}()

	m.process(job, start)
}

// process streams the encoded result of job one rune at a time.
func (m *MemoryManager) process(job *Job, start time.Time) {
	logger := m.logger.With().
		Str("job_id", job.ID).
		Str("connection_id", job.Session.ConnectionID).
		Str("tab_id", job.Session.TabID).
		Logger()

	if job.Cancelled() {
		logger.Info().Msg("Job cancelled before processing")
		m.finishCancelled(job, start)
		return
	}

	jobCtx, cancel := context.WithCancel(job.Context())
	defer cancel()
	stop := context.AfterFunc(m.killCtx, cancel)
	defer stop()

	result := []rune(Encode(job.Input))
	logger.Info().Int("length", len(result)).Msg("Processing job")

	m.emit(job, Event{Name: EventOutputLength, JobID: job.ID, Data: len(result)})

	for _, r := range result {
		if jobCtx.Err() != nil {
			logger.Info().Msg("Job was cancelled")
			m.finishCancelled(job, start)
			return
		}

		if err := m.delay(jobCtx, m.nextDelay()); err != nil {
			logger.Info().Msg("Job was cancelled")
			m.finishCancelled(job, start)
			return
		}

		m.emit(job, Event{Name: EventReceiveCharacter, JobID: job.ID, Data: string(r)})
		m.recorder.CharacterSent()
	}

	// Release first: a CancelJob that already reported success has raised
	// the signal by now, and later ones no longer find the entry.
	m.registry.Release(job)
	if jobCtx.Err() != nil {
		logger.Info().Msg("Job was cancelled")
		m.finishCancelled(job, start)
		return
	}

	m.emit(job, Event{Name: EventComplete, JobID: job.ID})
	m.processed.Add(1)
	m.recorder.JobFinished(OutcomeCompleted, time.Since(start))
	logger.Info().Dur("elapsed", time.Since(start)).Msg("Job completed")
}

// finishCancelled emits the single ProcessingCancelled event for job.
func (m *MemoryManager) finishCancelled(job *Job, start time.Time) {
	m.registry.Release(job)
	job.Cancel()
	m.emit(job, Event{Name: EventCancelled, JobID: job.ID})
	m.processed.Add(1)
	m.recorder.JobFinished(OutcomeCancelled, time.Since(start))
}

func (m *MemoryManager) emit(job *Job, ev Event) {
	if m.notifier == nil {
		return
	}
	ctx := m.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := m.notifier.Notify(ctx, job.Session, ev); err != nil {
		m.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Str("connection_id", job.Session.ConnectionID).
			Str("tab_id", job.Session.TabID).
			Str("event", string(ev.Name)).
			Msg("Failed to deliver event")
	}
}

// nextDelay picks a delay uniformly from the current window, bounds included.
func (m *MemoryManager) nextDelay() time.Duration {
	w := m.window.Load()
	if w.max <= w.min {
		return w.min
	}
	return w.min + time.Duration(m.randN(int64(w.max-w.min)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
