// Package metrics exposes job lifecycle measurements in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/textstream/textstream/pkg/server/jobs"
)

const namespace = "textstream"

// StatusFunc reports the current queue statistics.
type StatusFunc func() jobs.Status

// Collector implements jobs.Recorder on top of Prometheus metrics.
type Collector struct {
	jobsEnqueued   prometheus.Counter
	jobsRejected   prometheus.Counter
	jobsDispatched prometheus.Counter
	jobsFinished   *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	charsSent      prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewCollector creates the job metrics and registers them with reg. When
// status is non-nil the queue depth, active and running job counts are
// exported as gauges read at scrape time.
func NewCollector(reg *prometheus.Registry, status StatusFunc) *Collector {
	c := &Collector{
		jobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Total number of jobs accepted into the queue",
		}),
		jobsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_rejected_total",
			Help:      "Total number of jobs rejected because the queue was full",
		}),
		jobsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_dispatched_total",
			Help:      "Total number of jobs handed to a worker",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of jobs that stopped processing, by outcome",
		}, []string{"outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from dispatch to the terminal event, by outcome",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		charsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "characters_sent_total",
			Help:      "Total number of streamed characters",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.jobsEnqueued,
		c.jobsRejected,
		c.jobsDispatched,
		c.jobsFinished,
		c.jobDuration,
		c.charsSent,
	)

	if status != nil {
		reg.MustRegister(
			gauge("queue_depth", "Jobs waiting in the queue", func(s jobs.Status) int { return s.QueueDepth }, status),
			gauge("queue_capacity", "Maximum number of queued jobs", func(s jobs.Status) int { return s.QueueCapacity }, status),
			gauge("jobs_active", "Jobs registered for a tab", func(s jobs.Status) int { return s.ActiveJobs }, status),
			gauge("jobs_running", "Jobs currently being processed", func(s jobs.Status) int { return s.RunningJobs }, status),
		)
	}

	return c
}

func gauge(name, help string, pick func(jobs.Status) int, status StatusFunc) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(pick(status())) })
}

func (c *Collector) JobEnqueued()   { c.jobsEnqueued.Inc() }
func (c *Collector) JobRejected()   { c.jobsRejected.Inc() }
func (c *Collector) JobDispatched() { c.jobsDispatched.Inc() }
func (c *Collector) CharacterSent() { c.charsSent.Inc() }

func (c *Collector) JobFinished(outcome jobs.Outcome, elapsed time.Duration) {
	c.jobsFinished.WithLabelValues(string(outcome)).Inc()
	c.jobDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

var _ jobs.Recorder = (*Collector)(nil)
