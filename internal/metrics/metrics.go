// Package metrics holds the Prometheus instrumentation for the distribution
// orchestrator: job lifecycle, poll loops, and A/B runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	global   *Metrics
	globalMu sync.RWMutex
)

// Metrics holds all Prometheus metrics for the admin gateway.
type Metrics struct {
	JobsStartedTotal      *prometheus.CounterVec
	JobCancelsTotal       prometheus.Counter
	JobRetriesTotal       prometheus.Counter
	JobPollsTotal         *prometheus.CounterVec
	PollLoopsStoppedTotal *prometheus.CounterVec
	ABTestsStartedTotal   prometheus.Counter
	RefreshesTotal        prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		JobsStartedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promoadmin_jobs_started_total",
				Help: "Bulk distribution jobs submitted to the backend",
			},
			[]string{"action"},
		),
		JobCancelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promoadmin_job_cancels_total",
			Help: "Cancellation requests accepted by the backend",
		}),
		JobRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promoadmin_job_retries_total",
			Help: "Retry requests that allocated a new job",
		}),
		JobPollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promoadmin_job_polls_total",
				Help: "Job status polls by result",
			},
			[]string{"result"},
		),
		PollLoopsStoppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promoadmin_poll_loops_stopped_total",
				Help: "Poll loops ended, by reason",
			},
			[]string{"reason"},
		),
		ABTestsStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promoadmin_abtests_started_total",
			Help: "A/B distribution pairs started",
		}),
		RefreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promoadmin_dependent_refreshes_total",
			Help: "Dependent view refreshes triggered by completed jobs",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.JobsStartedTotal,
		m.JobCancelsTotal,
		m.JobRetriesTotal,
		m.JobPollsTotal,
		m.PollLoopsStoppedTotal,
		m.ABTestsStartedTotal,
		m.RefreshesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves this instance's registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetGlobal installs the process-wide Metrics instance.
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = m
}

// Get returns the process-wide Metrics, lazily creating one so callers never
// see nil.
func Get() *Metrics {
	globalMu.RLock()
	m := global
	globalMu.RUnlock()
	if m != nil {
		return m
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New()
	}
	return global
}
