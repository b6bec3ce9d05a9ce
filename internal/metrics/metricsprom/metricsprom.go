// Package metricsprom is a conforming metrics.Backend sink backed by
// Prometheus client metrics, the sink spec.md §1 names as an out-of-core
// collaborator ("only the MetricsBackend contract is specified"). The core
// never imports this package; cmd/taskd wires it in when metrics export is
// enabled.
package metricsprom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cordio/taskd/internal/metrics"
)

// Sink implements metrics.Backend with Prometheus counters/histograms.
type Sink struct {
	started   *prometheus.CounterVec
	completed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	errors    *prometheus.CounterVec
}

// New creates a Sink and registers its collectors with reg.
func New(reg prometheus.Registerer) *Sink {
	s := &Sink{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskd",
			Name:      "task_started_total",
			Help:      "Number of task attempts started, by runner type.",
		}, []string{"runner_type"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskd",
			Name:      "task_completed_total",
			Help:      "Number of task attempts completed, by runner type and outcome.",
		}, []string{"runner_type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskd",
			Name:      "task_duration_ms",
			Help:      "Task attempt duration in milliseconds, by runner type and outcome.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 16),
		}, []string{"runner_type", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskd",
			Name:      "runner_errors_total",
			Help:      "Number of runner errors, by runner type and error kind.",
		}, []string{"runner_type", "error_kind"}),
	}
	reg.MustRegister(s.started, s.completed, s.duration, s.errors)
	return s
}

func (s *Sink) RecordTaskStarted(runnerType string) {
	s.started.WithLabelValues(runnerType).Inc()
}

func (s *Sink) RecordTaskCompleted(runnerType string, outcome string, durationMS int64) {
	s.completed.WithLabelValues(runnerType, outcome).Inc()
	s.duration.WithLabelValues(runnerType, outcome).Observe(float64(durationMS))
}

func (s *Sink) RecordRunnerError(runnerType string, errorKind string) {
	s.errors.WithLabelValues(runnerType, errorKind).Inc()
}

var _ metrics.Backend = (*Sink)(nil)
