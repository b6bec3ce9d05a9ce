// Package metrics defines the MetricsBackend contract (spec.md §4.8). The
// core only depends on this interface and the no-op implementation; any
// conforming sink (e.g. internal/metrics/metricsprom) can be installed via
// BuildContext without the core importing it.
package metrics

// Backend records task lifecycle measurements.
type Backend interface {
	RecordTaskStarted(runnerType string)
	RecordTaskCompleted(runnerType string, outcome string, durationMS int64)
	RecordRunnerError(runnerType string, errorKind string)
}

// Outcome string constants used by RecordTaskCompleted.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
	OutcomeTimeout  = "timeout"
)

type noop struct{}

func (noop) RecordTaskStarted(string)                    {}
func (noop) RecordTaskCompleted(string, string, int64)   {}
func (noop) RecordRunnerError(string, string)            {}

// Noop is the default MetricsBackend: all operations are no-ops.
var Noop Backend = noop{}
