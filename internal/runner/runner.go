// Package runner defines the runner abstraction (spec.md §4.1): a Runner
// maps a CreateSpec to a spawnable ExecutionUnit, and a Router selects the
// runner for a given spec.
package runner

import (
	"context"

	"github.com/cordio/taskd/internal/metrics"
	"github.com/cordio/taskd/internal/model"
)

// Outcome is the terminal result of running an ExecutionUnit once.
type Outcome struct {
	Result model.Outcome
	Reason string
}

// ExecutionUnit is an opaque, spawnable body with a stable identifier,
// produced by a Runner. The controller calls Run once per attempt.
type ExecutionUnit interface {
	// Name is a stable identifier for logging/metrics; it does not need to
	// be unique across attempts of the same slot.
	Name() string
	// Run executes one attempt. It must observe ctx cancellation promptly
	// and cooperatively release resources, and report an expired ctx
	// deadline as OutcomeTimeout and any other ctx cancellation as
	// OutcomeCanceled in Outcome.Result; the caller acts on Outcome.Result
	// as returned.
	Run(ctx context.Context) (Outcome, error)
}

// BuildContext is shared, read-mostly state handed to every Runner.Build
// call: the router's own base environment and the injected metrics
// backend.
type BuildContext struct {
	Env     model.Env
	Metrics metrics.Backend
}

// Runner declares a name, reports whether it supports a given spec, and
// builds an ExecutionUnit for specs it supports.
type Runner interface {
	Name() string
	Supports(spec model.CreateSpec) bool
	Build(spec model.CreateSpec, bc BuildContext) (ExecutionUnit, error)
}
