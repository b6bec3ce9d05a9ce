package model

import (
	"errors"
	"fmt"
)

// Kind classifies a taskd error without pinning callers to a concrete type,
// mirroring the taxonomy in original_source's tno-core/tno-exec error enums.
type Kind int

const (
	KindUnknown Kind = iota
	KindNoRunner
	KindDuplicateRunnerTag
	KindInvalidSpec
	KindInvalidRunnerConfig
	KindSpawn
	KindNonZeroExit
	KindSignalTermination
	KindIO
	KindSupervisor
	KindCanceled
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNoRunner:
		return "no_runner"
	case KindDuplicateRunnerTag:
		return "duplicate_runner_tag"
	case KindInvalidSpec:
		return "invalid_spec"
	case KindInvalidRunnerConfig:
		return "invalid_runner_config"
	case KindSpawn:
		return "spawn"
	case KindNonZeroExit:
		return "non_zero_exit"
	case KindSignalTermination:
		return "signal_termination"
	case KindIO:
		return "io"
	case KindSupervisor:
		return "supervisor"
	case KindCanceled:
		return "canceled"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the typed error returned at the synchronous submission boundary
// and used internally to classify per-attempt outcomes.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is allows errors.Is(err, &model.Error{Kind: model.KindTimeout}) style
// checks: any *Error target matches when its Kind equals e's; the target's
// Message and Wrapped fields are ignored.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func wrapErr(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Message: msg, Wrapped: err}
}

func NoRunner(msg string) error { return newErr(KindNoRunner, msg) }

func DuplicateRunnerTag(tag string) error {
	return newErr(KindDuplicateRunnerTag, fmt.Sprintf("tag %q already registered", tag))
}

func InvalidSpec(msg string) error { return newErr(KindInvalidSpec, msg) }

func InvalidRunnerConfig(msg string) error { return newErr(KindInvalidRunnerConfig, msg) }

func Spawn(err error) error { return wrapErr(KindSpawn, "failed to spawn child process", err) }

func NonZeroExit(code int) error {
	return newErr(KindNonZeroExit, fmt.Sprintf("non-zero code %d", code))
}

func SignalTermination() error {
	return newErr(KindSignalTermination, "terminated by signal")
}

func IO(err error) error { return wrapErr(KindIO, "io error", err) }

func Supervisor(msg string) error { return newErr(KindSupervisor, msg) }

func Canceled(reason string) error { return newErr(KindCanceled, reason) }

func Timeout() error { return newErr(KindTimeout, "timeout") }

// KindOf extracts the Kind carried by err, or KindUnknown if err is not (or
// does not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
