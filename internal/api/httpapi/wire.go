package httpapi

import (
	"fmt"

	"github.com/cordio/taskd/internal/model"
)

// wireKV is the JSON shape of one model.KV pair.
type wireKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// wireSpec is the JSON request body for POST /api/v1/tasks, mirroring
// spec.md §191's submit/query boundary.
type wireSpec struct {
	Slot          string   `json:"slot"`
	Command       string   `json:"command"`
	Args          []string `json:"args,omitempty"`
	Env           []wireKV `json:"env,omitempty"`
	Cwd           string   `json:"cwd,omitempty"`
	FailOnNonZero bool     `json:"fail_on_non_zero,omitempty"`

	TimeoutMS uint64 `json:"timeout_ms"`

	RestartKind       string  `json:"restart_kind"`
	RestartIntervalMS *uint64 `json:"restart_interval_ms,omitempty"`

	BackoffFirstMS uint64  `json:"backoff_first_ms,omitempty"`
	BackoffMaxMS   uint64  `json:"backoff_max_ms,omitempty"`
	BackoffFactor  float64 `json:"backoff_factor,omitempty"`
	BackoffJitter  string  `json:"backoff_jitter,omitempty"`

	Admission string   `json:"admission"`
	Labels    []wireKV `json:"labels,omitempty"`
	DryRun    bool     `json:"dry_run,omitempty"`
}

func toCreateSpec(w wireSpec) (model.CreateSpec, error) {
	restartKind, err := parseRestartKind(w.RestartKind)
	if err != nil {
		return model.CreateSpec{}, err
	}
	jitter, err := parseJitter(w.BackoffJitter)
	if err != nil {
		return model.CreateSpec{}, err
	}
	admission, err := parseAdmission(w.Admission)
	if err != nil {
		return model.CreateSpec{}, err
	}

	spec := model.CreateSpec{
		Slot: w.Slot,
		Kind: model.SubprocessTaskKind(model.SubprocessKind{
			Command:       w.Command,
			Args:          w.Args,
			Env:           toEnv(w.Env),
			Cwd:           w.Cwd,
			FailOnNonZero: w.FailOnNonZero,
		}),
		TimeoutMS: w.TimeoutMS,
		Restart:   model.RestartStrategy{Kind: restartKind, IntervalMS: w.RestartIntervalMS},
		Backoff: model.BackoffStrategy{
			FirstMS: w.BackoffFirstMS,
			MaxMS:   w.BackoffMaxMS,
			Factor:  w.BackoffFactor,
			Jitter:  jitter,
		},
		Admission: admission,
		Labels:    toLabels(w.Labels),
		DryRun:    w.DryRun,
	}
	return spec, spec.Validate()
}

func toEnv(kvs []wireKV) model.Env {
	pairs := make([]model.KV, len(kvs))
	for i, kv := range kvs {
		pairs[i] = model.KV{Key: kv.Key, Value: kv.Value}
	}
	return model.NewEnv(pairs...)
}

func toLabels(kvs []wireKV) model.Labels {
	pairs := make([]model.KV, len(kvs))
	for i, kv := range kvs {
		pairs[i] = model.KV{Key: kv.Key, Value: kv.Value}
	}
	return model.NewLabels(pairs...)
}

func parseRestartKind(s string) (model.RestartKind, error) {
	switch s {
	case "", "never":
		return model.RestartNever, nil
	case "on_failure":
		return model.RestartOnFailure, nil
	case "always":
		return model.RestartAlways, nil
	default:
		return 0, model.InvalidSpec(fmt.Sprintf("unknown restart kind %q", s))
	}
}

func parseJitter(s string) (model.Jitter, error) {
	switch s {
	case "", "none":
		return model.JitterNone, nil
	case "full":
		return model.JitterFull, nil
	case "equal":
		return model.JitterEqual, nil
	case "decorrelated":
		return model.JitterDecorrelated, nil
	default:
		return 0, model.InvalidSpec(fmt.Sprintf("unknown jitter %q", s))
	}
}

func parseAdmission(s string) (model.Admission, error) {
	switch s {
	case "", "drop_if_running":
		return model.DropIfRunning, nil
	case "replace":
		return model.Replace, nil
	case "queue":
		return model.Queue, nil
	default:
		return 0, model.InvalidSpec(fmt.Sprintf("unknown admission %q", s))
	}
}

// wireTaskInfo is the JSON response shape for task queries.
type wireTaskInfo struct {
	ID        string `json:"id"`
	Slot      string `json:"slot"`
	Status    string `json:"status"`
	Attempt   uint64 `json:"attempt"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Error     string `json:"error,omitempty"`
}

func fromTaskInfo(info model.TaskInfo) wireTaskInfo {
	return wireTaskInfo{
		ID:        string(info.ID),
		Slot:      info.Slot,
		Status:    info.Status.String(),
		Attempt:   info.Attempt,
		CreatedAt: info.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt: info.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		Error:     info.Error,
	}
}
