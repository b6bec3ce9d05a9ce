// Package grpcapi implements the proto-domain conversion layer spec.md
// §191 describes for the gRPC façade. No protoc toolchain is available in
// this environment to generate real service stubs, so this package
// exercises google.golang.org/protobuf the way a generated service's
// request/response marshaling would: converting CreateSpec/TaskInfo to and
// from structpb.Struct, enforcing the same validation the HTTP façade
// enforces, so a future generated server has nothing left to reimplement
// beyond the RPC plumbing itself.
package grpcapi

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cordio/taskd/internal/model"
)

// SpecToStruct renders spec as a structpb.Struct suitable for a proto
// google.protobuf.Struct field.
func SpecToStruct(spec model.CreateSpec) (*structpb.Struct, error) {
	if spec.Kind.Tag != model.KindSubprocess {
		return nil, model.InvalidSpec("grpcapi only converts Subprocess specs")
	}
	m := map[string]any{
		"slot":            spec.Slot,
		"command":         spec.Kind.Subprocess.Command,
		"args":            toAnySlice(spec.Kind.Subprocess.Args),
		"cwd":             spec.Kind.Subprocess.Cwd,
		"fail_on_non_zero": spec.Kind.Subprocess.FailOnNonZero,
		"timeout_ms":      float64(spec.TimeoutMS),
		"restart_kind":    spec.Restart.String(),
		"backoff_first_ms": float64(spec.Backoff.FirstMS),
		"backoff_max_ms":  float64(spec.Backoff.MaxMS),
		"backoff_factor":  spec.Backoff.Factor,
		"backoff_jitter":  spec.Backoff.Jitter.String(),
		"admission":       spec.Admission.String(),
	}
	if spec.Restart.IntervalMS != nil {
		m["restart_interval_ms"] = float64(*spec.Restart.IntervalMS)
	}
	return structpb.NewStruct(m)
}

// SpecFromStruct parses a structpb.Struct back into a CreateSpec, applying
// the same wire-boundary validation spec.md §8 requires of any submission
// entrypoint.
func SpecFromStruct(s *structpb.Struct) (model.CreateSpec, error) {
	fields := s.GetFields()

	restartKind, err := parseRestartKind(stringField(fields, "restart_kind"))
	if err != nil {
		return model.CreateSpec{}, err
	}
	jitter, err := parseJitter(stringField(fields, "backoff_jitter"))
	if err != nil {
		return model.CreateSpec{}, err
	}
	admission, err := parseAdmission(stringField(fields, "admission"))
	if err != nil {
		return model.CreateSpec{}, err
	}

	var intervalMS *uint64
	if v, ok := fields["restart_interval_ms"]; ok {
		iv := uint64(v.GetNumberValue())
		intervalMS = &iv
	}

	spec := model.CreateSpec{
		Slot: stringField(fields, "slot"),
		Kind: model.SubprocessTaskKind(model.SubprocessKind{
			Command:       stringField(fields, "command"),
			Args:          stringSliceField(fields, "args"),
			Cwd:           stringField(fields, "cwd"),
			FailOnNonZero: boolField(fields, "fail_on_non_zero"),
		}),
		TimeoutMS: uint64(numberField(fields, "timeout_ms")),
		Restart:   model.RestartStrategy{Kind: restartKind, IntervalMS: intervalMS},
		Backoff: model.BackoffStrategy{
			FirstMS: uint64(numberField(fields, "backoff_first_ms")),
			MaxMS:   uint64(numberField(fields, "backoff_max_ms")),
			Factor:  numberField(fields, "backoff_factor"),
			Jitter:  jitter,
		},
		Admission: admission,
	}
	return spec, spec.Validate()
}

// TaskInfoToStruct renders info as a structpb.Struct for the query RPCs.
func TaskInfoToStruct(info model.TaskInfo) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":         string(info.ID),
		"slot":       info.Slot,
		"status":     info.Status.String(),
		"attempt":    float64(info.Attempt),
		"created_at": info.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		"updated_at": info.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		"error":      info.Error,
	})
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func stringField(fields map[string]*structpb.Value, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func numberField(fields map[string]*structpb.Value, key string) float64 {
	v, ok := fields[key]
	if !ok {
		return 0
	}
	return v.GetNumberValue()
}

func boolField(fields map[string]*structpb.Value, key string) bool {
	v, ok := fields[key]
	if !ok {
		return false
	}
	return v.GetBoolValue()
}

func stringSliceField(fields map[string]*structpb.Value, key string) []string {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	lv := v.GetListValue()
	if lv == nil {
		return nil
	}
	out := make([]string, len(lv.GetValues()))
	for i, item := range lv.GetValues() {
		out[i] = item.GetStringValue()
	}
	return out
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
