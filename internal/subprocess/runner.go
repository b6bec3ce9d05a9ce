package subprocess

import (
	"time"

	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/runner"
)

// Runner is the Subprocess kind's runner: it supports specs whose Kind.Tag
// is KindSubprocess and builds one ExecutionUnit per attempt, each carrying
// a frozen copy of the runner's own base isolation config (a CreateSpec has
// no isolation settings of its own).
type Runner struct {
	name string
	base *model.IsolationConfig
}

// New creates a Subprocess runner. base may be nil for "no isolation
// configured"; it is frozen independently for every built unit.
func New(name string, base *model.IsolationConfig) (*Runner, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	return &Runner{name: name, base: base}, nil
}

func (r *Runner) Name() string { return r.name }

func (r *Runner) Supports(spec model.CreateSpec) bool {
	return spec.Kind.Tag == model.KindSubprocess
}

func (r *Runner) Build(spec model.CreateSpec, bc runner.BuildContext) (runner.ExecutionUnit, error) {
	if !r.Supports(spec) {
		return nil, model.InvalidSpec("subprocess runner cannot build a " + spec.Kind.Tag.String() + " spec")
	}
	k := spec.Kind.Subprocess

	env := model.MergeEnv(bc.Env, k.Env)

	cg := cgroupName(r.name, spec.Slot)

	u := &unit{
		name:      r.name + "/" + spec.Slot,
		command:   k.Command,
		args:      k.Args,
		env:       env,
		cwd:       k.Cwd,
		failOnNZ:  k.FailOnNonZero,
		isolation: freezeIsolation(r.base),
		cgroup:    cg,
		metrics:   bc.Metrics,
		runnerTag: r.name,
	}
	return u, nil
}

// cgroupName derives the per-attempt cgroup name
// "{runner}-{slot}-{hex-seq}-{hex-unix-seconds}", where hex-seq comes from a
// fresh run id drawn from the process-wide sequence counter. The slot is
// used as given; long slot names are not shortened.
func cgroupName(runnerName, slot string) string {
	return string(model.NewTaskID(runnerName, slot)) + "-" + hex(uint64(time.Now().Unix()))
}

func hex(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 0, 16)
	for v > 0 {
		buf = append([]byte{digits[v%16]}, buf...)
		v /= 16
	}
	return string(buf)
}
