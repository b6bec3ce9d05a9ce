// Package containerstub implements the Container runner abstraction named
// in spec.md §1: the runner plugs into the same Router/ExecutionUnit
// contract as internal/subprocess, but actually launching an OCI container
// is out of core scope. Build still does real work — it renders and
// validates an OCI runtime-spec config.json-shaped Spec from the
// CreateSpec's ContainerKind — so the runner surface is exercised even
// though Run fails with a Supervisor-kind "not implemented" error rather
// than spawning a container.
package containerstub

import (
	"context"
	"encoding/json"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/runner"
)

// Runner supports model.KindContainer and builds an ExecutionUnit that
// renders an OCI bundle spec but refuses to run it.
type Runner struct{}

// New creates a Runner.
func New() *Runner { return &Runner{} }

func (r *Runner) Name() string { return "container-stub" }

func (r *Runner) Supports(spec model.CreateSpec) bool {
	return spec.Kind.Tag == model.KindContainer
}

func (r *Runner) Build(spec model.CreateSpec, bc runner.BuildContext) (runner.ExecutionUnit, error) {
	if spec.Kind.Tag != model.KindContainer {
		return nil, model.InvalidSpec("containerstub: unsupported kind " + spec.Kind.Tag.String())
	}
	k := spec.Kind.Container
	if k.Image == "" {
		return nil, model.InvalidSpec("container image must be non-empty")
	}

	args := append([]string{}, k.Args...)
	if k.Command != "" {
		args = append([]string{k.Command}, args...)
	}
	env := envPairs(model.MergeEnv(bc.Env, k.Env))

	ociSpec := &specs.Spec{
		Version: specs.Version,
		Process: &specs.Process{
			Args: args,
			Env:  env,
			Cwd:  "/",
		},
		Root: &specs.Root{
			Path:     k.Image,
			Readonly: true,
		},
	}
	rendered, err := json.Marshal(ociSpec)
	if err != nil {
		return nil, model.InvalidSpec("containerstub: rendering OCI spec: " + err.Error())
	}

	return &unit{name: "container:" + k.Image, bundle: rendered}, nil
}

func envPairs(env model.Env) []string {
	pairs := env.Pairs()
	out := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		out = append(out, kv.Key+"="+kv.Value)
	}
	return out
}

// unit is a built-but-unrunnable OCI bundle. Bundle exposes the rendered
// config.json bytes so callers (such as tests) can inspect what would have
// been launched.
type unit struct {
	name   string
	bundle []byte
}

func (u *unit) Name() string { return u.name }

// Bundle returns the rendered OCI runtime-spec JSON for this unit.
func (u *unit) Bundle() []byte { return u.bundle }

func (u *unit) Run(ctx context.Context) (runner.Outcome, error) {
	err := model.Supervisor("container runner is not implemented in this build")
	return runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, err
}
