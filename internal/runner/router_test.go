package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordio/taskd/internal/model"
)

type fakeRunner struct {
	name     string
	kind     model.KindTag
	built    int
}

func (f *fakeRunner) Name() string { return f.name }
func (f *fakeRunner) Supports(spec model.CreateSpec) bool { return spec.Kind.Tag == f.kind }
func (f *fakeRunner) Build(spec model.CreateSpec, bc BuildContext) (ExecutionUnit, error) {
	f.built++
	return fakeUnit{name: f.name}, nil
}

type fakeUnit struct{ name string }

func (f fakeUnit) Name() string { return f.name }
func (f fakeUnit) Run(ctx context.Context) (Outcome, error) {
	return Outcome{Result: model.OutcomeSuccess}, nil
}

func specOfKind(tag model.KindTag, labels model.Labels) model.CreateSpec {
	k := model.TaskKind{Tag: tag}
	if tag == model.KindSubprocess {
		k = model.SubprocessTaskKind(model.SubprocessKind{Command: "true"})
	}
	return model.CreateSpec{
		Slot:      "s",
		Kind:      k,
		TimeoutMS: 1000,
		Labels:    labels,
	}
}

func TestPickRejectsNoneKind(t *testing.T) {
	r := NewRouter(BuildContext{})
	_, err := r.Pick(specOfKind(model.KindNone, model.Labels{}))
	assert.ErrorIs(t, err, &model.Error{Kind: model.KindNoRunner})
}

func TestPickReturnsFirstSupportingRunner(t *testing.T) {
	r := NewRouter(BuildContext{})
	sub := &fakeRunner{name: "subprocess", kind: model.KindSubprocess}
	r.Register(sub, model.Labels{})

	rn, err := r.Pick(specOfKind(model.KindSubprocess, model.Labels{}))
	require.NoError(t, err)
	assert.Equal(t, "subprocess", rn.Name())
}

func TestPickNoRunnerForUnsupportedKind(t *testing.T) {
	r := NewRouter(BuildContext{})
	_, err := r.Pick(specOfKind(model.KindWasm, model.Labels{}))
	assert.ErrorIs(t, err, &model.Error{Kind: model.KindNoRunner})
}

func TestPickHonorsRunnerTag(t *testing.T) {
	r := NewRouter(BuildContext{})
	gpu := &fakeRunner{name: "gpu-runner", kind: model.KindSubprocess}
	cpu := &fakeRunner{name: "cpu-runner", kind: model.KindSubprocess}
	require.NoError(t, r.RegisterTagged(gpu, model.NewLabels(model.KV{model.RunnerTagLabel, "gpu"}), "gpu"))
	r.Register(cpu, model.Labels{})

	spec := specOfKind(model.KindSubprocess, model.NewLabels(model.KV{model.RunnerTagLabel, "gpu"}))
	rn, err := r.Pick(spec)
	require.NoError(t, err)
	assert.Equal(t, "gpu-runner", rn.Name())

	spec2 := specOfKind(model.KindSubprocess, model.Labels{})
	rn2, err := r.Pick(spec2)
	require.NoError(t, err)
	assert.Equal(t, "cpu-runner", rn2.Name())
}

func TestRegisterTaggedRejectsDuplicateTag(t *testing.T) {
	r := NewRouter(BuildContext{})
	a := &fakeRunner{name: "a", kind: model.KindSubprocess}
	b := &fakeRunner{name: "b", kind: model.KindSubprocess}
	require.NoError(t, r.RegisterTagged(a, model.Labels{}, "dup"))
	err := r.RegisterTagged(b, model.Labels{}, "dup")
	assert.ErrorIs(t, err, &model.Error{Kind: model.KindDuplicateRunnerTag})
}
