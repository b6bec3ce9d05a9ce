package subprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/runner"
)

func TestNewRejectsInvalidBaseConfig(t *testing.T) {
	zero := uint64(0)
	_, err := New("subprocess", &model.IsolationConfig{Rlimits: &model.RlimitConfig{MaxOpenFiles: &zero}})
	assert.Error(t, err)
}

func TestSupportsOnlySubprocessKind(t *testing.T) {
	r, err := New("subprocess", nil)
	require.NoError(t, err)

	sp := model.CreateSpec{Kind: model.SubprocessTaskKind(model.SubprocessKind{Command: "/bin/true"})}
	assert.True(t, r.Supports(sp))

	wasm := model.CreateSpec{Kind: model.WasmTaskKind(model.WasmKind{Module: "x.wasm"})}
	assert.False(t, r.Supports(wasm))
}

func TestBuildRejectsUnsupportedKind(t *testing.T) {
	r, err := New("subprocess", nil)
	require.NoError(t, err)

	wasm := model.CreateSpec{Kind: model.WasmTaskKind(model.WasmKind{Module: "x.wasm"})}
	_, err = r.Build(wasm, runner.BuildContext{})
	assert.Error(t, err)
}

func TestBuildProducesNamedUnit(t *testing.T) {
	r, err := New("subprocess", nil)
	require.NoError(t, err)

	sp := model.CreateSpec{
		Slot: "build",
		Kind: model.SubprocessTaskKind(model.SubprocessKind{Command: "/bin/echo", Args: []string{"hi"}}),
	}
	u, err := r.Build(sp, runner.BuildContext{Env: model.NewEnv()})
	require.NoError(t, err)
	assert.Equal(t, "subprocess/build", u.Name())
}

func TestCgroupNameIncludesRunnerAndSlot(t *testing.T) {
	name := cgroupName("subprocess", "build")
	assert.Contains(t, name, "subprocess-build-")
}
