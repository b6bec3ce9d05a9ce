package subprocess

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/runner"
)

func buildUnit(t *testing.T, k model.SubprocessKind) *unit {
	t.Helper()
	r, err := New("subprocess", nil)
	require.NoError(t, err)
	spec := model.CreateSpec{Slot: "t", Kind: model.SubprocessTaskKind(k)}
	eu, err := r.Build(spec, runner.BuildContext{Env: model.NewEnv()})
	require.NoError(t, err)
	u, ok := eu.(*unit)
	require.True(t, ok)
	return u
}

func TestRunSucceedsOnZeroExit(t *testing.T) {
	u := buildUnit(t, model.SubprocessKind{Command: "/bin/true", FailOnNonZero: true})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := u.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, out.Result)
}

func TestRunClassifiesNonZeroExitAsFailureWhenConfigured(t *testing.T) {
	u := buildUnit(t, model.SubprocessKind{Command: "/bin/false", FailOnNonZero: true})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := u.Run(ctx)
	assert.Error(t, err)
	assert.Equal(t, model.OutcomeFailure, out.Result)
	assert.Equal(t, model.KindNonZeroExit, model.KindOf(err))
}

func TestRunTreatsNonZeroExitAsSuccessWhenNotConfigured(t *testing.T) {
	u := buildUnit(t, model.SubprocessKind{Command: "/bin/false", FailOnNonZero: false})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := u.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, out.Result)
}

func TestRunTimesOutUnderContextDeadline(t *testing.T) {
	u := buildUnit(t, model.SubprocessKind{Command: "/bin/sleep", Args: []string{"5"}})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	out, _ := u.Run(ctx)
	assert.Equal(t, model.OutcomeTimeout, out.Result)
}

func TestRunHonorsEnv(t *testing.T) {
	u := buildUnit(t, model.SubprocessKind{
		Command: "/bin/sh",
		Args:    []string{"-c", `test "$TASKD_TEST_VAR" = "hello"`},
		Env:     model.NewEnv(model.KV{Key: "TASKD_TEST_VAR", Value: "hello"}),
		FailOnNonZero: true,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := u.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, out.Result)
}
