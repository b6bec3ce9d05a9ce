package subprocess

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cordio/taskd/internal/metrics"
	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/runner"
)

// unit is the Subprocess backend's ExecutionUnit: one attempt, one child
// process, isolated per the frozen IsolationConfig it was built with.
type unit struct {
	name      string
	command   string
	args      []string
	env       model.Env
	cwd       string
	failOnNZ  bool
	isolation *model.IsolationConfig
	cgroup    string
	metrics   metrics.Backend
	runnerTag string

	log *logrus.Entry
}

func (u *unit) Name() string { return u.name }

// Run spawns the isolated child, waits for it concurrently with draining its
// stdout/stderr, and classifies the result. It never blocks past ctx's
// cancellation: a canceled attempt is killed and joined before Run returns.
func (u *unit) Run(ctx context.Context) (runner.Outcome, error) {
	log := u.log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("unit", u.name)

	selfArgv, err := reexecSelfArgv()
	if err != nil {
		return runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, model.Spawn(err)
	}

	payloadR, payloadW, err := os.Pipe()
	if err != nil {
		return runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, model.IO(err)
	}

	cmd := exec.CommandContext(ctx, selfArgv[0], selfArgv[1:]...)
	cmd.ExtraFiles = []*os.File{payloadR}
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		payloadR.Close()
		payloadW.Close()
		return runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, model.IO(err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		payloadR.Close()
		payloadW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, model.IO(err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		payloadR.Close()
		payloadW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, model.Spawn(err)
	}
	payloadR.Close()
	stdoutW.Close()
	stderrW.Close()

	var cg *cgroupHandle
	if u.isolation != nil {
		cg, err = createCgroup(u.cgroup, u.isolation.Cgroups)
		if err != nil {
			payloadW.Close()
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, err
		}
		if err := cg.addProc(cmd.Process.Pid); err != nil {
			payloadW.Close()
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			cg.cleanup()
			return runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, model.Supervisor("join cgroup: " + err.Error())
		}
	}
	defer cg.cleanup()

	payload := initPayload{
		Dir:  u.cwd,
		Argv: append([]string{u.command}, u.args...),
		Env:  envPairs(u.env),
	}
	if u.isolation != nil {
		payload.Isolation = u.isolation
	}
	encErr := json.NewEncoder(payloadW).Encode(payload)
	payloadW.Close()
	if encErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return runner.Outcome{Result: model.OutcomeFailure, Reason: encErr.Error()}, model.IO(encErr)
	}

	logMax := uint64(4096)
	stdoutInfo, stderrWarn := false, true
	if u.isolation != nil && u.isolation.Log != nil {
		logMax = u.isolation.Log.MaxLineLength
		stdoutInfo = u.isolation.Log.StdoutInfo
		stderrWarn = u.isolation.Log.StderrWarn
	}

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return drainLines(stdoutR, logMax, func(line string) { logStdout(log, stdoutInfo, line) })
	})
	g.Go(func() error {
		return drainLines(stderrR, logMax, func(line string) { logStderr(log, stderrWarn, line) })
	})

	waitErr := cmd.Wait()
	stdoutR.Close()
	stderrR.Close()
	_ = g.Wait()

	return u.classify(ctx, waitErr)
}

func (u *unit) classify(ctx context.Context, waitErr error) (runner.Outcome, error) {
	if ctx.Err() == context.DeadlineExceeded {
		return runner.Outcome{Result: model.OutcomeTimeout, Reason: "timeout"}, nil
	}
	if ctx.Err() == context.Canceled {
		return runner.Outcome{Result: model.OutcomeCanceled, Reason: "canceled"}, nil
	}
	if waitErr == nil {
		return runner.Outcome{Result: model.OutcomeSuccess}, nil
	}

	var exitErr *exec.ExitError
	if ok := asExitError(waitErr, &exitErr); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			reason := "signal: " + status.Signal().String()
			return runner.Outcome{Result: model.OutcomeFailure, Reason: reason}, model.SignalTermination()
		}
		code := exitErr.ExitCode()
		reason := "non-zero exit: " + itoa(code)
		if !u.failOnNZ {
			return runner.Outcome{Result: model.OutcomeSuccess, Reason: reason}, nil
		}
		return runner.Outcome{Result: model.OutcomeFailure, Reason: reason}, model.NonZeroExit(code)
	}
	return runner.Outcome{Result: model.OutcomeFailure, Reason: waitErr.Error()}, model.Spawn(waitErr)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var b []byte
	for v > 0 {
		b = append([]byte{byte('0' + v%10)}, b...)
		v /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func envPairs(env model.Env) []string {
	out := make([]string, 0, env.Len())
	for _, kv := range env.Pairs() {
		out = append(out, kv.Key+"="+kv.Value)
	}
	return out
}
