package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordio/taskd/internal/events"
	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/runner"
)

// recorder collects every event published on the bus, in order, for
// assertion against spec.md §8's concrete scenarios.
type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Name() string       { return "recorder" }
func (r *recorder) QueueCapacity() int { return 256 }
func (r *recorder) OnEvent(e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) waitFor(t *testing.T, kind model.EventKind, timeout time.Duration) model.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		for _, e := range r.snapshot() {
			if e.Kind == kind {
				return e
			}
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %v", kind)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *recorder) countOf(kind model.EventKind) int {
	n := 0
	for _, e := range r.snapshot() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// scriptedUnit runs a fixed queue of outcomes, one per call; sleeping
// `hang` before reporting honors ctx cancellation/timeout so the
// Replace/Timeout scenarios can exercise real cancellation semantics.
type scriptedUnit struct {
	mu      sync.Mutex
	results []runner.Outcome
	calls   int
	hang    time.Duration
}

func (u *scriptedUnit) Name() string { return "scripted" }

func (u *scriptedUnit) Run(ctx context.Context) (runner.Outcome, error) {
	u.mu.Lock()
	i := u.calls
	u.calls++
	u.mu.Unlock()

	var out runner.Outcome
	if i < len(u.results) {
		out = u.results[i]
	} else {
		out = runner.Outcome{Result: model.OutcomeSuccess}
	}

	if u.hang > 0 {
		select {
		case <-time.After(u.hang):
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return runner.Outcome{Result: model.OutcomeTimeout}, ctx.Err()
			}
			return runner.Outcome{Result: model.OutcomeCanceled}, ctx.Err()
		}
	}
	return out, nil
}

type scriptedRunner struct {
	name string
	unit *scriptedUnit
}

func (r *scriptedRunner) Name() string { return r.name }
func (r *scriptedRunner) Supports(spec model.CreateSpec) bool {
	return spec.Kind.Tag == model.KindSubprocess
}
func (r *scriptedRunner) Build(spec model.CreateSpec, bc runner.BuildContext) (runner.ExecutionUnit, error) {
	return r.unit, nil
}

func newTestController(t *testing.T, u *scriptedUnit) (*Controller, *recorder) {
	t.Helper()
	router := runner.NewRouter(runner.BuildContext{Env: model.NewEnv()})
	router.Register(&scriptedRunner{name: "scripted", unit: u}, model.Labels{})

	bus := events.NewBus(nil)
	rec := &recorder{}
	bus.Subscribe(rec)

	c := New(router, bus, Config{Grace: time.Second})
	return c, rec
}

func specFor(slot string, admission model.Admission) model.CreateSpec {
	return model.CreateSpec{
		Slot:      slot,
		Kind:      model.SubprocessTaskKind(model.SubprocessKind{Command: "/bin/true"}),
		TimeoutMS: 2000,
		Restart:   model.RestartStrategy{Kind: model.RestartNever},
		Backoff:   model.BackoffStrategy{FirstMS: 100, MaxMS: 400, Factor: 2, Jitter: model.JitterNone},
		Admission: admission,
	}
}

func TestHappyPathRunsOnceAndStops(t *testing.T) {
	u := &scriptedUnit{results: []runner.Outcome{{Result: model.OutcomeSuccess}}}
	c, rec := newTestController(t, u)

	require.NoError(t, c.Submit(specFor("a", model.DropIfRunning)))

	rec.waitFor(t, model.EventTaskStopped, time.Second)
	rec.waitFor(t, model.EventTaskRemoved, time.Second)
	assert.Equal(t, 1, rec.countOf(model.EventTaskStarting))
}

func TestOnFailureRetriesWithExactBackoffDelays(t *testing.T) {
	u := &scriptedUnit{results: []runner.Outcome{
		{Result: model.OutcomeFailure},
		{Result: model.OutcomeFailure},
		{Result: model.OutcomeFailure},
		{Result: model.OutcomeSuccess},
	}}
	c, rec := newTestController(t, u)

	spec := specFor("b", model.DropIfRunning)
	spec.Restart = model.RestartStrategy{Kind: model.RestartOnFailure}
	require.NoError(t, c.Submit(spec))

	deadline := time.Now().Add(3 * time.Second)
	for rec.countOf(model.EventTaskStopped) < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 3, rec.countOf(model.EventTaskFailed))
	require.Equal(t, 1, rec.countOf(model.EventTaskStopped))

	var delays []uint64
	for _, e := range rec.snapshot() {
		if e.Kind == model.EventBackoffScheduled {
			delays = append(delays, e.DelayMS)
		}
	}
	require.Len(t, delays, 3)
	assert.Equal(t, []uint64{100, 200, 400}, delays)
}

func TestTimeoutClassifiesAsTimeoutOutcome(t *testing.T) {
	u := &scriptedUnit{hang: 500 * time.Millisecond}
	c, rec := newTestController(t, u)

	spec := specFor("c", model.DropIfRunning)
	spec.TimeoutMS = 50
	require.NoError(t, c.Submit(spec))

	rec.waitFor(t, model.EventTimeoutHit, 2*time.Second)
}

func TestReplaceAdmissionCancelsRunningAndStartsNewest(t *testing.T) {
	u := &scriptedUnit{hang: 500 * time.Millisecond}
	c, rec := newTestController(t, u)

	spec := specFor("d", model.DropIfRunning)
	spec.TimeoutMS = 5000
	require.NoError(t, c.Submit(spec))

	time.Sleep(20 * time.Millisecond)

	replacement := specFor("d", model.Replace)
	require.NoError(t, c.Submit(replacement))

	rec.waitFor(t, model.EventControllerSlotTransition, time.Second)
	assert.GreaterOrEqual(t, rec.countOf(model.EventTaskStarting), 2)
}

func TestDropIfRunningRejectsSecondSubmission(t *testing.T) {
	u := &scriptedUnit{hang: 300 * time.Millisecond}
	c, rec := newTestController(t, u)

	spec := specFor("e", model.DropIfRunning)
	spec.TimeoutMS = 5000
	require.NoError(t, c.Submit(spec))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Submit(specFor("e", model.DropIfRunning)))

	rec.waitFor(t, model.EventControllerRejected, time.Second)
}

func TestCancelStopsRunningSlotWithoutRestart(t *testing.T) {
	u := &scriptedUnit{hang: 5 * time.Second}
	c, rec := newTestController(t, u)

	spec := specFor("g", model.DropIfRunning)
	spec.TimeoutMS = 60000
	spec.Restart = model.RestartStrategy{Kind: model.RestartAlways}
	require.NoError(t, c.Submit(spec))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, c.Cancel("g"))

	rec.waitFor(t, model.EventTaskRemoved, time.Second)
	assert.Equal(t, 1, rec.countOf(model.EventTaskStarting))
}

func TestCancelOnUnknownSlotReturnsError(t *testing.T) {
	c, _ := newTestController(t, &scriptedUnit{})
	assert.Error(t, c.Cancel("never-submitted"))
}

func TestShutdownStopsRunningSlotWithinGrace(t *testing.T) {
	u := &scriptedUnit{hang: 5 * time.Second}
	c, rec := newTestController(t, u)

	spec := specFor("f", model.DropIfRunning)
	spec.TimeoutMS = 60000
	require.NoError(t, c.Submit(spec))
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Shutdown(ctx)

	rec.waitFor(t, model.EventAllStoppedWithinGrace, time.Second)
}
