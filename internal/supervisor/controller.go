// Package supervisor implements the per-slot controller of spec.md §4.4: a
// state machine (Idle/Running/CancellingForReplace/Queued) that admits
// submissions, runs attempts through a runner.Router, consults restart and
// backoff policy, and reports every transition on the event bus.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cordio/taskd/internal/backoff"
	"github.com/cordio/taskd/internal/events"
	"github.com/cordio/taskd/internal/metrics"
	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/runner"
)

// slotState is the four-way state from spec.md §4.4.
type slotState int

const (
	stateIdle slotState = iota
	stateRunning
	stateCancellingForReplace
	stateQueued
)

// Config parameterizes a Controller beyond what a single CreateSpec carries.
type Config struct {
	// Grace is how long Shutdown waits for running slots to stop
	// cooperatively before reporting GraceExceeded for the stragglers.
	Grace time.Duration
	// MaxAttempts bounds a restarting submission's attempt counter; 0 means
	// unbounded. This resolves spec.md §9's open question on
	// restart-exhaustion by making the bound an explicit, opt-in config
	// field rather than guessing a default.
	MaxAttempts uint64
	Metrics     metrics.Backend
	Log         *logrus.Entry
}

// Controller owns the slot table and runs one actor goroutine per slot.
type Controller struct {
	router  *runner.Router
	bus     *events.Bus
	metrics metrics.Backend
	log     *logrus.Entry
	grace   time.Duration
	maxAtt  uint64

	mu    sync.Mutex
	slots map[string]*slotActor
}

// New creates a Controller. router and bus must be ready to use; bus should
// already have the tracker and any other subscribers attached before the
// controller starts emitting.
func New(router *runner.Router, bus *events.Bus, cfg Config) *Controller {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop
	}
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	grace := cfg.Grace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &Controller{
		router:  router,
		bus:     bus,
		metrics: m,
		log:     log,
		grace:   grace,
		maxAtt:  cfg.MaxAttempts,
		slots:   make(map[string]*slotActor),
	}
}

// Submit validates spec and enqueues it against spec.Slot's actor. The
// error return only ever reflects a synchronous, wire-boundary rejection
// (InvalidSpec, NoRunner, ...); admission decisions (DropIfRunning,
// Replace, Queue) happen asynchronously and are observable only on the
// event bus, per spec.md §4.4.
func (c *Controller) Submit(spec model.CreateSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if spec.Kind.Tag == model.KindNone {
		return model.NoRunner("TaskKind::None requires submit_with_task()")
	}
	if _, err := c.router.Pick(spec); err != nil {
		return err
	}

	s := c.slotFor(spec.Slot)
	s.inbox <- slotMsg{kind: msgSubmit, spec: spec}
	return nil
}

// SubmitUnit bypasses the router entirely for a pre-built ExecutionUnit,
// the submit_with_task path spec.md §1 reserves for TaskKind::None.
func (c *Controller) SubmitUnit(slot string, unit runner.ExecutionUnit, restart model.RestartStrategy, backoffCfg model.BackoffStrategy, admission model.Admission, timeoutMS uint64) error {
	spec := model.CreateSpec{
		Slot:      slot,
		Kind:      model.NoneTaskKind(),
		TimeoutMS: timeoutMS,
		Restart:   restart,
		Backoff:   backoffCfg,
		Admission: admission,
	}
	s := c.slotFor(slot)
	s.inbox <- slotMsg{kind: msgSubmit, spec: spec, presetUnit: unit}
	return nil
}

// Cancel stops whatever is running or queued in slot, without restarting
// it. It returns a Supervisor error if the slot has never been submitted
// to, and is a no-op if the slot is already idle.
func (c *Controller) Cancel(slot string) error {
	c.mu.Lock()
	s, ok := c.slots[slot]
	c.mu.Unlock()
	if !ok {
		return model.Supervisor("unknown slot: " + slot)
	}
	s.inbox <- slotMsg{kind: msgCancel}
	return nil
}

func (c *Controller) slotFor(name string) *slotActor {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[name]
	if !ok {
		s = newSlotActor(name, c)
		c.slots[name] = s
		go s.run()
	}
	return s
}

// Shutdown broadcasts a cancel to every slot and waits up to the
// configured grace period for each to reach Idle. Slots still running when
// the grace period elapses emit GraceExceeded instead of
// AllStoppedWithinGrace, but Shutdown itself always returns once the grace
// period elapses (it does not block forever on a stuck attempt).
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	slots := make([]*slotActor, 0, len(c.slots))
	for _, s := range c.slots {
		slots = append(slots, s)
	}
	c.mu.Unlock()

	c.emit(model.Event{Kind: model.EventShutdownRequested, Time: now()})

	var wg sync.WaitGroup
	for _, s := range slots {
		wg.Add(1)
		go func(s *slotActor) {
			defer wg.Done()
			s.inbox <- slotMsg{kind: msgShutdown}
			select {
			case <-s.stopped:
				c.emit(model.Event{Kind: model.EventAllStoppedWithinGrace, Slot: s.name, Time: now()})
			case <-time.After(c.grace):
				c.emit(model.Event{Kind: model.EventGraceExceeded, Slot: s.name, Time: now()})
			case <-ctx.Done():
			}
		}(s)
	}
	wg.Wait()
}

func (c *Controller) emit(e model.Event) {
	c.bus.Publish(e)
}

// now is a thin indirection so tests could substitute a clock later without
// threading time.Now through every call site; left as time.Now for the
// production path spec.md's concrete scenarios describe.
func now() time.Time { return time.Now() }

// newLaw derives a fresh backoff.Law for a submission's first restart.
// Decorrelated jitter's running state lives inside the Law itself, so a new
// Law must be created per submission lifetime (not per attempt) and reused
// across that submission's restarts.
func newLaw(strategy model.BackoffStrategy) *backoff.Law {
	return backoff.NewLaw(strategy, time.Now().UnixNano())
}
