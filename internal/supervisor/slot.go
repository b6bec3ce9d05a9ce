package supervisor

import (
	"context"
	"time"

	"github.com/cordio/taskd/internal/backoff"
	"github.com/cordio/taskd/internal/metrics"
	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/runner"
)

type msgKind int

const (
	msgSubmit msgKind = iota
	msgShutdown
	msgCancel
)

type slotMsg struct {
	kind       msgKind
	spec       model.CreateSpec
	presetUnit runner.ExecutionUnit
}

type attemptResult struct {
	outcome runner.Outcome
	err     error
}

// slotActor is the goroutine-per-slot actor implementing spec.md §4.4's
// state machine. Its loop is the only place that mutates its own state, so
// no locking is needed within it; Controller talks to it only through
// inbox.
type slotActor struct {
	name string
	ctrl *Controller

	inbox   chan slotMsg
	stopped chan struct{}
}

func newSlotActor(name string, ctrl *Controller) *slotActor {
	return &slotActor{
		name:    name,
		ctrl:    ctrl,
		inbox:   make(chan slotMsg, 8),
		stopped: make(chan struct{}),
	}
}

func (s *slotActor) run() {
	defer close(s.stopped)

	state := stateIdle
	var queued *slotMsg
	var cancelAttempt context.CancelFunc
	var resultCh chan attemptResult
	var timerC <-chan time.Time
	var timer *time.Timer

	var curSpec model.CreateSpec
	var curUnit runner.ExecutionUnit
	var taskID model.TaskID
	var attempt uint64
	var cancelReason string
	var law *backoff.Law
	shuttingDown := false

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	startSubmission := func(m slotMsg) {
		curSpec = m.spec
		curUnit = m.presetUnit
		attempt = 1
		law = nil
		taskID = model.NewTaskID(runnerNameFor(s.ctrl, m.spec), m.spec.Slot)
		state = stateRunning
		cancelReason = ""

		s.ctrl.emit(model.Event{Kind: model.EventControllerSubmitted, Slot: s.name, TaskID: taskID, Time: now()})
		s.ctrl.emit(model.Event{Kind: model.EventTaskAdded, Slot: s.name, TaskID: taskID, Time: now()})

		ctx, cancel := context.WithCancel(context.Background())
		attemptCtx, _ := context.WithTimeout(ctx, time.Duration(curSpec.TimeoutMS)*time.Millisecond)
		cancelAttempt = cancel
		resultCh = make(chan attemptResult, 1)
		s.ctrl.emit(model.Event{Kind: model.EventTaskStarting, Slot: s.name, TaskID: taskID, Attempt: attempt, Time: now()})
		go s.runOneAttempt(curSpec, curUnit, taskID, attemptCtx, resultCh)
	}

	proceedAfterTermination := func() {
		cancelAttempt = nil
		resultCh = nil
		curUnit = nil
		law = nil
		if !shuttingDown && queued != nil {
			next := *queued
			queued = nil
			startSubmission(next)
			return
		}
		queued = nil
		state = stateIdle
	}

	for {
		select {
		case msg, ok := <-s.inbox:
			if !ok {
				return
			}
			switch msg.kind {
			case msgSubmit:
				switch state {
				case stateIdle:
					startSubmission(msg)
				case stateRunning:
					switch msg.spec.Admission {
					case model.DropIfRunning:
						s.ctrl.emit(model.Event{Kind: model.EventControllerRejected, Slot: s.name, TaskID: taskID, Time: now()})
					case model.Replace:
						q := msg
						queued = &q
						cancelReason = "replaced"
						state = stateCancellingForReplace
						s.ctrl.emit(model.Event{Kind: model.EventControllerSlotTransition, Slot: s.name, TaskID: taskID, Reason: "replace", Time: now()})
						if cancelAttempt != nil {
							cancelAttempt()
						}
					case model.Queue:
						q := msg
						queued = &q
						state = stateQueued
					}
				case stateCancellingForReplace, stateQueued:
					// a newer submission while one is already pending always
					// replaces the pending one (spec.md §9: "latest queued
					// replaces earlier queued").
					q := msg
					queued = &q
				}
			case msgShutdown:
				shuttingDown = true
				queued = nil
				if resultCh != nil {
					// an attempt is actually in flight (Running,
					// CancellingForReplace, or Queued all keep one running
					// underneath); cancel it and let the resultCh branch
					// below drive the actor to Idle once it reports in.
					cancelReason = "shutdown"
					if cancelAttempt != nil {
						cancelAttempt()
					}
					continue
				}
				// nothing running: either already Idle, or sitting on an
				// armed backoff timer between attempts. Either way there is
				// nothing left to wait for.
				stopTimer()
				return
			case msgCancel:
				queued = nil
				if resultCh != nil {
					cancelReason = "canceled"
					if cancelAttempt != nil {
						cancelAttempt()
					}
					continue
				}
				if timerC != nil {
					stopTimer()
					s.ctrl.emit(model.Event{Kind: model.EventTaskStopped, Slot: s.name, TaskID: taskID, Reason: "canceled", Time: now()})
					s.ctrl.emit(model.Event{Kind: model.EventTaskRemoved, Slot: s.name, TaskID: taskID, Time: now()})
					state = stateIdle
				}
			}

		case t, ok := <-timerC:
			if !ok {
				continue
			}
			_ = t
			timerC = nil
			timer = nil
			if shuttingDown {
				state = stateIdle
				return
			}
			attempt++
			ctx, cancel := context.WithCancel(context.Background())
			attemptCtx, _ := context.WithTimeout(ctx, time.Duration(curSpec.TimeoutMS)*time.Millisecond)
			cancelAttempt = cancel
			resultCh = make(chan attemptResult, 1)
			state = stateRunning
			s.ctrl.emit(model.Event{Kind: model.EventTaskStarting, Slot: s.name, TaskID: taskID, Attempt: attempt, Time: now()})
			go s.runOneAttempt(curSpec, curUnit, taskID, attemptCtx, resultCh)

		case res, ok := <-resultCh:
			if !ok {
				continue
			}
			resultCh = nil
			if cancelAttempt != nil {
				cancelAttempt() // release the attempt's timeout timer now that it has finished
				cancelAttempt = nil
			}
			s.onAttemptDone(res, &state, &attempt, &curSpec, &taskID, &law, &timer, &timerC, cancelReason, proceedAfterTermination, shuttingDown)
			if shuttingDown && state == stateIdle && queued == nil {
				return
			}
		}
	}
}

func runnerNameFor(c *Controller, spec model.CreateSpec) string {
	rn, err := c.router.Pick(spec)
	if err != nil {
		return "unknown"
	}
	return rn.Name()
}

func (s *slotActor) onAttemptDone(
	res attemptResult,
	state *slotState,
	attempt *uint64,
	curSpec *model.CreateSpec,
	taskID *model.TaskID,
	law **backoff.Law,
	timer **time.Timer,
	timerC *<-chan time.Time,
	cancelReason string,
	proceedAfterTermination func(),
	shuttingDown bool,
) {
	switch res.outcome.Result {
	case model.OutcomeCanceled:
		reason := cancelReason
		if reason == "" {
			reason = "canceled"
		}
		s.ctrl.emit(model.Event{Kind: model.EventTaskStopped, Slot: s.name, TaskID: *taskID, Reason: reason, Time: now()})
		s.ctrl.emit(model.Event{Kind: model.EventTaskRemoved, Slot: s.name, TaskID: *taskID, Time: now()})
		proceedAfterTermination()
		return
	case model.OutcomeSuccess:
		s.ctrl.emit(model.Event{Kind: model.EventTaskStopped, Slot: s.name, TaskID: *taskID, Reason: res.outcome.Reason, Time: now()})
		s.ctrl.metrics.RecordTaskCompleted(runnerTagOf(*curSpec), metrics.OutcomeSuccess, 0)
	case model.OutcomeTimeout:
		s.ctrl.emit(model.Event{Kind: model.EventTimeoutHit, Slot: s.name, TaskID: *taskID, TimeoutMS: curSpec.TimeoutMS, Time: now()})
		s.ctrl.metrics.RecordTaskCompleted(runnerTagOf(*curSpec), metrics.OutcomeTimeout, 0)
	case model.OutcomeFailure:
		s.ctrl.emit(model.Event{Kind: model.EventTaskFailed, Slot: s.name, TaskID: *taskID, Reason: res.outcome.Reason, Time: now()})
		s.ctrl.metrics.RecordTaskCompleted(runnerTagOf(*curSpec), metrics.OutcomeFailure, 0)
	}

	if shuttingDown {
		s.ctrl.emit(model.Event{Kind: model.EventTaskRemoved, Slot: s.name, TaskID: *taskID, Time: now()})
		proceedAfterTermination()
		return
	}

	if !curSpec.Restart.ShouldRestart(res.outcome.Result) {
		s.ctrl.emit(model.Event{Kind: model.EventTaskRemoved, Slot: s.name, TaskID: *taskID, Time: now()})
		proceedAfterTermination()
		return
	}

	if s.ctrl.maxAtt > 0 && *attempt >= s.ctrl.maxAtt {
		s.ctrl.emit(model.Event{Kind: model.EventActorExhausted, Slot: s.name, TaskID: *taskID, Reason: "max attempts reached", Time: now()})
		s.ctrl.emit(model.Event{Kind: model.EventTaskRemoved, Slot: s.name, TaskID: *taskID, Time: now()})
		proceedAfterTermination()
		return
	}

	var delay time.Duration
	if curSpec.Restart.Kind == model.RestartAlways && curSpec.Restart.IntervalMS != nil {
		delay = time.Duration(*curSpec.Restart.IntervalMS) * time.Millisecond
	} else {
		if *law == nil {
			*law = newLaw(curSpec.Backoff)
		}
		delay = (*law).Next()
	}

	s.ctrl.emit(model.Event{Kind: model.EventBackoffScheduled, Slot: s.name, TaskID: *taskID, Attempt: *attempt, DelayMS: uint64(delay.Milliseconds()), Time: now()})
	*state = stateRunning
	*timer = time.NewTimer(delay)
	*timerC = (*timer).C
}

func runnerTagOf(spec model.CreateSpec) string {
	if tag, ok := spec.RunnerTag(); ok {
		return tag
	}
	return spec.Kind.Tag.String()
}

// runOneAttempt builds (or reuses a preset) ExecutionUnit and runs it,
// delivering the classified outcome on resultCh. It never panics the slot
// actor: a build error is folded into a Failure outcome like any other
// attempt failure.
func (s *slotActor) runOneAttempt(spec model.CreateSpec, preset runner.ExecutionUnit, taskID model.TaskID, ctx context.Context, resultCh chan<- attemptResult) {
	unit := preset
	if unit == nil {
		rn, err := s.ctrl.router.Pick(spec)
		if err != nil {
			resultCh <- attemptResult{outcome: runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, err: err}
			return
		}
		u, err := rn.Build(spec, s.ctrl.router.BuildContext())
		if err != nil {
			s.ctrl.metrics.RecordRunnerError(rn.Name(), "build")
			resultCh <- attemptResult{outcome: runner.Outcome{Result: model.OutcomeFailure, Reason: err.Error()}, err: err}
			return
		}
		unit = u
		s.ctrl.metrics.RecordTaskStarted(rn.Name())
	}

	out, err := unit.Run(ctx)
	resultCh <- attemptResult{outcome: out, err: err}
}
