package types

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

const (
	RunStatePending    = "pending"
	RunStateInProgress = "in-progress"
	RunStateSucceeded  = "succeeded"
	RunStateFailed     = "failed"
)

const (
	EventInvocationsInFlight = "invocations-in-flight"
	EventAllSucceeded        = "all-succeeded"
	EventFailuresDetected    = "failures-detected"
)

// CommandRun tracks one dispatched command through its lifecycle with a finite state
// machine: pending -> in-progress -> succeeded/failed.
type CommandRun struct {
	CommandID    string
	CurrentState string
	FSM          *fsm.FSM
}

func NewCommandRun(commandID string) *CommandRun {
	r := &CommandRun{
		CommandID:    commandID,
		CurrentState: RunStatePending,
	}

	r.FSM = fsm.NewFSM(
		RunStatePending,
		fsm.Events{
			{Name: EventInvocationsInFlight, Src: []string{RunStatePending, RunStateInProgress}, Dst: RunStateInProgress},
			{Name: EventAllSucceeded, Src: []string{RunStatePending, RunStateInProgress}, Dst: RunStateSucceeded},
			{Name: EventFailuresDetected, Src: []string{RunStatePending, RunStateInProgress}, Dst: RunStateFailed},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				r.CurrentState = r.FSM.Current()
			},
		},
	)

	return r
}

// Observe advances the run based on the latest invocation summary.
func (r *CommandRun) Observe(summary StatusSummary) error {
	switch {
	case !summary.Settled():
		return r.fire(EventInvocationsInFlight)
	case summary.HasFailures():
		return r.fire(EventFailuresDetected)
	default:
		return r.fire(EventAllSucceeded)
	}
}

func (r *CommandRun) fire(event string) error {
	err := r.FSM.Event(context.Background(), event)
	if err == nil {
		return nil
	}

	// Repeated in-flight observations land on the current state.
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}

	return err
}

func (r *CommandRun) Settled() bool {
	return r.CurrentState == RunStateSucceeded || r.CurrentState == RunStateFailed
}

func (r *CommandRun) Failed() bool {
	return r.CurrentState == RunStateFailed
}
