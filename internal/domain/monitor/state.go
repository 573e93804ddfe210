package monitor

import (
	"fmt"
	"sync"
)

// State is the polling lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
)

type trigger string

const (
	triggerBegin trigger = "begin"
	triggerEnd   trigger = "end"
)

// transitions is the complete idle -> polling -> idle lifecycle.
var transitions = map[State]map[trigger]State{
	StateIdle:    {triggerBegin: StatePolling},
	StatePolling: {triggerEnd: StateIdle},
}

// ErrInvalidTransition is returned when a trigger is not allowed in the
// current state.
type ErrInvalidTransition struct {
	From    State
	Trigger string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("no transition from %s on %s", e.From, e.Trigger)
}

// pollState guards a single in-flight polling cycle.
type pollState struct {
	mu      sync.Mutex
	current State
}

func newPollState() *pollState {
	return &pollState{current: StateIdle}
}

func (s *pollState) fire(t trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	to, ok := transitions[s.current][t]
	if !ok {
		return &ErrInvalidTransition{From: s.current, Trigger: string(t)}
	}
	s.current = to
	return nil
}

// TryBegin moves idle -> polling. It reports false when a cycle is
// already in flight.
func (s *pollState) TryBegin() bool {
	return s.fire(triggerBegin) == nil
}

// End moves polling -> idle.
func (s *pollState) End() error {
	return s.fire(triggerEnd)
}

// Current returns the current state.
func (s *pollState) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
