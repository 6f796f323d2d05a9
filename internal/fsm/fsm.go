// Package fsm defines the assistant's foreground state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateRunning   State = "running"
	StateError     State = "error"
)

const (
	EventListen Event = "listen"
	EventHeard  Event = "heard"
	EventCancel Event = "cancel"
	EventRun    Event = "run"
	EventDone   Event = "done"
	EventFail   Event = "fail"
	EventReset  Event = "reset"
)

// Transition returns the next state, or the current state and an error when
// the event is not valid from it. EventFail is accepted from every state.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventListen:
			return StateListening, nil
		case EventRun:
			return StateRunning, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventHeard, EventCancel:
			return StateIdle, nil
		case EventRun:
			return StateRunning, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRunning:
		switch event {
		case EventDone:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Busy reports whether a foreground listen or run is in flight.
func (s State) Busy() bool {
	return s == StateListening || s == StateRunning
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
