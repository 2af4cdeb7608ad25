package fsm

import "fmt"

type State string

type Event string

const (
	StateListening State = "listening"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
)

const (
	EventPause  Event = "pause"
	EventResume Event = "resume"
	EventStop   Event = "stop"
)

// Transition applies one event to the listening-state machine. Stopped is
// terminal; pause and resume are only valid from their counterpart state.
func Transition(current State, event Event) (State, error) {
	if event == EventStop {
		if current == StateStopped {
			return current, invalidTransition(current, event)
		}
		return StateStopped, nil
	}

	switch current {
	case StateListening:
		switch event {
		case EventPause:
			return StatePaused, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePaused:
		switch event {
		case EventResume:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopped:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
