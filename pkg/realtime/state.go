package realtime

import "fmt"

// State is the lifecycle of a single connection handle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitionTo validates a lifecycle transition. A handle only ever moves
// disconnected -> connecting -> connected -> disconnected; reconnection
// creates a fresh handle rather than reviving this one.
func (s State) transitionTo(next State) (State, error) {
	switch s {
	case StateDisconnected:
		if next == StateConnecting {
			return next, nil
		}
	case StateConnecting:
		switch next {
		case StateConnected, StateDisconnected:
			return next, nil
		}
	case StateConnected:
		if next == StateDisconnected {
			return next, nil
		}
	}
	return s, fmt.Errorf("invalid state transition from %v to %v", s, next)
}
