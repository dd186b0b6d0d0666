package engine

import "fmt"

// State is the lifecycle position of one transform transaction.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateApplying   State = "applying"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolledBack"
)

// transitions lists the legal successor states. Committed and RolledBack
// are terminal.
var transitions = map[State][]State{
	StatePending:    {StateValidating, StateRolledBack},
	StateValidating: {StateApplying, StateRolledBack},
	StateApplying:   {StateCommitted, StateRolledBack},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

func (s State) canMoveTo(next State) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

func (s State) moveTo(next State) (State, error) {
	if !s.canMoveTo(next) {
		return s, fmt.Errorf("illegal transaction transition %s -> %s", s, next)
	}
	return next, nil
}
