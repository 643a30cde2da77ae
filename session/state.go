package session

// State is a session lifecycle state.
type State string

const (
	StateCreated      State = "created"
	StateInitializing State = "initializing"
	StateActive       State = "active"
	StateClosing      State = "closing"
	StateTerminated   State = "terminated"
	StateFailed       State = "failed"
)

var transitions = map[State][]State{
	StateCreated:      {StateInitializing, StateFailed},
	StateInitializing: {StateActive, StateFailed},
	StateActive:       {StateClosing, StateFailed},
	StateClosing:      {StateTerminated},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateFailed
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) String() string { return string(s) }
