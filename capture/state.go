package capture

// State is the lifecycle position of a capture.
type State int

const (
	Idle State = iota
	Selecting
	Capturing
	ScrollRequested
	Done
	Failed
)

var stateNames = [...]string{"idle", "selecting", "capturing", "scroll_requested", "done", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Done || s == Failed }

var transitions = map[State][]State{
	Idle:            {Selecting},
	Selecting:       {Idle, Capturing, Failed},
	Capturing:       {ScrollRequested, Done, Failed},
	ScrollRequested: {Capturing, Failed},
}

// CanTransition reports whether next is a legal successor of s.
func (s State) CanTransition(next State) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
