package session

// State is the lifecycle position of an upload session
type State int

const (
	StateIdle State = iota
	StatePreviewing
	StateUploading
	StateAwaitingProgress
	StateCompleted
	StateFailed
)

var transitions = map[State][]State{
	StateIdle:             {StatePreviewing, StateFailed},
	StatePreviewing:       {StateUploading, StateFailed},
	StateUploading:        {StateAwaitingProgress, StateFailed},
	StateAwaitingProgress: {StateCompleted, StateFailed},
}

// CanTransition reports whether from may move to to
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreviewing:
		return "previewing"
	case StateUploading:
		return "uploading"
	case StateAwaitingProgress:
		return "awaiting_progress"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the user-facing status line for the state
func (s State) Status() string {
	switch s {
	case StatePreviewing:
		return "Rendering preview..."
	case StateUploading:
		return "Uploading..."
	case StateAwaitingProgress:
		return "Processing..."
	case StateCompleted:
		return "Download complete."
	case StateFailed:
		return "Failed."
	default:
		return ""
	}
}
