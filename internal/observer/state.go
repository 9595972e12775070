package observer

// State is the bridge lifecycle state.
type State int

// Bridge states.
const (
	// Idle: connected, no subscription yet.
	Idle State = iota
	// Subscribed: holding a subscription handle, nothing published yet.
	Subscribed
	// Active: at least one callback has published.
	Active
	// Terminal: connection closed and subscription released.
	Terminal
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Subscribed:
		return "subscribed"
	case Active:
		return "active"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Termination records which path moved the bridge to Terminal.
type Termination string

// Termination values.
const (
	TerminationNone         Termination = ""
	TerminationCompleted    Termination = "completed"
	TerminationError        Termination = "error"
	TerminationUnsubscribed Termination = "unsubscribed"
)

// Message kinds passed to Recorder.
const (
	KindStarted  = "started"
	KindEvent    = "event"
	KindFinished = "finished"
)

// Message outcomes passed to Recorder.
const (
	OutcomePublished = "published"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

// Stats counts what the bridge did with each message it was asked to send.
type Stats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}
