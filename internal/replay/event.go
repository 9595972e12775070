package replay

import (
	"encoding/json"
	"errors"
)

var (
	// ErrDecodeFailed is returned when a line of the feed is not a valid event.
	ErrDecodeFailed = errors.New("replay: event decode failed")

	// ErrAlreadyRunning is returned by Run while another Run is in progress.
	ErrAlreadyRunning = errors.New("replay: feed already running")

	// ErrNoObserver is returned by Run when nothing is subscribed.
	ErrNoObserver = errors.New("replay: no observer subscribed")
)

// Event is one entry in a parsed replay: an elimination, a storm phase, a
// chest opened, and so on. Data carries the type-specific body untouched.
type Event struct {
	Type   string          `json:"type"`
	TimeMS int64           `json:"time_ms"`
	Player string          `json:"player,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// decodeEvent parses one feed line. A line without a type is rejected so
// that stray objects are not published as events.
func decodeEvent(line []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" {
		return Event{}, errors.New("missing event type")
	}
	return ev, nil
}
