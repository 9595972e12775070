package mqtt

import (
	"fmt"
	"strings"
)

// TopicNamespace is the root of every replay topic.
const TopicNamespace = "Fortnite"

// Topics provides builders for replay MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.Replay("match-42")            // "Fortnite/match-42"
//	topics.ReplayEvent("match-42", "kill") // "Fortnite/match-42/kill"
type Topics struct{}

// Replay returns the topic a bridge publishes to for the configured name.
//
// Example: Fortnite/match-42
func (Topics) Replay(name string) string {
	return fmt.Sprintf("%s/%s", TopicNamespace, name)
}

// ReplayEvent returns a per-entity-type topic below the replay topic.
// Leading and trailing slashes on the suffix are ignored.
//
// Example: Fortnite/match-42/kill
func (t Topics) ReplayEvent(name, suffix string) string {
	suffix = strings.Trim(suffix, "/")
	if suffix == "" {
		return t.Replay(name)
	}
	return fmt.Sprintf("%s/%s", t.Replay(name), suffix)
}

// AllReplay returns a pattern matching all replay traffic.
//
// Pattern: Fortnite/#
func (Topics) AllReplay() string {
	return TopicNamespace + "/#"
}
