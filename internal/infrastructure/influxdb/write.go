package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/replay-observer/internal/observer"
)

// Measurement names.
const (
	measurementMessages = "replay_messages"
	measurementSessions = "replay_sessions"
)

var _ observer.Recorder = (*Client)(nil)

// RecordMessage writes one point for a message the bridge handled.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Nothing is written when the client is not connected.
//
// Example:
//
//	client.RecordMessage("Fortnite/match-42", observer.KindEvent, observer.OutcomePublished, 57)
func (c *Client) RecordMessage(topic, kind, outcome string, size int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(messagePoint(topic, kind, outcome, size, time.Now()))
}

// WriteSessionSummary writes the final counters of one bridge run.
//
// Parameters:
//   - sessionID: Journal ID of the run
//   - topic: Topic the bridge published to
//   - termination: How the run ended (completed, error, unsubscribed)
//   - stats: Bridge counters at teardown
func (c *Client) WriteSessionSummary(sessionID, topic, termination string, stats observer.Stats) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(sessionPoint(sessionID, topic, termination, stats, time.Now()))
}

func messagePoint(topic, kind, outcome string, size int, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementMessages,
		map[string]string{
			"topic":   topic,
			"kind":    kind,
			"outcome": outcome,
		},
		map[string]interface{}{
			"count":         int64(1),
			"payload_bytes": int64(size),
		},
		ts,
	)
}

func sessionPoint(sessionID, topic, termination string, stats observer.Stats, ts time.Time) *write.Point {
	// #nosec G115 -- counters of a single run stay far below MaxInt64
	return write.NewPoint(
		measurementSessions,
		map[string]string{
			"topic":       topic,
			"termination": termination,
		},
		map[string]interface{}{
			"session_id": sessionID,
			"published":  int64(stats.Published),
			"dropped":    int64(stats.Dropped),
			"failed":     int64(stats.Failed),
		},
		ts,
	)
}
