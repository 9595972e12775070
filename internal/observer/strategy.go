package observer

import (
	"encoding/json"

	"github.com/nerrad567/replay-observer/internal/infrastructure/config"
	"github.com/nerrad567/replay-observer/internal/infrastructure/mqtt"
)

// TopicNamer derives the publish topic from the connection settings.
type TopicNamer func(cfg config.MQTTConfig) string

// PayloadEncoder turns an observed value into a message body.
type PayloadEncoder[T any] func(value T) (string, error)

// DefaultTopic returns "Fortnite/<topic>".
func DefaultTopic(cfg config.MQTTConfig) string {
	return mqtt.Topics{}.Replay(cfg.Topic)
}

// TopicWithSuffix returns a namer for "Fortnite/<topic>/<suffix>", used by
// bridges that publish a single entity type.
func TopicWithSuffix(suffix string) TopicNamer {
	return func(cfg config.MQTTConfig) string {
		return mqtt.Topics{}.ReplayEvent(cfg.Topic, suffix)
	}
}

// JSONPayload encodes the exported fields of value as a JSON object.
func JSONPayload[T any](value T) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
