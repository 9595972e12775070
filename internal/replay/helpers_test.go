package replay

import "github.com/nerrad567/replay-observer/internal/infrastructure/config"

// memPublisher keeps published messages in memory.
type memPublisher struct {
	topics   []string
	payloads []string
	closed   bool
}

func (p *memPublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, string(payload))
	return nil
}

func (p *memPublisher) Close() error {
	p.closed = true
	return nil
}

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{Topic: "match-9"}
}
