//go:build integration

package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/replay-observer/internal/infrastructure/config"
)

// Integration tests against a real broker.
// These tests require a running Mosquitto broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host: "127.0.0.1",
			Port: 1883,
		},
		Topic: "integration",
		Timeouts: config.MQTTTimeoutConfig{
			Connect:           5,
			Publish:           5,
			DisconnectQuiesce: 100,
		},
	}
}

func TestIntegration_ConnectAndClose(t *testing.T) {
	client, err := Connect(integrationConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if !errors.Is(client.HealthCheck(context.Background()), ErrNotConnected) {
		t.Error("HealthCheck() after Close() should return ErrNotConnected")
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_PublishAfterClose(t *testing.T) {
	client, err := Connect(integrationConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	err = client.Publish(Topics{}.Replay("integration"), []byte(`{"started": 1}`), QoSAtLeastOnce, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestIntegration_RoundTrip(t *testing.T) {
	sub, err := Connect(integrationConfig())
	if err != nil {
		t.Fatalf("Connect(sub) error = %v", err)
	}
	defer sub.Close()

	pub, err := Connect(integrationConfig())
	if err != nil {
		t.Fatalf("Connect(pub) error = %v", err)
	}
	defer pub.Close()

	topic := Topics{}.Replay("integration-roundtrip")

	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 2)

	err = sub.Subscribe(topic, QoSAtLeastOnce, func(_ string, payload []byte) error {
		mu.Lock()
		got = append(got, string(payload))
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !subscribed(sub, topic) {
		t.Error("subscription not registered")
	}

	for _, payload := range []string{`{"started": 1}`, `{"finished": 1}`} {
		if err := pub.Publish(topic, []byte(payload), QoSAtLeastOnce, false); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for messages")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != `{"started": 1}` || got[1] != `{"finished": 1}` {
		t.Errorf("received %v, want started then finished", got)
	}

	if err := sub.Unsubscribe(topic); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if subscribed(sub, topic) {
		t.Error("subscription still registered after Unsubscribe()")
	}
}

func subscribed(c *Client, topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}
