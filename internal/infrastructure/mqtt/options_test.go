package mqtt

import (
	"crypto/tls"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/replay-observer/internal/infrastructure/config"
)

func TestResolveClientID(t *testing.T) {
	cfg := config.MQTTConfig{Broker: config.MQTTBrokerConfig{ClientID: "observer-01"}}
	if got := resolveClientID(cfg); got != "observer-01" {
		t.Errorf("resolveClientID() = %q, want %q", got, "observer-01")
	}

	cfg.Broker.ClientID = ""
	first := resolveClientID(cfg)
	second := resolveClientID(cfg)

	if !strings.HasPrefix(first, clientIDPrefix) {
		t.Errorf("resolveClientID() = %q, want prefix %q", first, clientIDPrefix)
	}
	if first == second {
		t.Errorf("resolveClientID() returned %q twice, want distinct identities", first)
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name string
		tls  bool
		want string
	}{
		{"plain", false, "tcp://broker.local:1883"},
		{"tls", true, "ssl://broker.local:1883"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.MQTTConfig{Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 1883, TLS: tt.tls}}
			if got := brokerURL(cfg); got != tt.want {
				t.Errorf("brokerURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 8883, TLS: true},
		Auth:   config.MQTTAuthConfig{Username: "replay", Password: "secret"},
		Timeouts: config.MQTTTimeoutConfig{
			Connect: 3,
		},
	}

	opts := buildClientOptions(cfg, "fortnite_test")

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("Servers = %v, want [ssl://broker.local:8883]", opts.Servers)
	}
	if opts.ClientID != "fortnite_test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "fortnite_test")
	}
	if opts.Username != "replay" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want replay/secret", opts.Username, opts.Password)
	}
	if opts.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}
	if opts.ConnectRetry {
		t.Error("ConnectRetry = true, want false")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if opts.ConnectTimeout != 3*time.Second {
		t.Errorf("ConnectTimeout = %v, want 3s", opts.ConnectTimeout)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("TLSConfig = %+v, want MinVersion TLS 1.2", opts.TLSConfig)
	}
}

func TestBuildClientOptions_Anonymous(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883},
		Auth:   config.MQTTAuthConfig{Password: "ignored-without-user"},
	}

	opts := buildClientOptions(cfg, "id")

	if opts.Username != "" || opts.Password != "" {
		t.Errorf("credentials = %q/%q, want none", opts.Username, opts.Password)
	}
	if opts.ConnectTimeout != 0 {
		t.Errorf("ConnectTimeout = %v, want 0 (wait indefinitely)", opts.ConnectTimeout)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "Fortnite/t", []byte("x"), 3, ErrInvalidQoS},
		{"payload too large", "Fortnite/t", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "Fortnite/t", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{}
	noop := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("Fortnite/#", 3, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("Fortnite/#", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("Fortnite/#", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true on zero client")
	}
}
