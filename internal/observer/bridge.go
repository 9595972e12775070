package observer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/replay-observer/internal/infrastructure/config"
	"github.com/nerrad567/replay-observer/internal/infrastructure/logging"
	"github.com/nerrad567/replay-observer/internal/infrastructure/mqtt"
)

// Control payloads. They are sent verbatim and never pass through the
// payload encoder.
const (
	startedPayload  = `{"started": 1}`
	finishedPayload = `{"finished": 1}`
)

var _ Publisher = (*mqtt.Client)(nil)

// Bridge publishes the values of one Observable to one MQTT topic.
//
// A Bridge owns its broker connection and its subscription handle; both are
// released exactly once, on the first teardown.
type Bridge[T any] struct {
	mu sync.Mutex

	pub    Publisher
	cfg    config.MQTTConfig
	topic  TopicNamer
	encode PayloadEncoder[T]

	logger   *logging.Logger
	recorder Recorder

	state       State
	sub         Subscription
	subscribing bool
	termination Termination
	cause       error
	stats       Stats
}

// Dial connects to the broker described by cfg and returns a bridge over
// that connection. It blocks until the broker accepts or rejects the
// connection; on failure no bridge is returned.
func Dial[T any](cfg config.MQTTConfig, opts ...Option[T]) (*Bridge[T], error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting bridge: %w", err)
	}

	b := NewBridge(client, cfg, opts...)
	client.SetLogger(b.logger)
	b.logger.Info("bridge connected",
		"broker", cfg.BrokerAddress(),
		"client_id", client.ClientID(),
		"topic", b.topic(cfg),
	)

	return b, nil
}

// NewBridge returns a bridge over an already connected publisher.
func NewBridge[T any](pub Publisher, cfg config.MQTTConfig, opts ...Option[T]) *Bridge[T] {
	b := &Bridge[T]{
		pub:    pub,
		cfg:    cfg,
		topic:  DefaultTopic,
		encode: JSONPayload[T],
		logger: logging.Discard(),
		state:  Idle,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers the bridge with provider and keeps the returned
// handle. A nil provider is ignored.
//
// The bridge lock is not held while provider.Subscribe runs, so a source
// may emit synchronously from inside Subscribe. If that drives the bridge
// to Terminal, the handle is cancelled as soon as it is returned.
func (b *Bridge[T]) Subscribe(provider Observable[T]) error {
	if provider == nil {
		return nil
	}

	b.mu.Lock()
	if b.state == Terminal {
		b.mu.Unlock()
		return ErrTerminated
	}
	if b.sub != nil || b.subscribing {
		b.mu.Unlock()
		return ErrAlreadySubscribed
	}
	b.subscribing = true
	b.mu.Unlock()

	returned := false
	defer func() {
		if !returned {
			b.mu.Lock()
			b.subscribing = false
			b.mu.Unlock()
		}
	}()
	sub := provider.Subscribe(b)
	returned = true

	b.mu.Lock()
	b.subscribing = false
	if b.state == Terminal {
		b.mu.Unlock()
		if sub != nil {
			sub.Cancel()
		}
		return nil
	}
	b.sub = sub
	if b.state == Idle {
		b.state = Subscribed
	}
	b.mu.Unlock()

	return nil
}

// OnStart publishes the started control message.
func (b *Bridge[T]) OnStart() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Terminal {
		return ErrTerminated
	}
	b.state = Active

	return b.publishLocked(b.topic(b.cfg), startedPayload, KindStarted)
}

// OnNext encodes value and publishes it. If the derived topic or payload is
// blank the value is dropped: nothing is sent and nil is returned.
func (b *Bridge[T]) OnNext(value T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Terminal {
		return ErrTerminated
	}

	topic := b.topic(b.cfg)
	payload, err := b.encode(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}

	if strings.TrimSpace(topic) == "" || strings.TrimSpace(payload) == "" {
		b.stats.Dropped++
		b.logger.Debug("replay event dropped",
			"topic", topic,
			"payload_bytes", len(payload),
		)
		b.record(topic, KindEvent, OutcomeDropped, len(payload))
		return nil
	}

	b.state = Active
	return b.publishLocked(topic, payload, KindEvent)
}

// OnCompleted publishes the finished control message and tears the bridge
// down. Teardown runs even if the publish fails; both errors are returned.
func (b *Bridge[T]) OnCompleted() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Terminal {
		return ErrTerminated
	}

	pubErr := b.publishLocked(b.topic(b.cfg), finishedPayload, KindFinished)
	b.termination = TerminationCompleted

	return errors.Join(pubErr, b.teardownLocked())
}

// OnError tears the bridge down. Nothing is published and err is not sent
// to the broker; it is kept for TerminalCause.
func (b *Bridge[T]) OnError(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Terminal {
		return nil
	}

	b.termination = TerminationError
	b.cause = err
	b.logger.Info("upstream signalled an error, closing bridge")

	return b.teardownLocked()
}

// Unsubscribe disconnects from the broker, disposes of the client and
// releases the subscription handle, in that order. Calling it on a
// Terminal bridge is a no-op.
func (b *Bridge[T]) Unsubscribe() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Terminal {
		return nil
	}
	b.termination = TerminationUnsubscribed

	return b.teardownLocked()
}

// State returns the current lifecycle state.
func (b *Bridge[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot of the message counters.
func (b *Bridge[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Termination reports how the bridge reached Terminal, or TerminationNone.
func (b *Bridge[T]) Termination() Termination {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.termination
}

// TerminalCause returns the error passed to OnError, if any.
func (b *Bridge[T]) TerminalCause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cause
}

// Topic returns the topic the bridge derives from its settings.
func (b *Bridge[T]) Topic() string {
	return b.topic(b.cfg)
}

// ClientID returns the broker client identity when the publisher exposes
// one, as *mqtt.Client does.
func (b *Bridge[T]) ClientID() string {
	if c, ok := b.pub.(interface{ ClientID() string }); ok {
		return c.ClientID()
	}
	return ""
}

// publishLocked sends one message at least once, not retained.
// Callers hold b.mu.
func (b *Bridge[T]) publishLocked(topic, payload, kind string) error {
	if err := b.pub.Publish(topic, []byte(payload), mqtt.QoSAtLeastOnce, false); err != nil {
		b.stats.Failed++
		b.record(topic, kind, OutcomeFailed, len(payload))
		return err
	}

	b.stats.Published++
	b.record(topic, kind, OutcomePublished, len(payload))
	return nil
}

// teardownLocked closes the publisher then cancels the subscription.
// Callers hold b.mu and have checked the bridge is not already Terminal.
func (b *Bridge[T]) teardownLocked() error {
	b.state = Terminal

	closeErr := b.pub.Close()

	if b.sub != nil {
		b.sub.Cancel()
		b.sub = nil
	}

	b.logger.Info("bridge closed",
		"termination", string(b.termination),
		"published", b.stats.Published,
		"dropped", b.stats.Dropped,
		"failed", b.stats.Failed,
	)

	if closeErr != nil {
		return fmt.Errorf("closing broker connection: %w", closeErr)
	}
	return nil
}

func (b *Bridge[T]) record(topic, kind, outcome string, size int) {
	if b.recorder != nil {
		b.recorder.RecordMessage(topic, kind, outcome, size)
	}
}
