package observer

// Observer receives lifecycle notifications from an Observable.
//
// A returned error tells the source that the callback failed; the source
// decides whether to stop.
type Observer[T any] interface {
	OnStart() error
	OnNext(value T) error
	OnError(err error) error
	OnCompleted() error
}

// Observable is a push-based source of values of type T.
type Observable[T any] interface {
	// Subscribe registers the observer and returns the handle that
	// releases the registration.
	Subscribe(observer Observer[T]) Subscription
}

// Subscription is the handle returned by Observable.Subscribe.
//
// Cancel must not call back into the observer.
type Subscription interface {
	Cancel()
}

// SubscriptionFunc adapts a function to the Subscription interface.
type SubscriptionFunc func()

// Cancel calls f.
func (f SubscriptionFunc) Cancel() {
	f()
}

// Publisher is the broker side of the bridge. *mqtt.Client satisfies it.
type Publisher interface {
	// Publish sends one message and blocks until the broker round-trip
	// completes.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Close disconnects from the broker and releases the client.
	Close() error
}

// Recorder receives one record per message the bridge handles, including
// dropped and failed ones. The InfluxDB client implements it.
type Recorder interface {
	RecordMessage(topic, kind, outcome string, size int)
}
