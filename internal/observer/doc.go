// Package observer bridges an in-process replay event stream to an MQTT
// broker.
//
// A Bridge is an Observer: a source (the replay reader) subscribes it and
// then drives the four lifecycle callbacks. Each callback turns into at most
// one publish on the bridge's topic, and the terminal callbacks tear the
// broker connection down.
//
//	OnStart()      -> publish {"started": 1}
//	OnNext(v)      -> publish encoder(v) to namer(cfg), unless either is blank
//	OnCompleted()  -> publish {"finished": 1}, then Unsubscribe
//	OnError(err)   -> Unsubscribe (nothing is published)
//
// # State Machine
//
//	Idle --Subscribe--> Subscribed --OnStart/OnNext--> Active
//	any non-terminal --OnCompleted/OnError/Unsubscribe--> Terminal
//
// Teardown is idempotent: a second Unsubscribe or an OnError after the
// bridge is Terminal does nothing. Callbacks that would publish after
// teardown return ErrTerminated.
//
// # Blocking Contract
//
// Every callback returns only after its broker round-trip has completed, so
// messages reach the broker in callback order. Callbacks are serialised
// with a mutex; driving one bridge from several goroutines is still not a
// meaningful configuration because event order would be arbitrary.
//
// # Extension Points
//
// Topic naming and payload encoding are strategies passed at construction:
//
//	bridge, err := observer.Dial(cfg.MQTT,
//	    observer.WithTopicNamer[replay.Event](observer.TopicWithSuffix("kills")),
//	    observer.WithPayloadEncoder[replay.Event](func(e replay.Event) (string, error) {
//	        return e.Player, nil
//	    }),
//	)
package observer
