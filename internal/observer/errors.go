package observer

import "errors"

var (
	// ErrTerminated is returned by callbacks that would publish after the
	// bridge has been torn down.
	ErrTerminated = errors.New("observer: bridge terminated")

	// ErrAlreadySubscribed is returned when Subscribe is called while the
	// bridge already holds a subscription.
	ErrAlreadySubscribed = errors.New("observer: already subscribed")

	// ErrEncodeFailed wraps payload encoder failures.
	ErrEncodeFailed = errors.New("observer: payload encoding failed")
)
