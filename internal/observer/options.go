package observer

import "github.com/nerrad567/replay-observer/internal/infrastructure/logging"

// Option configures a Bridge at construction.
type Option[T any] func(*Bridge[T])

// WithTopicNamer replaces DefaultTopic. A nil namer is ignored.
func WithTopicNamer[T any](namer TopicNamer) Option[T] {
	return func(b *Bridge[T]) {
		if namer != nil {
			b.topic = namer
		}
	}
}

// WithPayloadEncoder replaces JSONPayload. A nil encoder is ignored.
func WithPayloadEncoder[T any](encoder PayloadEncoder[T]) Option[T] {
	return func(b *Bridge[T]) {
		if encoder != nil {
			b.encode = encoder
		}
	}
}

// WithLogger sets the bridge logger.
func WithLogger[T any](logger *logging.Logger) Option[T] {
	return func(b *Bridge[T]) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRecorder forwards every message outcome to r.
func WithRecorder[T any](r Recorder) Option[T] {
	return func(b *Bridge[T]) {
		b.recorder = r
	}
}
