package replay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/nerrad567/replay-observer/internal/observer"
)

// maxLineSize bounds a single encoded event.
const maxLineSize = 1024 * 1024

var _ observer.Observable[Event] = (*Feed)(nil)

// Feed replays newline-delimited JSON events from a reader to one observer.
//
// The feed stands in for the replay parser: it emits OnStart, one OnNext per
// event, and then OnCompleted at end of input or OnError on the first
// failure. A returned observer error stops the run.
//
// Thread Safety:
//   - Subscribe, Cancel and Run may be called from different goroutines.
//   - Observer callbacks run on the goroutine that called Run, without the
//     feed lock held.
type Feed struct {
	r     io.Reader
	types map[string]struct{}

	mu       sync.Mutex
	observer observer.Observer[Event]
	gen      uint64
	running  bool
	lines    int
	emitted  int
}

// NewFeed returns a feed reading from r.
func NewFeed(r io.Reader) *Feed {
	return &Feed{r: r}
}

// Filter restricts the feed to events of the given types. Calling it with
// no types removes the restriction. It returns f for chaining.
func (f *Feed) Filter(types ...string) *Feed {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(types) == 0 {
		f.types = nil
		return f
	}
	f.types = make(map[string]struct{}, len(types))
	for _, t := range types {
		f.types[t] = struct{}{}
	}
	return f
}

// Subscribe registers o as the feed's observer, replacing any previous one.
// Cancelling the returned subscription detaches o; it does not call back
// into o.
func (f *Feed) Subscribe(o observer.Observer[Event]) observer.Subscription {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.observer = o
	f.mu.Unlock()

	return observer.SubscriptionFunc(func() {
		f.mu.Lock()
		if f.gen == gen {
			f.observer = nil
		}
		f.mu.Unlock()
	})
}

// Lines returns how many non-blank lines the last run read.
func (f *Feed) Lines() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines
}

// Emitted returns how many events the last run delivered to OnNext.
func (f *Feed) Emitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emitted
}

// Run reads the whole input and drives the subscribed observer.
//
// It returns nil after OnCompleted, the decode, read or context error that
// was passed to OnError, or the first error an observer callback returned.
// If the observer is detached mid-run, Run stops and returns nil.
//
// Cancelling ctx stops Run even while a read is blocked, as on an idle
// stdin. The reading goroutine exits once that read returns.
func (f *Feed) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return ErrAlreadyRunning
	}
	if f.observer == nil {
		f.mu.Unlock()
		return ErrNoObserver
	}
	f.running = true
	f.lines, f.emitted = 0, 0
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()

	o, ok := f.current()
	if !ok {
		return nil
	}
	if err := o.OnStart(); err != nil {
		return fmt.Errorf("observer start: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	lines := scanLines(f.r, done)

	lineNo := 0
	for {
		var res scanResult
		var more bool
		select {
		case <-ctx.Done():
			return f.fail(ctx.Err())
		case res, more = <-lines:
		}
		if !more {
			break
		}
		if res.err != nil {
			return f.fail(fmt.Errorf("reading replay: %w", res.err))
		}
		lineNo++

		if err := ctx.Err(); err != nil {
			return f.fail(err)
		}

		line := bytes.TrimSpace(res.line)
		if len(line) == 0 {
			continue
		}
		f.count(&f.lines)

		ev, err := decodeEvent(line)
		if err != nil {
			return f.fail(fmt.Errorf("%w: line %d: %w", ErrDecodeFailed, lineNo, err))
		}
		if !f.accepts(ev.Type) {
			continue
		}

		o, ok := f.current()
		if !ok {
			return nil
		}
		if err := o.OnNext(ev); err != nil {
			return fmt.Errorf("observer next (line %d): %w", lineNo, err)
		}
		f.count(&f.emitted)
	}

	if err := ctx.Err(); err != nil {
		return f.fail(err)
	}

	o, ok = f.current()
	if !ok {
		return nil
	}
	if err := o.OnCompleted(); err != nil {
		return fmt.Errorf("observer completed: %w", err)
	}
	return nil
}

// scanResult is one line read from the input, or the read error that ended
// it.
type scanResult struct {
	line []byte
	err  error
}

// scanLines reads r line by line on its own goroutine. The channel is closed
// at end of input. The goroutine exits early once done is closed.
func scanLines(r io.Reader, done <-chan struct{}) <-chan scanResult {
	out := make(chan scanResult)
	go func() {
		defer close(out)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case out <- scanResult{line: bytes.Clone(scanner.Bytes())}:
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- scanResult{err: err}:
			case <-done:
			}
		}
	}()
	return out
}

// fail reports cause to the observer and returns it, joined with any error
// the observer returned from OnError.
func (f *Feed) fail(cause error) error {
	o, ok := f.current()
	if !ok {
		return cause
	}
	if err := o.OnError(cause); err != nil {
		return errors.Join(cause, fmt.Errorf("observer error: %w", err))
	}
	return cause
}

func (f *Feed) current() (observer.Observer[Event], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.observer, f.observer != nil
}

func (f *Feed) accepts(eventType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.types == nil {
		return true
	}
	_, ok := f.types[eventType]
	return ok
}

func (f *Feed) count(n *int) {
	f.mu.Lock()
	*n++
	f.mu.Unlock()
}
