package llm

import (
	"context"
	"iter"
	"sync"
)

// EventStream carries normalized events from one producer to one consumer.
//
// The channel is unbuffered: Push blocks until the consumer takes the event or
// abandons the stream with Close. The producer must call Finish exactly once.
type EventStream struct {
	events  chan Event
	abandon chan struct{}
	once    sync.Once

	// written before events is closed
	result *AssistantMessage
	err    error
}

// NewEventStream returns an open stream.
func NewEventStream() *EventStream {
	return &EventStream{
		events:  make(chan Event),
		abandon: make(chan struct{}),
	}
}

// Push delivers ev to the consumer. It reports false once the consumer has abandoned the stream.
func (s *EventStream) Push(ev Event) bool {
	select {
	case <-s.abandon:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.abandon:
		return false
	}
}

// Finish records the terminal outcome and closes the event channel.
func (s *EventStream) Finish(final *AssistantMessage, err error) {
	s.result = final
	s.err = err
	close(s.events)
}

// Close abandons the stream. The producer stops blocking on Push and runs to completion.
func (s *EventStream) Close() {
	s.once.Do(func() { close(s.abandon) })
}

// Events returns the raw event channel. It is closed after the terminal event.
func (s *EventStream) Events() <-chan Event {
	return s.events
}

// All yields events until the stream ends. Breaking out of the loop abandons the stream.
func (s *EventStream) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for ev := range s.events {
			if !yield(ev) {
				s.Close()
				return
			}
		}
	}
}

// Result drains the stream and returns the final output. A failed stream returns the
// partial output together with a *StreamError.
func (s *EventStream) Result(ctx context.Context) (*AssistantMessage, error) {
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return nil, ctx.Err()
		case _, ok := <-s.events:
			if !ok {
				return s.result, s.err
			}
		}
	}
}
