// Package codex is a client for long-lived conversations with the codex
// agent runtime.
//
// events.go - Event stream iteration
package codex

import (
	"context"
	"sync"

	"github.com/moofone/codex-go/internal/queue"
	"github.com/moofone/codex-go/protocol"
)

// EventStream iterates the events of the active conversation in scanner
// style:
//
//	stream, err := client.Events(ctx)
//	...
//	defer stream.Close()
//	for stream.Next() {
//	    handle(stream.Event())
//	}
//	if err := stream.Err(); err != nil { ... }
//
// Every Events call gets its own stream with its own ordering guarantee;
// streams never steal events from each other. A stream ends cleanly when
// the conversation shuts down, or with Err set when the underlying stream
// fails or ctx is cancelled.
type EventStream struct {
	ctx     context.Context
	conv    *conversation
	q       *queue.Queue[protocol.Event]
	cleanup sync.Once

	cur protocol.Event
	err error
}

// Events subscribes to the active conversation's event stream. Events
// emitted before the subscription are not replayed.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	c.mu.Lock()
	conv := c.conv
	c.mu.Unlock()
	if conv == nil {
		return nil, newError(ErrCodeSession, nil, "no active conversation")
	}

	return &EventStream{
		ctx:  ctx,
		conv: conv,
		q:    conv.addSubscriber(),
	}, nil
}

// Next advances to the next event, blocking until one arrives or the
// stream ends. It returns false at the end of the stream; check Err to
// distinguish clean shutdown from failure.
func (s *EventStream) Next() bool {
	event, done, err := s.q.Next(s.ctx)
	if err != nil {
		s.err = err
		s.close()
		return false
	}
	if done {
		s.close()
		return false
	}
	s.cur = event
	return true
}

// Event returns the event Next advanced to
func (s *EventStream) Event() protocol.Event {
	return s.cur
}

// Err returns the terminal error, nil after a clean shutdown
func (s *EventStream) Err() error {
	return s.err
}

// Close unsubscribes the stream. Events already buffered are discarded.
// Safe to call multiple times and concurrently with Next.
func (s *EventStream) Close() {
	s.q.Close()
	s.close()
}

func (s *EventStream) close() {
	s.cleanup.Do(func() {
		s.conv.removeSubscriber(s.q)
	})
}
