// Package queue provides the per-subscriber hand-off queue that backs
// event stream iterators.
package queue

import (
	"context"
	"errors"
	"sync"
)

/*
HAND-OFF QUEUE

One producer (the event pump) feeds any number of Queue instances, one per
subscriber. Each queue owns a FIFO value buffer and a FIFO waiter list so
production and consumption can happen in either order:

    producer first:  Enqueue buffers, a later Next pops in FIFO order
    consumer first:  Next parks a waiter, a later Enqueue resolves it directly

TERMINAL STATES:

    open -> closed        Close(): drain buffer, then Next reports done
    open -> failed(err)   Fail(err): drain buffer, then Next returns err

Once terminal, Enqueue/Fail/Close are no-ops. Termination is idempotent by
design: the pump, the subscriber teardown, and context cancellation may all
race to terminate the same queue.
*/

// ErrFailed is the synthesized error used when Fail is called without one.
var ErrFailed = errors.New("event queue failed")

type state int

const (
	stateOpen state = iota
	stateClosed
	stateFailed
)

type waiter[T any] struct {
	ch chan result[T]
}

type result[T any] struct {
	value T
	done  bool
	err   error
}

// Queue is an ordered hand-off channel between one producer and sequential
// Next callers.
type Queue[T any] struct {
	mu      sync.Mutex
	buf     []T
	waiters []*waiter[T]
	state   state
	err     error
}

// New creates an open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue delivers a value to the oldest pending waiter, or buffers it when
// nobody is waiting. No-op once the queue is terminal.
func (q *Queue[T]) Enqueue(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != stateOpen {
		return
	}

	if len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		w.ch <- result[T]{value: v}
		return
	}

	q.buf = append(q.buf, v)
}

// Fail transitions the queue to the failed state and rejects every pending
// waiter. A nil error is replaced with ErrFailed so callers always observe a
// usable error value. No-op once terminal.
func (q *Queue[T]) Fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != stateOpen {
		return
	}
	if err == nil {
		err = ErrFailed
	}

	q.state = stateFailed
	q.err = err

	for _, w := range q.waiters {
		w.ch <- result[T]{err: err}
	}
	q.waiters = nil
}

// Close transitions the queue to the closed state and resolves every pending
// waiter as done. No-op once terminal.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != stateOpen {
		return
	}
	q.state = stateClosed

	for _, w := range q.waiters {
		w.ch <- result[T]{done: true}
	}
	q.waiters = nil
}

// Next returns the next buffered value in FIFO order. With an empty buffer it
// reports the terminal state, or blocks until a value arrives, the queue
// terminates, or ctx is cancelled. The done flag is true only when the queue
// closed normally.
func (q *Queue[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	q.mu.Lock()
	if len(q.buf) > 0 {
		v := q.buf[0]
		q.buf = q.buf[1:]
		q.mu.Unlock()
		return v, false, nil
	}
	switch q.state {
	case stateFailed:
		err := q.err
		q.mu.Unlock()
		return zero, false, err
	case stateClosed:
		q.mu.Unlock()
		return zero, true, nil
	}

	// Buffered so a terminal transition never blocks on a departed waiter
	w := &waiter[T]{ch: make(chan result[T], 1)}
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	select {
	case r := <-w.ch:
		return r.value, r.done, r.err
	case <-ctx.Done():
		q.remove(w)
		// A value may have been delivered while we were unregistering
		select {
		case r := <-w.ch:
			return r.value, r.done, r.err
		default:
		}
		return zero, false, ctx.Err()
	}
}

// remove unregisters a waiter that gave up before being resolved
func (q *Queue[T]) remove(w *waiter[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, cand := range q.waiters {
		if cand == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

// Len returns the number of buffered values
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
