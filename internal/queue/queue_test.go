package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	ctx := context.Background()
	for i, want := range []int{1, 2, 3} {
		got, done, err := q.Next(ctx)
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if done {
			t.Fatalf("Next() #%d done = true, want false", i)
		}
		if got != want {
			t.Errorf("Next() #%d = %v, want %v", i, got, want)
		}
	}
}

func TestQueue_WaiterFirst(t *testing.T) {
	q := New[string]()

	got := make(chan string, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		v, _, err := q.Next(context.Background())
		if err != nil {
			t.Errorf("Next() error = %v", err)
		}
		got <- v
	}()

	<-ready
	// Give the waiter time to park before delivering
	time.Sleep(10 * time.Millisecond)
	q.Enqueue("hello")

	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("Next() = %q, want %q", v, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was never resolved")
	}
}

func TestQueue_CloseDrainsBufferFirst(t *testing.T) {
	q := New[int]()
	q.Enqueue(42)
	q.Close()

	ctx := context.Background()
	got, done, err := q.Next(ctx)
	if err != nil || done {
		t.Fatalf("Next() = (_, %v, %v), want buffered value first", done, err)
	}
	if got != 42 {
		t.Errorf("Next() = %v, want 42", got)
	}

	_, done, err = q.Next(ctx)
	if err != nil {
		t.Errorf("Next() after drain error = %v, want nil", err)
	}
	if !done {
		t.Errorf("Next() after drain done = false, want true")
	}
}

func TestQueue_FailPropagatesError(t *testing.T) {
	q := New[int]()
	q.Fail(errors.New("boom"))

	_, _, err := q.Next(context.Background())
	if err == nil {
		t.Fatal("Next() error = nil, want boom")
	}
	if err.Error() != "boom" {
		t.Errorf("Next() error = %q, want %q", err.Error(), "boom")
	}
}

func TestQueue_FailNilSynthesizesError(t *testing.T) {
	q := New[int]()
	q.Fail(nil)

	_, _, err := q.Next(context.Background())
	if !errors.Is(err, ErrFailed) {
		t.Errorf("Next() error = %v, want ErrFailed", err)
	}
}

func TestQueue_FailRejectsWaiters(t *testing.T) {
	q := New[int]()

	errCh := make(chan error, 1)
	go func() {
		_, _, err := q.Next(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Fail(errors.New("stream broke"))

	select {
	case err := <-errCh:
		if err == nil || err.Error() != "stream broke" {
			t.Errorf("waiter error = %v, want %q", err, "stream broke")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was never rejected")
	}
}

func TestQueue_TerminalTransitionsAreIdempotent(t *testing.T) {
	q := New[int]()
	q.Close()
	q.Fail(errors.New("too late"))
	q.Close()
	q.Enqueue(1)

	_, done, err := q.Next(context.Background())
	if err != nil {
		t.Errorf("Next() error = %v, want nil after Close", err)
	}
	if !done {
		t.Errorf("Next() done = false, want true")
	}
}

func TestQueue_EnqueueAfterTerminalIsDropped(t *testing.T) {
	q := New[int]()
	q.Fail(errors.New("dead"))
	q.Enqueue(7)

	if q.Len() != 0 {
		t.Errorf("Len() = %v, want 0", q.Len())
	}
}

func TestQueue_NextHonorsContext(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, _, err := q.Next(ctx)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Next() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next() did not observe cancellation")
	}

	// A departed waiter must not swallow later deliveries
	q.Enqueue(5)
	got, _, err := q.Next(context.Background())
	if err != nil || got != 5 {
		t.Errorf("Next() = (%v, %v), want (5, nil)", got, err)
	}
}

func TestQueue_ConcurrentProducerConsumer(t *testing.T) {
	q := New[int]()
	const n = 100

	go func() {
		for i := 0; i < n; i++ {
			q.Enqueue(i)
		}
		q.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	var got []int
	go func() {
		defer wg.Done()
		ctx := context.Background()
		for {
			v, done, err := q.Next(ctx)
			if err != nil {
				t.Errorf("Next() error = %v", err)
				return
			}
			if done {
				return
			}
			got = append(got, v)
		}
	}()
	wg.Wait()

	if len(got) != n {
		t.Fatalf("received %v values, want %v", len(got), n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("value #%d = %v, want %v (order lost)", i, v, i)
		}
	}
}
