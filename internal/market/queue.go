package market

import (
	"context"
	"sync"
	"time"
)

// Queue is an unbounded FIFO handoff queue between pipeline stages.
// Push never blocks; Pull and Poll block until an item is available, the
// context is cancelled, or (for Poll) the timeout elapses. Each Queue instance
// is meant for exactly one logical reader; FIFO order is preserved for that
// reader.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	// signal carries "queue went non-empty" wakeups to the single reader.
	signal chan struct{}
}

// NewQueue creates an empty Queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		mu:     sync.Mutex{},
		items:  nil,
		signal: make(chan struct{}, 1),
	}
}

// Push appends an item to the tail of the queue.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Pull blocks until an item is available or the context is cancelled.
func (q *Queue[T]) Pull(ctx context.Context) (T, error) {
	var zero T

	for {
		if item, ok := q.TryPull(); ok {
			return item, nil
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.signal:
		}
	}
}

// Poll waits up to timeout for an item. The second return is false when the
// timeout elapsed with the queue still empty; that is a normal cooperative
// cancellation checkpoint, not an error.
func (q *Queue[T]) Poll(ctx context.Context, timeout time.Duration) (T, bool, error) {
	var zero T

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if item, ok := q.TryPull(); ok {
			return item, true, nil
		}

		select {
		case <-ctx.Done():
			return zero, false, ctx.Err()
		case <-deadline.C:
			return zero, false, nil
		case <-q.signal:
		}
	}
}

// TryPull removes and returns the head of the queue without blocking.
func (q *Queue[T]) TryPull() (T, bool) {
	var zero T

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	// Zero the head slot before reslicing so the backing array does not pin
	// dequeued items.
	q.items[0] = zero
	q.items = q.items[1:]

	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
