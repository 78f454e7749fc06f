// Package market holds the in-process market data plumbing: the shared
// per-instrument state slots the feed publishes into, the FIFO handoff queues
// between pipeline stages, and the tick-to-candle aggregator.
package market

import (
	"context"
	"sync"

	"github.com/marlinquant/marlin/pkg/errors"
)

// slot is the per-instrument storage cell. The value is read and written only
// under mu; ready carries the one-shot "new value" event.
type slot[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
	ready chan struct{}
}

// State is a set of per-instrument mutable slots with event signaling.
// Publish overwrites the stored value and signals the instrument's event;
// Consume blocks on the event and returns an independent copy taken under the
// lock. Each State instance supports exactly one consumer per instrument, so
// independent consumer paths (price, position) each get their own State and a
// slow consumer never blocks a fast one.
type State[T any] struct {
	slots map[string]*slot[T]
}

// NewState creates a State with one slot per symbol.
func NewState[T any](symbols []string) *State[T] {
	slots := make(map[string]*slot[T], len(symbols))
	for _, symbol := range symbols {
		slots[symbol] = &slot[T]{
			mu:    sync.Mutex{},
			ready: make(chan struct{}, 1),
		}
	}

	return &State[T]{slots: slots}
}

// Publish overwrites the stored value for the symbol and signals its event.
// Publishing to an unknown symbol is a configuration error.
func (s *State[T]) Publish(symbol string, value T) error {
	sl, ok := s.slots[symbol]
	if !ok {
		return errors.Newf(errors.ErrCodeStateUnavailable, "no state slot for symbol %s", symbol)
	}

	sl.mu.Lock()
	sl.value = value
	sl.set = true
	sl.mu.Unlock()

	// Coalescing signal: a pending event already covers this publish.
	select {
	case sl.ready <- struct{}{}:
	default:
	}

	return nil
}

// Consume blocks until the symbol's event fires or the context is cancelled,
// then returns a copy of the stored value taken under the lock. The copy never
// aliases the slot, so the caller can use it after the lock is released.
// With no prior Publish it blocks until cancellation; that is backpressure,
// not an error.
func (s *State[T]) Consume(ctx context.Context, symbol string) (T, error) {
	var zero T

	sl, ok := s.slots[symbol]
	if !ok {
		return zero, errors.Newf(errors.ErrCodeStateUnavailable, "no state slot for symbol %s", symbol)
	}

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-sl.ready:
	}

	sl.mu.Lock()
	value := sl.value
	sl.mu.Unlock()

	return value, nil
}

// Peek returns a copy of the current value without waiting or clearing the
// event. The second return is false if nothing has been published yet.
func (s *State[T]) Peek(symbol string) (T, bool) {
	var zero T

	sl, ok := s.slots[symbol]
	if !ok {
		return zero, false
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.set {
		return zero, false
	}

	return sl.value, true
}
