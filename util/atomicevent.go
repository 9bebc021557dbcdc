package util

import (
	"sync"
)

// AtomicEvent holds a single, latest value and provides non-blocking updates.
// Only the most recent value is retained; consumers that only care about the
// current state (not the history) read it via Value.
type AtomicEvent[T any] struct {
	mu     sync.Mutex
	value  T
	notify chan struct{} // buffered channel of size 1 for notification
}

// NewAtomicEvent creates a new AtomicEvent instance.
func NewAtomicEvent[T any]() *AtomicEvent[T] {
	return &AtomicEvent[T]{
		notify: make(chan struct{}, 1),
	}
}

// Send updates with the latest value. It is non-blocking.
func (ae *AtomicEvent[T]) Send(value T) {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	ae.value = value

	select {
	case ae.notify <- struct{}{}:
	default:
		// Channel was already full, notification is already pending.
	}
}

// Channel returns the notification channel for use in select statements.
func (ae *AtomicEvent[T]) Channel() <-chan struct{} {
	return ae.notify
}

// Value returns the current latest value.
func (ae *AtomicEvent[T]) Value() T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.value
}
