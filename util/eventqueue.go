package util

import (
	"sync"

	"github.com/gammazero/deque"
)

// EventQueue is a thread-safe FIFO queue of events. Producers (HTTP
// handlers, monitors, watchers) push from any goroutine; the render loop
// drains the whole queue exactly once per tick.
type EventQueue[T any] struct {
	mu sync.Mutex
	dq deque.Deque[T]
}

// NewEventQueue creates an empty EventQueue.
func NewEventQueue[T any]() *EventQueue[T] {
	return &EventQueue[T]{}
}

// Push appends an event to the queue. It never blocks.
func (q *EventQueue[T]) Push(ev T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dq.PushBack(ev)
}

// Drain removes and returns all queued events in arrival order. It returns
// nil when the queue is empty.
func (q *EventQueue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dq.Len() == 0 {
		return nil
	}
	out := make([]T, 0, q.dq.Len())
	for q.dq.Len() > 0 {
		out = append(out, q.dq.PopFront())
	}
	return out
}

// Len returns the number of queued events.
func (q *EventQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dq.Len()
}
