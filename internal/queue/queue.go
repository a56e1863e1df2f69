// Package queue provides the bounded FIFOs used for the event queue and
// the dispatch queue: a thin wrapper over a buffered channel with
// context-aware blocking Put/Get.
package queue

import "context"

// Queue is a bounded FIFO of T. The zero value is not usable; construct
// with New.
type Queue[T any] struct {
	ch chan T
}

// New returns a Queue with the given capacity. A capacity of 0 yields an
// unbuffered (synchronous) queue.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Put enqueues v, blocking while the queue is full, until ctx is done.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get dequeues the next value, blocking while the queue is empty, until
// ctx is done.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Len reports the number of values currently buffered, for diagnostics
// only; it is not safe to use as a synchronization primitive.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}
