package channel

import (
	"context"

	"github.com/hybridmocap/simulator/internal/queue"
)

// Unbounded is a FIFO stream with no capacity limit. A pump goroutine
// moves values from the send side into a backlog and feeds the receive
// side, so Send only waits for the pump, never for the consumer.
type Unbounded[T any] struct {
	in      chan T
	out     chan T
	backlog *queue.Queue[T]
}

// NewUnbounded creates an unbounded stream and starts its pump.
func NewUnbounded[T any]() *Unbounded[T] {
	u := &Unbounded[T]{
		in:      make(chan T),
		out:     make(chan T),
		backlog: queue.New[T](),
	}
	go u.pump()
	return u
}

// Send queues a value.
func (u *Unbounded[T]) Send(v T) {
	u.in <- v
}

// SendContext queues a value, giving up when ctx is done.
func (u *Unbounded[T]) SendContext(ctx context.Context, v T) error {
	select {
	case u.in <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the receive-only channel. It is closed after Close once
// every queued value has been received.
func (u *Unbounded[T]) Receive() <-chan T {
	return u.out
}

// Len returns the number of values queued but not yet received.
func (u *Unbounded[T]) Len() int {
	return u.backlog.Len()
}

// Close marks the end of the stream. Sending after Close panics.
func (u *Unbounded[T]) Close() {
	close(u.in)
}

func (u *Unbounded[T]) pump() {
	defer close(u.out)

	in := u.in
	for in != nil || u.backlog.Len() > 0 {
		var out chan T
		var next T
		if head, ok := u.backlog.Peek(); ok {
			out = u.out
			next = head
		}

		select {
		case v, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			u.backlog.Push(v)
		case out <- next:
			u.backlog.Pop()
		}
	}
}
