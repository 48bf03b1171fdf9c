// internal/channel/unbuffered.go
package channel

import "context"

// Unbuffered is a rendezvous stream: every send waits for its receiver.
type Unbuffered[T any] struct {
	ch chan T
}

// NewUnbuffered creates a new unbuffered stream
func NewUnbuffered[T any]() *Unbuffered[T] {
	return &Unbuffered[T]{ch: make(chan T)}
}

// Send sends a value (blocks until received)
func (u *Unbuffered[T]) Send(v T) {
	u.ch <- v
}

// SendContext sends a value, giving up when ctx is done.
func (u *Unbuffered[T]) SendContext(ctx context.Context, v T) error {
	select {
	case u.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the receive-only channel
func (u *Unbuffered[T]) Receive() <-chan T {
	return u.ch
}

// Len always returns 0 for unbuffered streams
func (u *Unbuffered[T]) Len() int {
	return 0
}

// Close closes the stream
func (u *Unbuffered[T]) Close() {
	close(u.ch)
}
