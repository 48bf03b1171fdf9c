package channel

import "context"

// Buffered is a fixed-capacity stream. Sends block when it is full.
type Buffered[T any] struct {
	ch chan T
}

// NewBuffered creates a stream with the given capacity.
func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, size)}
}

// Send sends a value to the stream
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// SendContext sends a value, giving up when ctx is done.
func (b *Buffered[T]) SendContext(ctx context.Context, v T) error {
	select {
	case b.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the receive-only channel
func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len returns the number of items currently in the buffer
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Close closes the stream
func (b *Buffered[T]) Close() {
	close(b.ch)
}
