// Package channel provides the typed point-to-point streams that connect
// the simulation stages.
package channel

import "context"

// Receiver provides read access to a stream.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a stream.
type Sender[T any] interface {
	Send(T)
	SendContext(ctx context.Context, v T) error
}

// Channel combines read and write access. The single producer closes it
// after its last send; the consumer sees the receive channel close once
// everything sent has been delivered.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
