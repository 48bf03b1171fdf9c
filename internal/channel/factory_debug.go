//go:build debug

package channel

// New creates a stream for pipeline stages.
// In debug builds, this returns an unbuffered stream so every handoff is a
// rendezvous and ordering mistakes show up as deadlocks.
func New[T any]() Channel[T] {
	return NewUnbuffered[T]()
}
