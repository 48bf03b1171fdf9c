//go:build !debug

package channel

// New creates a stream for pipeline stages.
// In production builds, this returns an unbounded stream so producers never wait.
func New[T any]() Channel[T] {
	return NewUnbounded[T]()
}
