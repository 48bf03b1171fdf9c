// internal/storage/storage.go
package storage

import "github.com/hybridmocap/simulator/pkg/core"

// Backend is the interface all results stores must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordRun persists one completed run with its per-marker errors.
	RecordRun(r *core.RunReport) error
}

// Exportable is an optional interface for backends that write each run to
// a file.
type Exportable interface {
	ExportedFilePaths() []string
}
