// internal/storage/memory/memory.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hybridmocap/simulator/internal/config"
	"github.com/hybridmocap/simulator/pkg/core"
	"github.com/rs/zerolog"
)

// Backend keeps run reports in memory and exports each one to JSON
type Backend struct {
	cfg config.MemoryConfig
	log zerolog.Logger

	reports     []core.RunReport
	exportPaths []string
	mu          sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg: cfg,
		log: log,
	}
}

// Init ensures the output directory exists
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// RecordRun keeps the report and writes it to OutputDir when one is set.
func (b *Backend) RecordRun(r *core.RunReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reports = append(b.reports, *r)

	if b.cfg.OutputDir == "" {
		return nil
	}

	path := filepath.Join(b.cfg.OutputDir, fileName(r, b.cfg.CompressOutput))
	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(path, r)
	} else {
		err = writeJSON(path, r)
	}
	if err != nil {
		return err
	}

	b.exportPaths = append(b.exportPaths, path)
	b.log.Info().Str("path", path).Str("runId", r.RunID.String()).Msg("Run report exported")
	return nil
}

// Reports returns a copy of every recorded report, oldest first.
func (b *Backend) Reports() []core.RunReport {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.RunReport, len(b.reports))
	copy(out, b.reports)
	return out
}

// ExportedFilePaths returns the files written so far.
func (b *Backend) ExportedFilePaths() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.exportPaths))
	copy(out, b.exportPaths)
	return out
}

func fileName(r *core.RunReport, compress bool) string {
	name := fmt.Sprintf("run_%s_%s.json", r.StartedAt.UTC().Format("20060102_150405"), r.RunID)
	if compress {
		name += ".gz"
	}
	return name
}

func writeJSON(path string, data *core.RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data *core.RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
