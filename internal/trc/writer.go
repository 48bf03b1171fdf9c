package trc

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hybridmocap/simulator/pkg/core"
)

// Writer streams frames into a temporary file next to the destination and
// renames it into place on Commit, so a failed run never leaves a
// half-written file at the output path.
type Writer struct {
	file    *os.File
	buf     *bufio.Writer
	path    string
	markers int
	rows    int
	closed  bool
}

// Create starts a new output file. header is written verbatim.
func Create(path string, header []byte, markerCount int) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp output: %w", err)
	}

	w := &Writer{
		file:    f,
		buf:     bufio.NewWriterSize(f, 256*1024),
		path:    path,
		markers: markerCount,
	}
	if _, err := w.buf.Write(header); err != nil {
		w.Abort()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return w, nil
}

// WriteFrame appends one data row. Rows are numbered from 1 in write order.
func (w *Writer) WriteFrame(f core.Frame) error {
	if w.closed {
		return errors.New("trc writer already closed")
	}
	if len(f.Readings) != w.markers {
		return fmt.Errorf("%w: frame %d has %d readings, want %d",
			ErrMarkerCount, f.Number, len(f.Readings), w.markers)
	}

	row := make([]byte, 0, 32+len(f.Readings)*36)
	row = strconv.AppendInt(row, int64(w.rows+1), 10)
	row = append(row, '\t')
	row = append(row, FormatFloat(f.Time)...)
	row = append(row, '\t')
	for i, r := range f.Readings {
		if r.Missing {
			return fmt.Errorf("%w: frame %d marker %d", ErrMissingReading, f.Number, i)
		}
		row = append(row, FormatFloat(r.X)...)
		row = append(row, '\t')
		row = append(row, FormatFloat(r.Y)...)
		row = append(row, '\t')
		row = append(row, FormatFloat(r.Z)...)
		row = append(row, '\t')
	}
	row = append(row, '\n')

	if _, err := w.buf.Write(row); err != nil {
		return fmt.Errorf("writing frame %d: %w", f.Number, err)
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (w *Writer) Rows() int {
	return w.rows
}

// Commit flushes, syncs and renames the temp file to the output path.
func (w *Writer) Commit() error {
	if w.closed {
		return errors.New("trc writer already closed")
	}
	w.closed = true

	tmp := w.file.Name()
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing output: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing output: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalizing output: %w", err)
	}
	return nil
}

// Abort discards the temp file. It is a no-op after Commit.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	tmp := w.file.Name()
	w.file.Close()
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing temp output: %w", err)
	}
	return nil
}

// WriteFile writes a complete file in one call.
func WriteFile(path string, header []byte, markerCount int, frames []core.Frame) error {
	w, err := Create(path, header, markerCount)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := w.WriteFrame(f); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Commit()
}
