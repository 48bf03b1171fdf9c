// Package trc reads and writes the tab-delimited TRC motion-capture format.
//
// A file is six header lines (file type, metadata keys, metadata values,
// marker names, axis labels and a blank line) followed by one data row per
// frame: frame number, time, then an x/y/z triplet per marker.
package trc

import (
	"errors"
	"strconv"
	"strings"

	"github.com/hybridmocap/simulator/pkg/core"
)

// HeaderLines is the number of lines copied verbatim from input to output.
const HeaderLines = 6

var (
	// ErrMalformedHeader is returned when the header cannot be interpreted.
	ErrMalformedHeader = errors.New("malformed TRC header")
	// ErrMalformedRow is returned for data rows that do not parse.
	ErrMalformedRow = errors.New("malformed TRC data row")
	// ErrFrameOutOfRange is returned for frame numbers outside [1, NumFrames].
	ErrFrameOutOfRange = errors.New("frame number out of range")
	// ErrMissingReading is returned when writing a frame that still has gaps.
	ErrMissingReading = errors.New("frame contains missing readings")
	// ErrMarkerCount is returned when a frame's width does not match the file.
	ErrMarkerCount = errors.New("marker count mismatch")
)

// Metadata holds the values from the header's key/value lines.
type Metadata struct {
	DataRate           float64
	CameraRate         float64
	NumFrames          int
	NumMarkers         int
	Units              string
	OrigDataRate       float64
	OrigDataStartFrame int
	OrigNumFrames      int
}

// File is a fully loaded TRC file.
type File struct {
	Header   []byte
	Metadata Metadata
	Markers  []string
	Frames   []core.Frame
}

// NumFrames returns the number of data rows loaded.
func (f *File) NumFrames() int {
	return len(f.Frames)
}

// MarkerNames returns the ordered marker names.
func (f *File) MarkerNames() []string {
	return f.Markers
}

// DataRate returns the sample rate in frames per second.
func (f *File) DataRate() float64 {
	return f.Metadata.DataRate
}

// Frame returns a copy of frame n, counting from 1.
func (f *File) Frame(n int) (core.Frame, error) {
	if n < 1 || n > len(f.Frames) {
		return core.Frame{}, ErrFrameOutOfRange
	}
	return f.Frames[n-1].Clone(), nil
}

// FormatFloat renders v as the shortest decimal that parses back to the same
// value, keeping a ".0" on integral values so columns stay float-typed.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
