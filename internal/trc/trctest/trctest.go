// Package trctest builds synthetic TRC data sets for tests.
package trctest

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/hybridmocap/simulator/internal/trc"
	"github.com/hybridmocap/simulator/pkg/core"
)

// MarkerNames returns n distinct marker names.
func MarkerNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Marker%02d", i+1)
	}
	return names
}

// Frames builds complete frames sampled at rate. Positions move smoothly
// and are rounded to 4 decimals like real exports.
func Frames(markers, count int, rate float64) []core.Frame {
	frames := make([]core.Frame, count)
	for f := range frames {
		t := float64(f) / rate
		readings := make([]core.Reading, markers)
		for m := range readings {
			readings[m] = core.NewReading(
				round4(100*float64(m)+10*math.Sin(t+float64(m))),
				round4(50+float64(m)*2.5+t),
				round4(1000-20*math.Cos(t)),
			)
		}
		frames[f] = core.Frame{Number: f + 1, Time: round4(t), Readings: readings}
	}
	return frames
}

// WriteFile writes a synthetic data set into dir and returns its path and
// the parsed file.
func WriteFile(t testing.TB, dir string, markers, count int, rate float64) (string, *trc.File) {
	t.Helper()

	names := MarkerNames(markers)
	meta := trc.Metadata{
		DataRate:           rate,
		CameraRate:         rate,
		NumFrames:          count,
		NumMarkers:         markers,
		Units:              "mm",
		OrigDataRate:       rate,
		OrigDataStartFrame: 1,
		OrigNumFrames:      count,
	}
	path := filepath.Join(dir, "input.trc")
	header := trc.NewHeader("input.trc", meta, names)
	if err := trc.WriteFile(path, header, markers, Frames(markers, count, rate)); err != nil {
		t.Fatalf("writing synthetic TRC: %v", err)
	}

	file, err := trc.Load(path)
	if err != nil {
		t.Fatalf("loading synthetic TRC: %v", err)
	}
	return path, file
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
