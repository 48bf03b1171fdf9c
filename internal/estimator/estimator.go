// Package estimator measures how far fused output strays from ground truth
// on the axis that carries injected drift.
package estimator

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/hybridmocap/simulator/internal/drift"
	"github.com/hybridmocap/simulator/internal/trc"
	"github.com/hybridmocap/simulator/pkg/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrShapeMismatch is returned when truth and output do not line up.
	ErrShapeMismatch = errors.New("ground truth and fused output differ in shape")
	// ErrNoSamples is returned when no sampled frame had a ground-truth reading.
	ErrNoSamples = errors.New("no error samples")
)

// Source gives 1-based access to a recording.
type Source interface {
	NumFrames() int
	MarkerNames() []string
	Frame(n int) (core.Frame, error)
}

// Config describes the run being evaluated.
type Config struct {
	FrameCount  int
	MarkerCount int
	// SkipFactor selects frames 1, 1+SkipFactor, ... where the optical
	// stream had a real sample.
	SkipFactor int
}

// Result holds population statistics over every sampled error.
type Result struct {
	Mean      float64
	StdDev    float64
	Samples   int
	PerMarker []core.MarkerError
}

// CompareFile re-reads the fused output from disk and compares it with truth.
func CompareFile(truth Source, fusedPath string, cfg Config) (*Result, error) {
	fused, err := trc.Load(fusedPath)
	if err != nil {
		return nil, fmt.Errorf("reloading fused output: %w", err)
	}
	return Compare(truth, fused, cfg)
}

// Compare computes |truth.x - fused.x|, rounded to the drift precision, for
// every marker on every sampled frame where the truth reading exists.
func Compare(truth, fused Source, cfg Config) (*Result, error) {
	if err := checkShape(truth, fused, cfg); err != nil {
		return nil, err
	}

	names := truth.MarkerNames()
	perMarker := make([][]float64, cfg.MarkerCount)
	all := make([]float64, 0, (cfg.FrameCount/cfg.SkipFactor+1)*cfg.MarkerCount)

	for n := 1; n <= cfg.FrameCount; n += cfg.SkipFactor {
		want, err := truth.Frame(n)
		if err != nil {
			return nil, fmt.Errorf("ground truth frame %d: %w", n, err)
		}
		got, err := fused.Frame(n)
		if err != nil {
			return nil, fmt.Errorf("fused frame %d: %w", n, err)
		}
		if len(want.Readings) != cfg.MarkerCount || len(got.Readings) != cfg.MarkerCount {
			return nil, fmt.Errorf("%w: frame %d has %d/%d readings, want %d",
				ErrShapeMismatch, n, len(want.Readings), len(got.Readings), cfg.MarkerCount)
		}

		for m := 0; m < cfg.MarkerCount; m++ {
			if want.Readings[m].Missing {
				continue
			}
			if got.Readings[m].Missing {
				return nil, fmt.Errorf("%w: fused frame %d marker %s is missing", ErrShapeMismatch, n, names[m])
			}
			e := drift.Round(math.Abs(want.Readings[m].X - got.Readings[m].X))
			perMarker[m] = append(perMarker[m], e)
			all = append(all, e)
		}
	}

	if len(all) == 0 {
		return nil, ErrNoSamples
	}

	mean, std := stat.PopMeanStdDev(all, nil)
	result := &Result{
		Mean:      mean,
		StdDev:    std,
		Samples:   len(all),
		PerMarker: make([]core.MarkerError, cfg.MarkerCount),
	}
	for m, errs := range perMarker {
		me := core.MarkerError{Index: m, Name: names[m], Samples: len(errs)}
		if len(errs) > 0 {
			me.Mean, me.StdDev = stat.PopMeanStdDev(errs, nil)
			me.Max = floats.Max(errs)
		}
		result.PerMarker[m] = me
	}
	return result, nil
}

func checkShape(truth, fused Source, cfg Config) error {
	if cfg.SkipFactor < 1 {
		return fmt.Errorf("%w: skip factor %d", core.ErrInvalidParams, cfg.SkipFactor)
	}
	if cfg.FrameCount < 1 {
		return fmt.Errorf("%w: frame count %d", core.ErrInvalidParams, cfg.FrameCount)
	}
	if truth.NumFrames() < cfg.FrameCount {
		return fmt.Errorf("%w: ground truth has %d frames, want %d", ErrShapeMismatch, truth.NumFrames(), cfg.FrameCount)
	}
	if fused.NumFrames() < cfg.FrameCount {
		return fmt.Errorf("%w: fused output has %d frames, want %d", ErrShapeMismatch, fused.NumFrames(), cfg.FrameCount)
	}
	if len(truth.MarkerNames()) != cfg.MarkerCount {
		return fmt.Errorf("%w: ground truth has %d markers, want %d", ErrShapeMismatch, len(truth.MarkerNames()), cfg.MarkerCount)
	}
	if !slices.Equal(truth.MarkerNames(), fused.MarkerNames()) {
		return fmt.Errorf("%w: marker names differ", ErrShapeMismatch)
	}
	return nil
}
