// Package fuser interleaves the inertial and optical streams into one
// fully populated frame per inertial tick.
package fuser

import (
	"context"
	"errors"
	"fmt"

	"github.com/hybridmocap/simulator/internal/channel"
	"github.com/hybridmocap/simulator/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrStarved is returned when an input stream closes before FrameCount
// frames have been fused.
var ErrStarved = errors.New("input stream closed early")

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Occluder hides markers in an optical frame.
type Occluder interface {
	Apply(frame *core.Frame) error
}

// Filler reconstructs missing readings from an inertial frame.
type Filler interface {
	Fill(target *core.Frame, inertial core.Frame) (int, error)
}

// Config fixes the cadence and length of a run.
type Config struct {
	// SkipFactor is the number of inertial ticks per optical frame.
	SkipFactor int
	// FrameCount is the number of fused frames to produce.
	FrameCount int
}

// Stats counts what happened during Run.
type Stats struct {
	Fused        int
	OpticalTicks int
	Filled       int
}

// Fuser runs the per-tick state machine. A Fuser is single use.
type Fuser struct {
	cfg      Config
	occluder Occluder
	filler   Filler
	logger   Logger
	stats    Stats

	// OTEL metrics
	fused  metric.Int64Counter
	filled metric.Int64Counter
}

// New creates a Fuser.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(cfg Config, occluder Occluder, filler Filler, logger Logger) (*Fuser, error) {
	if cfg.SkipFactor < 1 {
		return nil, fmt.Errorf("%w: skip factor %d", core.ErrInvalidParams, cfg.SkipFactor)
	}
	if cfg.FrameCount < 0 {
		return nil, fmt.Errorf("%w: frame count %d", core.ErrInvalidParams, cfg.FrameCount)
	}

	f := &Fuser{
		cfg:      cfg,
		occluder: occluder,
		filler:   filler,
		logger:   logger,
	}

	m := meter()
	var err error

	f.fused, err = m.Int64Counter(
		"fuser.frames.fused",
		metric.WithDescription("Fused frames emitted, by source"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fused counter: %w", err)
	}

	f.filled, err = m.Int64Counter(
		"fuser.readings.filled",
		metric.WithDescription("Readings reconstructed from inertial data"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating filled counter: %w", err)
	}

	return f, nil
}

// Run consumes inertial and optical frames and sends exactly FrameCount
// fused frames to out. On ticks where tick%SkipFactor == 0 it takes one
// frame from each input, occludes the optical frame and fills its gaps;
// on other ticks it fills an empty frame from inertial data alone.
//
// The inputs are paired by position; Run does not check their timestamps.
// It does not close out.
func (f *Fuser) Run(
	ctx context.Context,
	inertial channel.Receiver[core.Frame],
	optical channel.Receiver[core.Frame],
	out channel.Sender[core.Frame],
) error {
	opticalAttr := metric.WithAttributes(attribute.String("source", "optical"))
	inertialAttr := metric.WithAttributes(attribute.String("source", "inertial"))

	cycle := 0
	for tick := 0; tick < f.cfg.FrameCount; tick++ {
		inertFrame, err := receive(ctx, inertial, "inertial", tick)
		if err != nil {
			return err
		}

		var fused core.Frame
		attr := inertialAttr
		if cycle == 0 {
			fused, err = receive(ctx, optical, "optical", tick)
			if err != nil {
				return err
			}
			if err := f.occluder.Apply(&fused); err != nil {
				return fmt.Errorf("occluding tick %d: %w", tick, err)
			}
			f.stats.OpticalTicks++
			attr = opticalAttr
		} else {
			fused = inertFrame.Empty()
		}

		n, err := f.filler.Fill(&fused, inertFrame)
		if err != nil {
			return fmt.Errorf("filling tick %d: %w", tick, err)
		}
		f.stats.Filled += n
		f.filled.Add(ctx, int64(n))

		if err := out.SendContext(ctx, fused); err != nil {
			return err
		}
		f.stats.Fused++
		f.fused.Add(ctx, 1, attr)

		cycle = (cycle + 1) % f.cfg.SkipFactor
	}

	f.logger.Debug("fuser finished",
		"frames", f.stats.Fused,
		"opticalTicks", f.stats.OpticalTicks,
		"filled", f.stats.Filled)
	return nil
}

// Stats returns the counters accumulated by Run.
func (f *Fuser) Stats() Stats {
	return f.stats
}

func receive(ctx context.Context, r channel.Receiver[core.Frame], name string, tick int) (core.Frame, error) {
	select {
	case frame, ok := <-r.Receive():
		if !ok {
			return core.Frame{}, fmt.Errorf("%w: %s stream at tick %d", ErrStarved, name, tick)
		}
		return frame, nil
	case <-ctx.Done():
		return core.Frame{}, ctx.Err()
	}
}
