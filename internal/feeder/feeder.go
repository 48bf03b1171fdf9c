// Package feeder replays a loaded recording as an inertial stream and a
// decimated optical stream.
package feeder

import (
	"context"
	"fmt"

	"github.com/hybridmocap/simulator/internal/channel"
	"github.com/hybridmocap/simulator/pkg/core"
)

// Source gives 1-based access to recorded frames.
type Source interface {
	NumFrames() int
	Frame(n int) (core.Frame, error)
}

// Config fixes how many frames are replayed and how often an optical
// frame accompanies an inertial one.
type Config struct {
	SkipFactor int
	FrameCount int
}

// Run sends FrameCount frames to inertial and every SkipFactor-th frame,
// starting with the first, to optical. Each stream gets its own copy of a
// frame. Frames are sent as fast as the streams accept them.
// Run does not close the streams.
func Run(ctx context.Context, src Source, cfg Config, inertial, optical channel.Sender[core.Frame]) error {
	if cfg.SkipFactor < 1 {
		return fmt.Errorf("%w: skip factor %d", core.ErrInvalidParams, cfg.SkipFactor)
	}
	if cfg.FrameCount > src.NumFrames() {
		return fmt.Errorf("%w: %d frames requested, source has %d",
			core.ErrInvalidParams, cfg.FrameCount, src.NumFrames())
	}

	for i := 0; i < cfg.FrameCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := src.Frame(i + 1)
		if err != nil {
			return fmt.Errorf("reading frame %d: %w", i+1, err)
		}

		if err := inertial.SendContext(ctx, frame.Clone()); err != nil {
			return err
		}
		if i%cfg.SkipFactor == 0 {
			if err := optical.SendContext(ctx, frame.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}
