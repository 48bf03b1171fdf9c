// Package pipeline wires the producer, fuser and writer together over
// streams and runs them concurrently.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/hybridmocap/simulator/internal/channel"
	"github.com/hybridmocap/simulator/internal/drift"
	"github.com/hybridmocap/simulator/internal/feeder"
	"github.com/hybridmocap/simulator/internal/fuser"
	"github.com/hybridmocap/simulator/internal/occlusion"
	"github.com/hybridmocap/simulator/internal/trc"
	"github.com/hybridmocap/simulator/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// Config holds everything a run needs besides the input recording.
type Config struct {
	Params     core.Params
	OutputPath string
}

// Result describes a completed run.
type Result struct {
	FrameCount   int
	MarkerCount  int
	OpticalTicks int
	Filled       int
	Rotations    int
	Rows         int
	Elapsed      time.Duration
	MarkerStates []core.MarkerState
}

// Run simulates the hybrid rig over the input recording and writes the
// fused frames to cfg.OutputPath. Parameters are validated before any
// goroutine starts. The output file only appears if every stage succeeds.
func Run(ctx context.Context, in *trc.File, cfg Config, logger *slog.Logger) (*Result, error) {
	start := time.Now()
	params := cfg.Params

	index, err := core.NewMarkerIndex(in.MarkerNames())
	if err != nil {
		return nil, fmt.Errorf("building marker index: %w", err)
	}
	if err := params.Validate(index.Len(), in.DataRate()); err != nil {
		return nil, err
	}
	frameCount := params.FrameCount(in.NumFrames())

	registry := core.NewRegistry(index)
	rng := rand.New(rand.NewPCG(params.Occlusion.Seed, params.Occlusion.Seed^0x9e3779b97f4a7c15))
	scheduler, err := occlusion.NewScheduler(occlusion.Config{
		Number:       params.Occlusion.Number,
		TargetFrames: params.OcclusionTargetFrames(in.DataRate()),
		AvoidRepeat:  params.Occlusion.AvoidRepeat,
	}, registry, rng)
	if err != nil {
		return nil, err
	}
	injector := drift.New(params.Drift, registry)

	fz, err := fuser.New(fuser.Config{
		SkipFactor: params.SkipFactor,
		FrameCount: frameCount,
	}, scheduler, injector, logger)
	if err != nil {
		return nil, err
	}

	header := in.Header
	if frameCount < in.NumFrames() {
		if header, err = trc.WithNumFrames(header, frameCount); err != nil {
			return nil, err
		}
	}

	writer, err := trc.Create(cfg.OutputPath, header, index.Len())
	if err != nil {
		return nil, err
	}

	inertial := channel.New[core.Frame]()
	optical := channel.New[core.Frame]()
	fused := channel.New[core.Frame]()

	unregister, err := observeBacklog(map[string]channel.Receiver[core.Frame]{
		"inertial": inertial,
		"optical":  optical,
		"fused":    fused,
	})
	if err != nil {
		writer.Abort()
		return nil, err
	}
	defer unregister()

	logger.Info("pipeline started",
		"frames", frameCount,
		"markers", index.Len(),
		"skipFactor", params.SkipFactor,
		"occlusionFrames", params.OcclusionTargetFrames(in.DataRate()),
		"output", cfg.OutputPath)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer optical.Close()
		defer inertial.Close()
		if err := feeder.Run(gctx, in, feeder.Config{
			SkipFactor: params.SkipFactor,
			FrameCount: frameCount,
		}, inertial, optical); err != nil {
			return fmt.Errorf("producer: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer fused.Close()
		if err := fz.Run(gctx, inertial, optical, fused); err != nil {
			return fmt.Errorf("fuser: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := writeAll(gctx, writer, fused); err != nil {
			return fmt.Errorf("writer: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		// A stage may report starvation after the producer stopped early.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		discard(inertial, optical, fused)
		writer.Abort()
		logger.Error("pipeline failed", "error", err)
		return nil, err
	}

	if writer.Rows() != frameCount {
		writer.Abort()
		return nil, fmt.Errorf("%w: wrote %d rows, expected %d", fuser.ErrStarved, writer.Rows(), frameCount)
	}
	if err := writer.Commit(); err != nil {
		return nil, err
	}

	stats := fz.Stats()
	res := &Result{
		FrameCount:   frameCount,
		MarkerCount:  index.Len(),
		OpticalTicks: stats.OpticalTicks,
		Filled:       stats.Filled,
		Rotations:    scheduler.Rotations(),
		Rows:         writer.Rows(),
		Elapsed:      time.Since(start),
		MarkerStates: registry.States(),
	}

	logger.Info("pipeline finished",
		"rows", res.Rows,
		"opticalTicks", res.OpticalTicks,
		"filled", res.Filled,
		"rotations", res.Rotations,
		"duration", res.Elapsed)
	return res, nil
}

// writeAll consumes the fused stream until it is closed.
func writeAll(ctx context.Context, w *trc.Writer, fused channel.Receiver[core.Frame]) error {
	for {
		select {
		case frame, ok := <-fused.Receive():
			if !ok {
				return nil
			}
			if err := w.WriteFrame(frame); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// discard drains closed streams so their pumps can exit after a failure.
func discard(streams ...channel.Receiver[core.Frame]) {
	for _, s := range streams {
		go func(r channel.Receiver[core.Frame]) {
			for range r.Receive() {
			}
		}(s)
	}
}

// observeBacklog reports each stream's queued length through an OTel gauge.
func observeBacklog(streams map[string]channel.Receiver[core.Frame]) (func(), error) {
	m := meter()

	backlog, err := m.Int64ObservableGauge(
		"pipeline.stream.backlog",
		metric.WithDescription("Frames queued in each stream"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating backlog gauge: %w", err)
	}

	reg, err := m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			for name, s := range streams {
				o.ObserveInt64(backlog, int64(s.Len()),
					metric.WithAttributes(attribute.String("stream", name)))
			}
			return nil
		},
		backlog,
	)
	if err != nil {
		return nil, fmt.Errorf("registering backlog callback: %w", err)
	}

	return func() { _ = reg.Unregister() }, nil
}
