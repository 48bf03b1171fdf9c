package fuser

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/hybridmocap/simulator/internal/channel"
	"github.com/hybridmocap/simulator/internal/drift"
	"github.com/hybridmocap/simulator/internal/occlusion"
	"github.com/hybridmocap/simulator/internal/trc/trctest"
	"github.com/hybridmocap/simulator/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

// recordingOccluder hides nothing and remembers which frames it saw.
type recordingOccluder struct {
	seen []int
}

func (o *recordingOccluder) Apply(frame *core.Frame) error {
	o.seen = append(o.seen, frame.Number)
	return nil
}

var testDrift = core.DriftParams{Amplitude: 89.2, Frequency: 0.9, VerticalShift: 89.2}

// feed preloads buffered streams the way the producer would.
func feed(frames []core.Frame, skip int) (*channel.Buffered[core.Frame], *channel.Buffered[core.Frame]) {
	inertial := channel.NewBuffered[core.Frame](len(frames))
	optical := channel.NewBuffered[core.Frame](len(frames))
	for i, f := range frames {
		inertial.Send(f.Clone())
		if i%skip == 0 {
			optical.Send(f.Clone())
		}
	}
	return inertial, optical
}

func drain(out *channel.Buffered[core.Frame]) []core.Frame {
	var frames []core.Frame
	for out.Len() > 0 {
		frames = append(frames, <-out.Receive())
	}
	return frames
}

func TestRun_Cadence(t *testing.T) {
	frames := trctest.Frames(3, 8, 120)
	inertial, optical := feed(frames, 4)
	// one extra optical frame that must not be consumed
	optical.Send(frames[0].Clone())

	occ := &recordingOccluder{}
	f, err := New(Config{SkipFactor: 4, FrameCount: 8}, occ, drift.New(testDrift, nil), &testLogger{})
	require.NoError(t, err)

	out := channel.NewBuffered[core.Frame](8)
	require.NoError(t, f.Run(context.Background(), inertial, optical, out))

	assert.Equal(t, []int{1, 5}, occ.seen, "optical consumed on ticks 0 and 4")
	assert.Equal(t, 1, optical.Len())
	assert.Equal(t, 0, inertial.Len())

	stats := f.Stats()
	assert.Equal(t, 8, stats.Fused)
	assert.Equal(t, 2, stats.OpticalTicks)
	assert.Equal(t, 6*3, stats.Filled, "six inertial-only ticks, three markers each")

	fused := drain(out)
	require.Len(t, fused, 8)
	inj := drift.New(testDrift, nil)
	for i, fr := range fused {
		assert.Equal(t, frames[i].Time, fr.Time, "order preserved")
		assert.Zero(t, fr.MissingCount())
		for m, r := range fr.Readings {
			if i%4 == 0 {
				assert.Equal(t, frames[i].Readings[m], r, "optical reading passes through")
			} else {
				assert.Equal(t, inj.Apply(frames[i].Readings[m], frames[i].Time), r)
			}
		}
	}
}

func TestRun_OccludedReadingsAreDrifted(t *testing.T) {
	const markers = 10
	frames := trctest.Frames(markers, 20, 120)
	inertial, optical := feed(frames, 4)

	idx, err := core.NewMarkerIndex(trctest.MarkerNames(markers))
	require.NoError(t, err)
	reg := core.NewRegistry(idx)
	sched, err := occlusion.NewScheduler(occlusion.Config{Number: 3, TargetFrames: 2}, reg, rand.New(rand.NewPCG(5, 5)))
	require.NoError(t, err)
	inj := drift.New(testDrift, reg)

	f, err := New(Config{SkipFactor: 4, FrameCount: 20}, sched, inj, &testLogger{})
	require.NoError(t, err)

	out := channel.NewBuffered[core.Frame](20)
	require.NoError(t, f.Run(context.Background(), inertial, optical, out))

	fused := drain(out)
	require.Len(t, fused, 20)
	for i := 0; i < 20; i += 4 {
		var drifted, passed int
		for m, r := range fused[i].Readings {
			switch r {
			case frames[i].Readings[m]:
				passed++
			case inj.Apply(frames[i].Readings[m], frames[i].Time):
				drifted++
			default:
				t.Fatalf("tick %d marker %d: unexpected reading %+v", i, m, r)
			}
		}
		assert.Equal(t, 3, drifted, "tick %d", i)
		assert.Equal(t, markers-3, passed, "tick %d", i)
	}
	assert.Equal(t, 2, sched.Rotations(), "five optical ticks with groups of two frames")
}

func TestRun_FillsPreExistingOpticalGaps(t *testing.T) {
	frames := trctest.Frames(2, 4, 120)
	inertial := channel.NewBuffered[core.Frame](4)
	optical := channel.NewBuffered[core.Frame](1)
	for _, fr := range frames {
		inertial.Send(fr.Clone())
	}
	gappy := frames[0].Clone()
	gappy.Readings[1] = core.MissingReading()
	optical.Send(gappy)

	f, err := New(Config{SkipFactor: 4, FrameCount: 4}, &recordingOccluder{}, drift.New(testDrift, nil), &testLogger{})
	require.NoError(t, err)
	out := channel.NewBuffered[core.Frame](4)
	require.NoError(t, f.Run(context.Background(), inertial, optical, out))

	first := <-out.Receive()
	assert.Equal(t, frames[0].Readings[0], first.Readings[0])
	assert.Equal(t, drift.New(testDrift, nil).Apply(frames[0].Readings[1], frames[0].Time), first.Readings[1])
}

func TestRun_Starved(t *testing.T) {
	frames := trctest.Frames(2, 3, 120)
	inertial, optical := feed(frames, 4)
	inertial.Close()
	optical.Close()

	f, err := New(Config{SkipFactor: 4, FrameCount: 5}, &recordingOccluder{}, drift.New(testDrift, nil), &testLogger{})
	require.NoError(t, err)

	out := channel.NewBuffered[core.Frame](5)
	err = f.Run(context.Background(), inertial, optical, out)
	assert.ErrorIs(t, err, ErrStarved)
	assert.Contains(t, err.Error(), "inertial")
	assert.Equal(t, 3, f.Stats().Fused)
}

func TestRun_OpticalStarved(t *testing.T) {
	frames := trctest.Frames(2, 8, 120)
	inertial := channel.NewBuffered[core.Frame](8)
	optical := channel.NewBuffered[core.Frame](1)
	for _, fr := range frames {
		inertial.Send(fr.Clone())
	}
	optical.Send(frames[0].Clone())
	optical.Close()

	f, err := New(Config{SkipFactor: 4, FrameCount: 8}, &recordingOccluder{}, drift.New(testDrift, nil), &testLogger{})
	require.NoError(t, err)

	out := channel.NewBuffered[core.Frame](8)
	err = f.Run(context.Background(), inertial, optical, out)
	assert.ErrorIs(t, err, ErrStarved)
	assert.Contains(t, err.Error(), "optical stream at tick 4")
}

func TestRun_ContextCancelled(t *testing.T) {
	inertial := channel.NewUnbuffered[core.Frame]()
	optical := channel.NewUnbuffered[core.Frame]()

	f, err := New(Config{SkipFactor: 4, FrameCount: 4}, &recordingOccluder{}, drift.New(testDrift, nil), &testLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = f.Run(ctx, inertial, optical, channel.NewBuffered[core.Frame](4))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_SkipFactorOne(t *testing.T) {
	frames := trctest.Frames(2, 5, 120)
	inertial, optical := feed(frames, 1)

	occ := &recordingOccluder{}
	f, err := New(Config{SkipFactor: 1, FrameCount: 5}, occ, drift.New(testDrift, nil), &testLogger{})
	require.NoError(t, err)

	out := channel.NewBuffered[core.Frame](5)
	require.NoError(t, f.Run(context.Background(), inertial, optical, out))
	assert.Len(t, occ.seen, 5)
	assert.Equal(t, 0, f.Stats().Filled)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{SkipFactor: 0, FrameCount: 1}, &recordingOccluder{}, drift.New(testDrift, nil), &testLogger{})
	assert.ErrorIs(t, err, core.ErrInvalidParams)

	_, err = New(Config{SkipFactor: 4, FrameCount: -1}, &recordingOccluder{}, drift.New(testDrift, nil), &testLogger{})
	assert.ErrorIs(t, err, core.ErrInvalidParams)
}
