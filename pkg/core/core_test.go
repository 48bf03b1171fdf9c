package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_CloneIsIndependent(t *testing.T) {
	f := Frame{Number: 1, Time: 0.5, Readings: []Reading{NewReading(1, 2, 3)}}
	c := f.Clone()
	c.Readings[0] = MissingReading()

	assert.False(t, f.Readings[0].Missing)
	assert.True(t, c.Readings[0].Missing)
	assert.Equal(t, f.Time, c.Time)
}

func TestFrame_Empty(t *testing.T) {
	f := Frame{Number: 3, Time: 1.25, Readings: []Reading{NewReading(1, 2, 3), NewReading(4, 5, 6)}}
	e := f.Empty()

	assert.Equal(t, 3, e.Number)
	assert.Equal(t, 1.25, e.Time)
	assert.Equal(t, 2, e.MissingCount())
	assert.Equal(t, 0, f.MissingCount())
}

func TestMarkerIndex_Lookup(t *testing.T) {
	idx, err := NewMarkerIndex([]string{"Root", "TopHead", "RtToe"})
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, "TopHead", idx.Name(1))
	i, ok := idx.Index("RtToe")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = idx.Index("LtToe")
	assert.False(t, ok)
}

func TestMarkerIndex_Rejects(t *testing.T) {
	_, err := NewMarkerIndex([]string{"Root", "Root"})
	assert.ErrorIs(t, err, ErrDuplicateMarker)

	_, err = NewMarkerIndex([]string{"Root", ""})
	assert.ErrorIs(t, err, ErrEmptyMarkerName)
}

func TestRegistry_Counters(t *testing.T) {
	idx, err := NewMarkerIndex([]string{"a", "b", "c"})
	require.NoError(t, err)
	r := NewRegistry(idx)

	r.MarkOccluded(0)
	r.MarkOccluded(2)
	r.MarkOccluded(2)
	r.MarkInertial(1)
	r.MarkInertial(1)

	assert.Equal(t, []int{0, 2}, r.Occluded())
	assert.Equal(t, 2, r.State(2).OccludedFrameCount)
	assert.Equal(t, 2, r.State(1).ConsecutiveInertialCount)
	assert.Equal(t, "b", r.State(1).Name)

	r.MarkOptical(1)
	assert.Equal(t, 0, r.State(1).ConsecutiveInertialCount)

	r.Reset()
	assert.Empty(t, r.Occluded())
	for _, s := range r.States() {
		assert.Zero(t, s.OccludedFrameCount)
		assert.Zero(t, s.ConsecutiveInertialCount)
	}
}

func TestParams_OcclusionTargetFrames(t *testing.T) {
	p := Params{SkipFactor: 4, Occlusion: OcclusionParams{DurationSeconds: 10}}
	assert.Equal(t, 30.0, p.OpticalFPS(120))
	assert.Equal(t, 300, p.OcclusionTargetFrames(120))

	p.Occlusion.DurationSeconds = 0.05
	assert.Equal(t, 2, p.OcclusionTargetFrames(120))
}

func TestParams_FrameCount(t *testing.T) {
	p := Params{}
	assert.Equal(t, 100, p.FrameCount(100))
	p.FrameLimit = 40
	assert.Equal(t, 40, p.FrameCount(100))
	p.FrameLimit = 400
	assert.Equal(t, 100, p.FrameCount(100))
}

func TestParams_Validate(t *testing.T) {
	valid := Params{
		SkipFactor: 4,
		Occlusion:  OcclusionParams{Number: 3, DurationSeconds: 1},
	}
	require.NoError(t, valid.Validate(10, 120))

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero skip factor", func(p *Params) { p.SkipFactor = 0 }},
		{"zero occlusion number", func(p *Params) { p.Occlusion.Number = 0 }},
		{"occlusion exceeds markers", func(p *Params) { p.Occlusion.Number = 11 }},
		{"zero duration", func(p *Params) { p.Occlusion.DurationSeconds = 0 }},
		{"negative duration", func(p *Params) { p.Occlusion.DurationSeconds = -1 }},
		{"duration rounds to zero frames", func(p *Params) { p.Occlusion.DurationSeconds = 0.01 }},
		{"avoid repeat without room", func(p *Params) { p.Occlusion.Number = 6; p.Occlusion.AvoidRepeat = true }},
		{"negative frame limit", func(p *Params) { p.FrameLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate(10, 120)
			assert.True(t, errors.Is(err, ErrInvalidParams), "got %v", err)
		})
	}

	assert.ErrorIs(t, valid.Validate(0, 120), ErrInvalidParams)
	assert.ErrorIs(t, valid.Validate(10, 0), ErrInvalidParams)
}
