// pkg/core/params.go
package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is returned when run parameters cannot produce a valid run.
var ErrInvalidParams = errors.New("invalid run parameters")

// DriftParams shape the sine wave added to inertial-derived readings.
type DriftParams struct {
	Amplitude     float64 `json:"amplitude"`
	Frequency     float64 `json:"frequency"`
	VerticalShift float64 `json:"verticalShift"`
}

// OcclusionParams control how marker groups are hidden from the optical stream.
type OcclusionParams struct {
	Number          int     `json:"number"`
	DurationSeconds float64 `json:"durationSeconds"`
	AvoidRepeat     bool    `json:"avoidRepeat"`
	Seed            uint64  `json:"seed"`
}

// Params are fixed for a whole run.
type Params struct {
	Drift      DriftParams     `json:"drift"`
	Occlusion  OcclusionParams `json:"occlusion"`
	SkipFactor int             `json:"skipFactor"`
	// FrameLimit caps the number of simulated frames; 0 means all frames.
	FrameLimit int `json:"frameLimit"`
}

// OpticalFPS derives the optical rate from the inertial rate.
func (p Params) OpticalFPS(inertialFPS float64) float64 {
	return inertialFPS / float64(p.SkipFactor)
}

// OcclusionTargetFrames is how many optical frames a group stays hidden.
func (p Params) OcclusionTargetFrames(inertialFPS float64) int {
	return int(math.Round(p.OpticalFPS(inertialFPS) * p.Occlusion.DurationSeconds))
}

// FrameCount resolves the number of frames to simulate from the file's count.
func (p Params) FrameCount(available int) int {
	if p.FrameLimit > 0 && p.FrameLimit < available {
		return p.FrameLimit
	}
	return available
}

// Validate checks the parameters against the loaded data set.
func (p Params) Validate(markerCount int, inertialFPS float64) error {
	if p.SkipFactor < 1 {
		return fmt.Errorf("%w: skip factor must be >= 1, got %d", ErrInvalidParams, p.SkipFactor)
	}
	if inertialFPS <= 0 {
		return fmt.Errorf("%w: data rate must be positive, got %g", ErrInvalidParams, inertialFPS)
	}
	if markerCount < 1 {
		return fmt.Errorf("%w: no markers in data set", ErrInvalidParams)
	}
	if p.Occlusion.Number <= 0 || p.Occlusion.Number > markerCount {
		return fmt.Errorf("%w: occlusion number must be in [1, %d], got %d",
			ErrInvalidParams, markerCount, p.Occlusion.Number)
	}
	if p.Occlusion.AvoidRepeat && 2*p.Occlusion.Number > markerCount {
		return fmt.Errorf("%w: avoiding repeats needs at least %d markers, have %d",
			ErrInvalidParams, 2*p.Occlusion.Number, markerCount)
	}
	if target := p.OcclusionTargetFrames(inertialFPS); target < 1 {
		return fmt.Errorf("%w: occlusion duration %gs yields %d optical frames",
			ErrInvalidParams, p.Occlusion.DurationSeconds, target)
	}
	if p.FrameLimit < 0 {
		return fmt.Errorf("%w: frame limit must not be negative, got %d", ErrInvalidParams, p.FrameLimit)
	}
	return nil
}
