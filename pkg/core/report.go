// pkg/core/report.go
package core

import (
	"time"

	"github.com/google/uuid"
)

// MarkerError summarizes the x-axis reconstruction error of one marker.
type MarkerError struct {
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stdDev"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// RunReport is everything recorded about one simulation run.
type RunReport struct {
	RunID        uuid.UUID     `json:"runId"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
	InputPath    string        `json:"inputPath"`
	OutputPath   string        `json:"outputPath"`
	Params       Params        `json:"params"`
	DataRate     float64       `json:"dataRate"`
	FrameCount   int           `json:"frameCount"`
	MarkerCount  int           `json:"markerCount"`
	OpticalTicks int           `json:"opticalTicks"`
	Rotations    int           `json:"rotations"`
	FilledCount  int           `json:"filledCount"`
	Mean         float64       `json:"mean"`
	StdDev       float64       `json:"stdDev"`
	Samples      int           `json:"samples"`
	PerMarker    []MarkerError `json:"perMarker"`
}
