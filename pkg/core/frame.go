// pkg/core/frame.go
package core

// Reading is one marker position in a frame. Missing marks a reading that
// has no observed value (occluded, or absent from the source).
type Reading struct {
	X       float64
	Y       float64
	Z       float64
	Missing bool
}

// MissingReading returns the sentinel used for readings with no value.
func MissingReading() Reading {
	return Reading{Missing: true}
}

// NewReading builds a present reading.
func NewReading(x, y, z float64) Reading {
	return Reading{X: x, Y: y, Z: z}
}

// Frame is one sampled instant. The position of a reading in Readings is
// the marker's identity for the whole run.
type Frame struct {
	Number   int
	Time     float64
	Readings []Reading
}

// Clone returns a deep copy so stages can mutate readings independently.
func (f Frame) Clone() Frame {
	readings := make([]Reading, len(f.Readings))
	copy(readings, f.Readings)
	return Frame{
		Number:   f.Number,
		Time:     f.Time,
		Readings: readings,
	}
}

// Empty returns a frame with the same number and time and every reading missing.
func (f Frame) Empty() Frame {
	readings := make([]Reading, len(f.Readings))
	for i := range readings {
		readings[i] = MissingReading()
	}
	return Frame{
		Number:   f.Number,
		Time:     f.Time,
		Readings: readings,
	}
}

// MissingCount returns the number of missing readings.
func (f Frame) MissingCount() int {
	n := 0
	for _, r := range f.Readings {
		if r.Missing {
			n++
		}
	}
	return n
}
