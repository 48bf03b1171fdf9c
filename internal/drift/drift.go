// Package drift reconstructs missing optical readings from inertial data
// with an injected sinusoidal error on the x axis.
package drift

import (
	"fmt"
	"math"

	"github.com/hybridmocap/simulator/pkg/core"
	"gonum.org/v1/gonum/floats/scalar"
)

// Precision is the number of decimal places drifted values are rounded to.
// The output file and the error estimator both depend on it.
const Precision = 4

// Injector fills gaps in a frame from the matching inertial frame.
type Injector struct {
	params   core.DriftParams
	registry *core.Registry
}

// New creates an injector. registry may be nil when marker bookkeeping is
// not needed.
func New(params core.DriftParams, registry *core.Registry) *Injector {
	return &Injector{params: params, registry: registry}
}

// Offset is the drift added at inertial time t.
func (inj *Injector) Offset(t float64) float64 {
	return inj.params.Amplitude*math.Sin(2*math.Pi*inj.params.Frequency*t) + inj.params.VerticalShift
}

// Apply returns reading with drift added on x for time t. y and z are kept.
func (inj *Injector) Apply(reading core.Reading, t float64) core.Reading {
	p := inj.params
	x := reading.X + p.Amplitude*math.Sin(2*math.Pi*p.Frequency*t) + p.VerticalShift
	return core.NewReading(Round(x), reading.Y, reading.Z)
}

// Fill replaces every missing reading in target with the drifted inertial
// reading at the same index. Present readings are left as they are. It
// returns how many readings were filled.
func (inj *Injector) Fill(target *core.Frame, inertial core.Frame) (int, error) {
	if len(target.Readings) != len(inertial.Readings) {
		return 0, fmt.Errorf("frame %d: target has %d readings, inertial has %d",
			target.Number, len(target.Readings), len(inertial.Readings))
	}

	filled := 0
	for i, r := range target.Readings {
		if !r.Missing {
			if inj.registry != nil {
				inj.registry.MarkOptical(i)
			}
			continue
		}
		src := inertial.Readings[i]
		if src.Missing {
			return filled, fmt.Errorf("frame %d marker %d: inertial reading missing", inertial.Number, i)
		}
		target.Readings[i] = inj.Apply(src, inertial.Time)
		if inj.registry != nil {
			inj.registry.MarkInertial(i)
		}
		filled++
	}
	return filled, nil
}

// Round rounds half to even at Precision decimal places.
func Round(v float64) float64 {
	return scalar.RoundEven(v, Precision)
}
