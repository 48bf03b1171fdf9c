// pkg/core/marker.go
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateMarker is returned when a marker name appears twice.
	ErrDuplicateMarker = errors.New("duplicate marker name")
	// ErrEmptyMarkerName is returned for blank marker names.
	ErrEmptyMarkerName = errors.New("empty marker name")
)

// MarkerIndex is the bidirectional marker name <-> reading index lookup,
// built once from the input file's marker list.
type MarkerIndex struct {
	names  []string
	byName map[string]int
}

// NewMarkerIndex builds the lookup from an ordered list of marker names.
func NewMarkerIndex(names []string) (*MarkerIndex, error) {
	idx := &MarkerIndex{
		names:  make([]string, len(names)),
		byName: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("marker %d: %w", i, ErrEmptyMarkerName)
		}
		if _, ok := idx.byName[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMarker, name)
		}
		idx.names[i] = name
		idx.byName[name] = i
	}
	return idx, nil
}

// Len returns the number of markers.
func (m *MarkerIndex) Len() int {
	return len(m.names)
}

// Name returns the marker name at index i.
func (m *MarkerIndex) Name(i int) string {
	return m.names[i]
}

// Index returns the reading index for a marker name.
func (m *MarkerIndex) Index(name string) (int, bool) {
	i, ok := m.byName[name]
	return i, ok
}

// Names returns a copy of the ordered marker names.
func (m *MarkerIndex) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// MarkerState is the per-marker bookkeeping kept for the whole run.
type MarkerState struct {
	Name string
	// ConsecutiveInertialCount counts back-to-back readings reconstructed
	// from inertial data. Tracked only; drift does not accumulate from it.
	ConsecutiveInertialCount int
	OccludedFrameCount       int
}

// Registry owns one MarkerState per marker. It is not safe for concurrent
// use and lives inside the fuser goroutine.
type Registry struct {
	index  *MarkerIndex
	states []MarkerState
}

// NewRegistry creates zeroed state for every marker in the index.
func NewRegistry(index *MarkerIndex) *Registry {
	states := make([]MarkerState, index.Len())
	for i := range states {
		states[i] = MarkerState{Name: index.Name(i)}
	}
	return &Registry{index: index, states: states}
}

// Index returns the marker lookup the registry was built from.
func (r *Registry) Index() *MarkerIndex {
	return r.index
}

// Len returns the number of markers.
func (r *Registry) Len() int {
	return len(r.states)
}

// State returns a copy of marker i's state.
func (r *Registry) State(i int) MarkerState {
	return r.states[i]
}

// States returns a copy of all marker states.
func (r *Registry) States() []MarkerState {
	out := make([]MarkerState, len(r.states))
	copy(out, r.states)
	return out
}

// MarkOccluded increments marker i's occluded frame count.
func (r *Registry) MarkOccluded(i int) {
	r.states[i].OccludedFrameCount++
}

// MarkInertial increments marker i's consecutive inertial count.
func (r *Registry) MarkInertial(i int) {
	r.states[i].ConsecutiveInertialCount++
}

// MarkOptical resets marker i's consecutive inertial count.
func (r *Registry) MarkOptical(i int) {
	r.states[i].ConsecutiveInertialCount = 0
}

// Reset zeroes both counters on every marker.
func (r *Registry) Reset() {
	for i := range r.states {
		r.states[i].ConsecutiveInertialCount = 0
		r.states[i].OccludedFrameCount = 0
	}
}

// Occluded returns the indices of markers with a nonzero occluded frame count.
func (r *Registry) Occluded() []int {
	var out []int
	for i, s := range r.states {
		if s.OccludedFrameCount != 0 {
			out = append(out, i)
		}
	}
	return out
}
