// Package occlusion hides rotating groups of markers from optical frames.
package occlusion

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/hybridmocap/simulator/pkg/core"
)

// Config controls group size, lifetime and selection policy.
type Config struct {
	// Number of markers hidden at a time.
	Number int
	// TargetFrames is how many consecutive optical frames a group stays hidden.
	TargetFrames int
	// AvoidRepeat draws each new group only from markers outside the
	// previous group.
	AvoidRepeat bool
}

// Group is the set of markers currently hidden and how long it has been.
type Group struct {
	Members       []int
	FramesElapsed int
}

// Scheduler owns the active group. It is not safe for concurrent use.
type Scheduler struct {
	cfg      Config
	registry *core.Registry
	rng      *rand.Rand

	active    *Group
	previous  []int
	rotations int
}

// NewScheduler validates cfg against the registry's marker count.
func NewScheduler(cfg Config, registry *core.Registry, rng *rand.Rand) (*Scheduler, error) {
	n := registry.Len()
	if cfg.Number <= 0 || cfg.Number > n {
		return nil, fmt.Errorf("%w: occlusion number %d not in [1, %d]", core.ErrInvalidParams, cfg.Number, n)
	}
	if cfg.TargetFrames < 1 {
		return nil, fmt.Errorf("%w: occlusion target of %d frames", core.ErrInvalidParams, cfg.TargetFrames)
	}
	if cfg.AvoidRepeat && 2*cfg.Number > n {
		return nil, fmt.Errorf("%w: cannot avoid repeats with %d of %d markers", core.ErrInvalidParams, cfg.Number, n)
	}
	return &Scheduler{
		cfg:      cfg,
		registry: registry,
		rng:      rng,
	}, nil
}

// Apply hides the active group in frame, rotating to a new random group
// first when the current one has reached its target. The new group is
// hidden in the same frame the old one is released.
func (s *Scheduler) Apply(frame *core.Frame) error {
	if len(frame.Readings) != s.registry.Len() {
		return fmt.Errorf("frame %d: %d readings for %d markers", frame.Number, len(frame.Readings), s.registry.Len())
	}

	if s.active != nil && s.active.FramesElapsed >= s.cfg.TargetFrames {
		s.registry.Reset()
		s.previous = s.active.Members
		s.active = nil
		s.rotations++
	}
	if s.active == nil {
		s.active = &Group{Members: s.draw()}
	}

	for _, m := range s.active.Members {
		s.registry.MarkOccluded(m)
		frame.Readings[m] = core.MissingReading()
	}
	s.active.FramesElapsed++
	return nil
}

// Active returns a copy of the active group, if any.
func (s *Scheduler) Active() (Group, bool) {
	if s.active == nil {
		return Group{}, false
	}
	return Group{
		Members:       slices.Clone(s.active.Members),
		FramesElapsed: s.active.FramesElapsed,
	}, true
}

// Rotations returns how many groups have run their full course.
func (s *Scheduler) Rotations() int {
	return s.rotations
}

// draw picks Number distinct markers by shuffling the candidates and
// taking a prefix.
func (s *Scheduler) draw() []int {
	var candidates []int
	if s.cfg.AvoidRepeat && len(s.previous) > 0 {
		candidates = make([]int, 0, s.registry.Len()-len(s.previous))
		for i := 0; i < s.registry.Len(); i++ {
			if !slices.Contains(s.previous, i) {
				candidates = append(candidates, i)
			}
		}
		s.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	} else {
		candidates = s.rng.Perm(s.registry.Len())
	}

	members := candidates[:s.cfg.Number:s.cfg.Number]
	slices.Sort(members)
	return members
}
