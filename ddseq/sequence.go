// Package ddseq describes dynamic decoupling sequences: instantaneous pulses
// placed at offsets within a sequence duration, each given as a Rabi rotation,
// an azimuthal angle and a detuning rotation.
package ddseq

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSequence is returned for sequences that violate the sequence invariants.
var ErrInvalidSequence = errors.New("invalid dynamic decoupling sequence")

// offsetTolerance absorbs rounding in offsets computed from the duration.
const offsetTolerance = 1e-9

// Sequence is a dynamic decoupling sequence. The four slices are parallel:
// entry i describes the pulse at Offsets[i].
type Sequence struct {
	Name              string
	Duration          float64
	Offsets           []float64
	RabiRotations     []float64
	AzimuthalAngles   []float64
	DetuningRotations []float64
}

// New builds and validates a sequence.
func New(duration float64, offsets, rabiRotations, azimuthalAngles, detuningRotations []float64, name string) (*Sequence, error) {
	s := &Sequence{
		Name:              name,
		Duration:          duration,
		Offsets:           offsets,
		RabiRotations:     rabiRotations,
		AzimuthalAngles:   azimuthalAngles,
		DetuningRotations: detuningRotations,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the duration is positive, the slices are parallel,
// offsets are non-decreasing within [0, Duration] and Rabi rotations are
// non-negative.
func (s *Sequence) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidSequence, s.Duration)
	}
	n := len(s.Offsets)
	if len(s.RabiRotations) != n || len(s.AzimuthalAngles) != n || len(s.DetuningRotations) != n {
		return fmt.Errorf("%w: offsets (%d), rabi rotations (%d), azimuthal angles (%d) and detuning rotations (%d) must have equal lengths",
			ErrInvalidSequence, n, len(s.RabiRotations), len(s.AzimuthalAngles), len(s.DetuningRotations))
	}
	for i, offset := range s.Offsets {
		if offset < -offsetTolerance || offset > s.Duration+offsetTolerance {
			return fmt.Errorf("%w: offset %d (%g) outside [0, %g]", ErrInvalidSequence, i, offset, s.Duration)
		}
		if i > 0 && offset < s.Offsets[i-1] {
			return fmt.Errorf("%w: offset %d (%g) precedes offset %d (%g)", ErrInvalidSequence, i, offset, i-1, s.Offsets[i-1])
		}
		if s.RabiRotations[i] < 0 {
			return fmt.Errorf("%w: rabi rotation %d is negative (%g)", ErrInvalidSequence, i, s.RabiRotations[i])
		}
	}
	return nil
}

// Len returns the number of offsets.
func (s *Sequence) Len() int {
	return len(s.Offsets)
}

func (s *Sequence) String() string {
	var sb strings.Builder
	name := s.Name
	if name == "" {
		name = "custom"
	}
	fmt.Fprintf(&sb, "%s (duration %g):\n", name, s.Duration)
	for i := range s.Offsets {
		fmt.Fprintf(&sb, "  t=%g rabi=%g azimuthal=%g detuning=%g\n",
			s.Offsets[i], s.RabiRotations[i], s.AzimuthalAngles[i], s.DetuningRotations[i])
	}
	return sb.String()
}
