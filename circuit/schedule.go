package circuit

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ScheduledOperation is a gate pinned to a start time and a duration.
type ScheduledOperation struct {
	Time     time.Duration
	Duration time.Duration
	Gate     Gate
}

func (op ScheduledOperation) String() string {
	return fmt.Sprintf("%v @ %v for %v", op.Gate, op.Time, op.Duration)
}

// Schedule is a set of timed operations checked against a device.
type Schedule struct {
	Device     Device
	Operations []ScheduledOperation
}

// NewSchedule returns an empty schedule on device. A nil device means UnconstrainedDevice.
func NewSchedule(device Device) *Schedule {
	if device == nil {
		device = UnconstrainedDevice
	}
	return &Schedule{Device: device}
}

// Add validates op against the schedule's device and appends it.
func (s *Schedule) Add(op ScheduledOperation) error {
	if err := s.Device.ValidateOperation(op); err != nil {
		return err
	}
	s.Operations = append(s.Operations, op)
	return nil
}

// End returns the time at which the last operation finishes.
func (s *Schedule) End() time.Duration {
	var end time.Duration
	for _, op := range s.Operations {
		end = max(end, op.Time+op.Duration)
	}
	return end
}

// ToCircuit orders operations by start time and packs them into moments.
// A new moment starts whenever the start time changes or a qubit is reused.
func (s *Schedule) ToCircuit() *Circuit {
	ops := slices.Clone(s.Operations)
	slices.SortStableFunc(ops, func(a, b ScheduledOperation) int {
		return cmp.Compare(a.Time, b.Time)
	})

	c := New()
	var moment []Gate
	used := make(map[int]bool)
	var current time.Duration
	for i, op := range ops {
		if i > 0 && (op.Time != current || used[op.Gate.Target]) {
			c.Append(moment...)
			moment = nil
			clear(used)
		}
		current = op.Time
		moment = append(moment, op.Gate)
		used[op.Gate.Target] = true
	}
	c.Append(moment...)
	return c
}

func (s *Schedule) String() string {
	var sb strings.Builder
	for _, op := range s.Operations {
		sb.WriteString(op.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
