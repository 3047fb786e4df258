package convert

import (
	"math"
	"time"

	"go.uber.org/zap"

	"ddcirq/circuit"
	"ddcirq/ddseq"
)

// ScheduleOptions configures ToSchedule.
type ScheduleOptions struct {
	TargetQubits   []circuit.Qubit
	GateTime       float64 // seconds
	AddMeasurement bool
	// Device validates every scheduled operation; nil means circuit.UnconstrainedDevice.
	Device circuit.Device
}

// DefaultScheduleOptions returns a gate time of 0.1 s with measurement on.
func DefaultScheduleOptions() ScheduleOptions {
	return ScheduleOptions{GateTime: 0.1, AddMeasurement: true}
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}

// ToSchedule converts a dynamic decoupling sequence into a schedule. Each
// pulse starts at its offset and lasts one gate time; no identity gates are
// needed because idle time is implicit. Measurements start one gate time after
// the last offset.
func ToSchedule(seq *ddseq.Sequence, opts ScheduleOptions) (*circuit.Schedule, error) {
	if err := checkSequence(seq); err != nil {
		return nil, err
	}
	if err := checkGateTime(opts.GateTime); err != nil {
		return nil, err
	}
	qubits, err := resolveQubits(opts.TargetQubits)
	if err != nil {
		return nil, err
	}

	gateTime := seconds(opts.GateTime)
	if gateTime <= 0 {
		return nil, argumentError("time delay of gates must be at least one nanosecond to be scheduled",
			map[string]any{"gate_time": opts.GateTime})
	}

	sched := circuit.NewSchedule(opts.Device)
	add := func(op circuit.ScheduledOperation) error {
		if err := sched.Add(op); err != nil {
			return &ArgumentError{
				Message: "operation is not supported by the device",
				Args:    map[string]any{"device": sched.Device},
				Extras:  map[string]any{"operation": op.String()},
				Err:     err,
			}
		}
		return nil
	}

	var last time.Duration
	for i, offset := range seq.Offsets {
		r := rotations(seq.RabiRotations[i], seq.AzimuthalAngles[i], seq.DetuningRotations[i])
		if err := checkSingleAxis(seq, i, r); err != nil {
			return nil, err
		}
		last = seconds(offset)
		for _, q := range qubits {
			op := circuit.ScheduledOperation{Time: last, Duration: gateTime, Gate: rotationGate(q, r)}
			if err := add(op); err != nil {
				return nil, err
			}
		}
	}

	if opts.AddMeasurement {
		for _, m := range measurements(qubits) {
			op := circuit.ScheduledOperation{Time: last + gateTime, Duration: gateTime, Gate: m}
			if err := add(op); err != nil {
				return nil, err
			}
		}
	}

	zap.L().Debug("converted sequence to schedule",
		zap.String("sequence", seq.Name),
		zap.Int("offsets", seq.Len()),
		zap.Int("operations", len(sched.Operations)),
		zap.Duration("end", sched.End()))

	return sched, nil
}
