// Package convert turns dynamic decoupling sequences into gate-level
// circuits and timed schedules.
//
// A sequence describes idealised pulses that take no time. A circuit needs
// every idle period spelled out, so the gaps between offsets are filled with
// identity gates of a fixed gate time and each pulse becomes one rotation
// about X, Y or Z. Only one rotation axis may be active at any offset.
package convert

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"ddcirq/circuit"
	"ddcirq/ddseq"
)

// Algorithm selects how much time a rotation takes in the realised circuit.
type Algorithm string

const (
	// InstantUnitary treats rotations as instantaneous.
	InstantUnitary Algorithm = "instant unitary"
	// FixedDurationUnitary gives every rotation one gate time.
	FixedDurationUnitary Algorithm = "fixed duration unitary"
)

// ParseAlgorithm accepts the full algorithm names or "instant" / "fixed".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instant", string(InstantUnitary):
		return InstantUnitary, nil
	case "fixed", "fixed-duration", string(FixedDurationUnitary):
		return FixedDurationUnitary, nil
	}
	return "", argumentError(
		fmt.Sprintf("algorithm must be one of %q or %q", InstantUnitary, FixedDurationUnitary),
		map[string]any{"algorithm": s})
}

// Options configures ToCircuit.
type Options struct {
	// TargetQubits receive the sequence; empty means a single qubit q(0).
	TargetQubits []circuit.Qubit
	// GateTime is the delay, in seconds, introduced by one gate.
	GateTime float64
	// AddMeasurement appends one measurement per target qubit, keyed "qubit-<index>".
	AddMeasurement bool
	Algorithm      Algorithm
}

// DefaultOptions returns a gate time of 0.1 s, measurement on and
// instantaneous rotations.
func DefaultOptions() Options {
	return Options{
		GateTime:       0.1,
		AddMeasurement: true,
		Algorithm:      InstantUnitary,
	}
}

// MeasurementKey returns the key of the measurement on the idx-th target qubit.
func MeasurementKey(idx int) string {
	return fmt.Sprintf("qubit-%d", idx)
}

// tolerance matches an absolute closeness test against zero.
const tolerance = 1e-8

func isZero(v float64) bool {
	return math.Abs(v) <= tolerance
}

// rotations resolves a pulse into its X, Y and Z rotation angles.
func rotations(rabi, azimuth, detuning float64) [3]float64 {
	return [3]float64{
		rabi * math.Cos(azimuth),
		rabi * math.Sin(azimuth),
		detuning,
	}
}

func nearZeroCount(r [3]float64) int {
	n := 0
	for _, v := range r {
		if isZero(v) {
			n++
		}
	}
	return n
}

// rotationGate picks the identity when no axis is active, else the first
// active axis in X, Y, Z order.
func rotationGate(q circuit.Qubit, r [3]float64) circuit.Gate {
	switch {
	case nearZeroCount(r) == 3:
		return circuit.Identity(q)
	case !isZero(r[0]):
		return circuit.RX(q, r[0])
	case !isZero(r[1]):
		return circuit.RY(q, r[1])
	default:
		return circuit.RZ(q, r[2])
	}
}

func checkSequence(seq *ddseq.Sequence) error {
	if seq == nil {
		return argumentError("no dynamic decoupling sequence provided",
			map[string]any{"dynamic_decoupling_sequence": nil})
	}
	if err := seq.Validate(); err != nil {
		return &ArgumentError{
			Message: "dynamic decoupling sequence is not recognized",
			Args:    map[string]any{"dynamic_decoupling_sequence": seq.Name},
			Err:     err,
		}
	}
	return nil
}

func checkGateTime(gateTime float64) error {
	if gateTime <= 0 {
		return argumentError("time delay of gates must be greater than zero",
			map[string]any{"gate_time": gateTime})
	}
	return nil
}

func resolveQubits(qubits []circuit.Qubit) ([]circuit.Qubit, error) {
	if len(qubits) == 0 {
		return []circuit.Qubit{0}, nil
	}
	seen := make(map[circuit.Qubit]bool, len(qubits))
	for _, q := range qubits {
		if q < 0 || seen[q] {
			return nil, argumentError("target qubits must be distinct and non-negative",
				map[string]any{"target_qubits": qubits})
		}
		seen[q] = true
	}
	return qubits, nil
}

// checkSingleAxis rejects a pulse that rotates about two axes at once.
// Exactly one near-zero component means two are active.
func checkSingleAxis(seq *ddseq.Sequence, i int, r [3]float64) error {
	if nearZeroCount(r) != 1 {
		return nil
	}
	return &ArgumentError{
		Message: "only one rotation axis may be active at an offset; found a sequence with multiple rotation operations at an offset",
		Args:    map[string]any{"dynamic_decoupling_sequence": seq.Name},
		Extras: map[string]any{
			"offset":            seq.Offsets[i],
			"rabi_rotation":     seq.RabiRotations[i],
			"azimuthal_angle":   seq.AzimuthalAngles[i],
			"detuning_rotation": seq.DetuningRotations[i],
		},
	}
}

func measurements(qubits []circuit.Qubit) []circuit.Gate {
	ops := make([]circuit.Gate, len(qubits))
	for i, q := range qubits {
		ops[i] = circuit.Measure(q, MeasurementKey(i))
	}
	return ops
}

// ToCircuit converts a dynamic decoupling sequence into a circuit.
//
// Idle time before each offset is filled with whole gate times of identity
// gates, then one moment holds the pulse on every target qubit. With
// FixedDurationUnitary the pulse itself takes one gate time, so offsets closer
// together than the gate time cannot be placed and are rejected.
func ToCircuit(seq *ddseq.Sequence, opts Options) (*circuit.Circuit, error) {
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

	var unitaryTime float64
	switch opts.Algorithm {
	case InstantUnitary:
	case FixedDurationUnitary:
		unitaryTime = opts.GateTime
	default:
		return nil, argumentError(
			fmt.Sprintf("algorithm must be one of %q or %q", InstantUnitary, FixedDurationUnitary),
			map[string]any{"algorithm": opts.Algorithm})
	}

	identities := make([]circuit.Gate, len(qubits))
	for i, q := range qubits {
		identities[i] = circuit.Identity(q)
	}

	c := circuit.New()
	timeCovered := 0.0
	for i, offset := range seq.Offsets {
		gap := offset - timeCovered
		if isZero(gap) {
			gap = 0
		}
		if gap < 0 {
			return nil, &ArgumentError{
				Message: "offsets cannot be placed properly; spacing between the rotations is smaller than the time required to perform the rotation, provide a longer sequence or a shorter gate time",
				Args: map[string]any{
					"dynamic_decoupling_sequence": seq.Name,
					"gate_time":                   opts.GateTime,
				},
				Extras: map[string]any{"offset": offset, "time_covered": timeCovered},
			}
		}

		for timeCovered+opts.GateTime <= offset {
			c.Append(identities...)
			timeCovered += opts.GateTime
		}

		r := rotations(seq.RabiRotations[i], seq.AzimuthalAngles[i], seq.DetuningRotations[i])
		if err := checkSingleAxis(seq, i, r); err != nil {
			return nil, err
		}

		ops := make([]circuit.Gate, len(qubits))
		for j, q := range qubits {
			ops[j] = rotationGate(q, r)
		}
		c.Append(ops...)

		timeCovered = offset + unitaryTime
	}

	if opts.AddMeasurement {
		c.Append(measurements(qubits)...)
	}

	zap.L().Debug("converted sequence to circuit",
		zap.String("sequence", seq.Name),
		zap.Int("offsets", seq.Len()),
		zap.Int("moments", c.MaxSteps),
		zap.Int("operations", len(c.Gates)),
		zap.String("algorithm", string(opts.Algorithm)))

	return c, nil
}
