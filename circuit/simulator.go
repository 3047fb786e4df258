package circuit

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
)

// ErrUnknownGate is returned when a gate type has no simulation kernel.
var ErrUnknownGate = errors.New("unknown gate")

// ErrTooManyQubits is returned for circuits wider than MaxSimulatedQubits.
var ErrTooManyQubits = errors.New("too many qubits to simulate")

// MaxSimulatedQubits bounds the state vector at 2^20 amplitudes.
const MaxSimulatedQubits = 20

func checkWidth(c *Circuit) error {
	if c.NumQubits > MaxSimulatedQubits {
		return fmt.Errorf("%w: circuit uses %d qubits, limit is %d", ErrTooManyQubits, c.NumQubits, MaxSimulatedQubits)
	}
	return nil
}

type Complex = complex128

// StateVector is the amplitude vector of NumQubits qubits. Qubit q is bit q
// of the basis-state index.
type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
}

// NewStateVector returns |0…0⟩ on numQubits qubits.
func NewStateVector(numQubits int) *StateVector {
	n := 1 << numQubits
	amps := make([]Complex, n)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]Complex, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

// ApplyGate applies a unitary single-qubit gate. MEASURE is not unitary and
// is handled by Measure.
func (s *StateVector) ApplyGate(gateType string, target int, params []float64) error {
	theta := 0.0
	if len(params) > 0 {
		theta = params[0]
	}
	switch gateType {
	case "I":
	case "H":
		s.applyH(target)
	case "X":
		s.applyX(target)
	case "Y":
		s.applyY(target)
	case "Z":
		s.applyZ(target)
	case "S":
		s.applyPhase(target, 1i)
	case "T":
		s.applyPhase(target, cmplx.Exp(complex(0, math.Pi/4)))
	case "RX":
		s.applyRX(target, theta)
	case "RY":
		s.applyRY(target, theta)
	case "RZ":
		s.applyRZ(target, theta)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGate, gateType)
	}
	return nil
}

func (s *StateVector) applyH(q int) {
	hFactor := complex(1.0/math.Sqrt2, 0)
	n := len(s.Amplitudes)
	bit := 1 << q
	newAmps := make([]Complex, n)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			newAmps[i] = hFactor * (s.Amplitudes[i] + s.Amplitudes[j])
			newAmps[j] = hFactor * (s.Amplitudes[i] - s.Amplitudes[j])
		}
	}
	s.Amplitudes = newAmps
}

func (s *StateVector) applyX(q int) {
	n := len(s.Amplitudes)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyY(q int) {
	n := len(s.Amplitudes)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = -1i*s.Amplitudes[j], 1i*s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyZ(q int) {
	s.applyPhase(q, -1)
}

func (s *StateVector) applyPhase(q int, factor Complex) {
	n := len(s.Amplitudes)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit != 0 {
			s.Amplitudes[i] *= factor
		}
	}
}

func (s *StateVector) applyRX(q int, theta float64) {
	n := len(s.Amplitudes)
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	newAmps := make([]Complex, n)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			newAmps[i] = c*s.Amplitudes[i] + js*s.Amplitudes[j]
			newAmps[j] = js*s.Amplitudes[i] + c*s.Amplitudes[j]
		}
	}
	s.Amplitudes = newAmps
}

func (s *StateVector) applyRY(q int, theta float64) {
	n := len(s.Amplitudes)
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	s_ := complex(math.Sin(theta/2), 0)
	newAmps := make([]Complex, n)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			newAmps[i] = c*s.Amplitudes[i] - s_*s.Amplitudes[j]
			newAmps[j] = s_*s.Amplitudes[i] + c*s.Amplitudes[j]
		}
	}
	s.Amplitudes = newAmps
}

func (s *StateVector) applyRZ(q int, theta float64) {
	n := len(s.Amplitudes)
	bit := 1 << q
	phase := cmplx.Exp(complex(0, theta/2))
	for i := 0; i < n; i++ {
		if i&bit != 0 {
			s.Amplitudes[i] *= phase
		} else {
			s.Amplitudes[i] *= cmplx.Conj(phase)
		}
	}
}

// Measure samples qubit q in the computational basis using r, collapses the
// state onto the outcome and returns it.
func (s *StateVector) Measure(q int, r *rand.Rand) int {
	bit := 1 << q
	prob1 := 0.0
	for i, amp := range s.Amplitudes {
		if i&bit != 0 {
			prob1 += real(amp * cmplx.Conj(amp))
		}
	}

	outcome := 0
	if r.Float64() < prob1 {
		outcome = 1
	}

	norm := math.Sqrt(1 - prob1)
	if outcome == 1 {
		norm = math.Sqrt(prob1)
	}
	for i := range s.Amplitudes {
		if (i&bit != 0) != (outcome == 1) {
			s.Amplitudes[i] = 0
			continue
		}
		s.Amplitudes[i] /= complex(norm, 0)
	}
	return outcome
}

type QubitProbability struct {
	Prob0 float64
	Prob1 float64
}

func (s *StateVector) GetQubitProbabilities() []QubitProbability {
	probs := make([]QubitProbability, s.NumQubits)
	n := len(s.Amplitudes)

	for i := 0; i < n; i++ {
		prob := real(s.Amplitudes[i] * cmplx.Conj(s.Amplitudes[i]))
		for q := 0; q < s.NumQubits; q++ {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += prob
			} else {
				probs[q].Prob0 += prob
			}
		}
	}

	return probs
}

// Simulate applies the unitary part of the circuit up to and including
// upToStep (all steps when negative) to |0…0⟩. Measurements are skipped.
func Simulate(c *Circuit, upToStep int) (*StateVector, error) {
	if c.NumQubits == 0 {
		return NewStateVector(1), nil
	}
	if err := checkWidth(c); err != nil {
		return nil, err
	}
	state := NewStateVector(c.NumQubits)

	for _, gate := range c.sortedGates() {
		if upToStep >= 0 && gate.Step > upToStep {
			break
		}
		if gate.Type == "MEASURE" {
			continue
		}
		if err := state.ApplyGate(gate.Type, gate.Target, gate.Params); err != nil {
			return nil, err
		}
	}

	return state, nil
}

// Result holds the measurement record of a simulator run, one slice of
// outcomes per measurement key.
type Result struct {
	Repetitions  int
	Measurements map[string][]int
}

// Histogram counts outcomes recorded under key.
func (r *Result) Histogram(key string) map[int]int {
	hist := make(map[int]int)
	for _, v := range r.Measurements[key] {
		hist[v]++
	}
	return hist
}

// Simulator samples circuits on a state vector.
type Simulator struct {
	Rand *rand.Rand
}

// NewSimulator returns a simulator with a deterministic random source.
func NewSimulator(seed uint64) *Simulator {
	return &Simulator{Rand: rand.New(rand.NewPCG(seed, seed))}
}

// Run executes the circuit repetitions times from |0…0⟩ and records every
// measurement.
func (sim *Simulator) Run(c *Circuit, repetitions int) (*Result, error) {
	if repetitions < 1 {
		return nil, fmt.Errorf("repetitions must be positive, got %d", repetitions)
	}
	if err := checkWidth(c); err != nil {
		return nil, err
	}
	gates := c.sortedGates()
	result := &Result{Repetitions: repetitions, Measurements: make(map[string][]int)}

	for range repetitions {
		state := NewStateVector(max(c.NumQubits, 1))
		for _, gate := range gates {
			if gate.Type == "MEASURE" {
				result.Measurements[gate.Key] = append(result.Measurements[gate.Key], state.Measure(gate.Target, sim.Rand))
				continue
			}
			if err := state.ApplyGate(gate.Type, gate.Target, gate.Params); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}
