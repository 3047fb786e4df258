package circuit

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Pre-compiled regexps for QASM parsing.
var (
	singleGateRegex      = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\];?$`)
	singleGateParamRegex = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `)\s*\)\s+q\[(\d+)\];?$`)
	measureRegex         = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*(\w+)\[(\d+)\];?$`)
	qregRegex            = regexp.MustCompile(`qreg\s+(\w+)\[(\d+)\]`)
	keyRegex             = regexp.MustCompile(`^//\s*key\s+c\[(\d+)\]\s+(\S+)$`)
)

// Qubit identifies a qubit on a one-dimensional line. The index doubles as
// the qreg index when the circuit is exported.
type Qubit int

func (q Qubit) String() string {
	return fmt.Sprintf("q(%d)", int(q))
}

// Gate represents a quantum gate placed on the circuit.
type Gate struct {
	Type   string
	Target int
	Step   int       // position in circuit timeline
	Params []float64 // Parameters for parameterized gates
	Key    string    // Measurement key, set on MEASURE only
}

// Identity returns an identity (idle) gate on q.
func Identity(q Qubit) Gate {
	return Gate{Type: "I", Target: int(q)}
}

// RX returns a rotation about X by theta on q.
func RX(q Qubit, theta float64) Gate {
	return Gate{Type: "RX", Target: int(q), Params: []float64{theta}}
}

// RY returns a rotation about Y by theta on q.
func RY(q Qubit, theta float64) Gate {
	return Gate{Type: "RY", Target: int(q), Params: []float64{theta}}
}

// RZ returns a rotation about Z by theta on q.
func RZ(q Qubit, theta float64) Gate {
	return Gate{Type: "RZ", Target: int(q), Params: []float64{theta}}
}

// Measure returns a computational-basis measurement of q recorded under key.
func Measure(q Qubit, key string) Gate {
	return Gate{Type: "MEASURE", Target: int(q), Key: key}
}

func (g Gate) String() string {
	switch {
	case g.Type == "MEASURE":
		return fmt.Sprintf("M('%s')(q(%d))", g.Key, g.Target)
	case len(g.Params) > 0:
		return fmt.Sprintf("%s(%s)(q(%d))", g.Type, FormatParam(g.Params[0]), g.Target)
	default:
		return fmt.Sprintf("%s(q(%d))", g.Type, g.Target)
	}
}

// Circuit holds the quantum circuit state.
type Circuit struct {
	NumQubits int
	Gates     []Gate
	MaxSteps  int
}

// New returns an empty circuit.
func New() *Circuit {
	return &Circuit{}
}

func (c *Circuit) add(g Gate) {
	c.Gates = append(c.Gates, g)
	if g.Step >= c.MaxSteps {
		c.MaxSteps = g.Step + 1
	}
	if g.Target >= c.NumQubits {
		c.NumQubits = g.Target + 1
	}
}

// AddGate appends a gate to the circuit.
func (c *Circuit) AddGate(gateType string, target, step int) {
	c.add(Gate{Type: gateType, Target: target, Step: step})
}

// AddParameterizedGate appends a parameterized gate to the circuit.
func (c *Circuit) AddParameterizedGate(gateType string, target, step int, params []float64) {
	c.add(Gate{Type: gateType, Target: target, Step: step, Params: params})
}

// AddMeasurement appends a measurement recorded under key.
func (c *Circuit) AddMeasurement(target, step int, key string) {
	c.add(Gate{Type: "MEASURE", Target: target, Step: step, Key: key})
}

// Append places gates into a new moment after the last one. Each gate must
// act on a distinct qubit.
func (c *Circuit) Append(gates ...Gate) {
	if len(gates) == 0 {
		return
	}
	step := c.MaxSteps
	for _, g := range gates {
		g.Step = step
		c.add(g)
	}
}

// Moments returns the gates grouped by step, in insertion order within each step.
func (c *Circuit) Moments() [][]Gate {
	moments := make([][]Gate, c.MaxSteps)
	for _, g := range c.Gates {
		moments[g.Step] = append(moments[g.Step], g)
	}
	return moments
}

// GetGateAt returns the gate at the given step and qubit, or nil.
func (c *Circuit) GetGateAt(step, qubit int) *Gate {
	for i := range c.Gates {
		g := &c.Gates[i]
		if g.Step == step && g.Target == qubit {
			return g
		}
	}
	return nil
}

// Count returns the number of gates of the given type.
func (c *Circuit) Count(gateType string) int {
	n := 0
	for _, g := range c.Gates {
		if g.Type == gateType {
			n++
		}
	}
	return n
}

// MeasurementKeys returns measurement keys in the order they first appear.
// The position of a key is its classical bit index.
func (c *Circuit) MeasurementKeys() []string {
	var keys []string
	for _, g := range c.sortedGates() {
		if g.Type == "MEASURE" && !slices.Contains(keys, g.Key) {
			keys = append(keys, g.Key)
		}
	}
	return keys
}

// NumCbits returns the number of classical bits needed (one per measurement key).
func (c *Circuit) NumCbits() int {
	return len(c.MeasurementKeys())
}

// GetMeasureAtStep returns the lowest qubit index measured at the given step, or -1 if none.
func (c *Circuit) GetMeasureAtStep(step int) int {
	lowest := -1
	for _, g := range c.Gates {
		if g.Step == step && g.Type == "MEASURE" && (lowest < 0 || g.Target < lowest) {
			lowest = g.Target
		}
	}
	return lowest
}

// sortedGates returns the gates ordered by step. Gates sharing a step keep
// their insertion order.
func (c *Circuit) sortedGates() []Gate {
	gates := slices.Clone(c.Gates)
	slices.SortStableFunc(gates, func(a, b Gate) int {
		return a.Step - b.Step
	})
	return gates
}

// ToQASM generates QASM 2.0 output from the circuit.
func (c *Circuit) ToQASM() string {
	maxQubit := -1
	for _, gate := range c.Gates {
		maxQubit = max(maxQubit, gate.Target)
	}
	numQubits := max(maxQubit+1, c.NumQubits, 1)

	keys := c.MeasurementKeys()
	cbit := make(map[string]int, len(keys))
	for i, k := range keys {
		cbit[k] = i
	}

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", numQubits)
	fmt.Fprintf(&sb, "creg c[%d];\n", max(len(keys), 1))
	// Measurement keys are not representable in QASM 2.0; they ride along as comments.
	for i, k := range keys {
		fmt.Fprintf(&sb, "// key c[%d] %s\n", i, k)
	}
	sb.WriteString("\n")

	for _, gate := range c.sortedGates() {
		gateType := strings.ToLower(gate.Type)
		switch gateType {
		case "measure":
			fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", gate.Target, cbit[gate.Key])
		case "i":
			fmt.Fprintf(&sb, "id q[%d];\n", gate.Target)
		case "rx", "ry", "rz":
			if len(gate.Params) == 1 {
				fmt.Fprintf(&sb, "%s(%s) q[%d];\n", gateType, FormatParam(gate.Params[0]), gate.Target)
			}
		default:
			fmt.Fprintf(&sb, "%s q[%d];\n", gateType, gate.Target)
		}
	}

	return sb.String()
}

// ParseQASM parses QASM text and rebuilds the circuit from it. Gates are
// packed into the earliest step after the previous gate on the same qubit;
// a barrier aligns every qubit.
func (c *Circuit) ParseQASM(qasm string) error {
	c.Gates = nil
	c.MaxSteps = 0
	c.NumQubits = 0

	keys := make(map[int]string)
	frontier := make(map[int]int)
	next := func(target int) int {
		step := frontier[target]
		frontier[target] = step + 1
		return step
	}

	for i, line := range strings.Split(qasm, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if matches := keyRegex.FindStringSubmatch(line); matches != nil {
			idx, _ := strconv.Atoi(matches[1])
			keys[idx] = matches[2]
			continue
		}
		if strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") ||
			strings.HasPrefix(line, "include") ||
			strings.HasPrefix(line, "creg") {
			continue
		}
		if strings.HasPrefix(line, "qreg") {
			if matches := qregRegex.FindStringSubmatch(line); len(matches) > 2 {
				n, _ := strconv.Atoi(matches[2])
				c.NumQubits = n
			}
			continue
		}
		if strings.HasPrefix(line, "barrier") {
			aligned := 0
			for _, s := range frontier {
				aligned = max(aligned, s)
			}
			for q := range c.NumQubits {
				frontier[q] = aligned
			}
			continue
		}

		// Measurement: "measure q[0] -> c[0];"
		if matches := measureRegex.FindStringSubmatch(line); matches != nil {
			target, _ := strconv.Atoi(matches[1])
			bit, _ := strconv.Atoi(matches[3])
			key, ok := keys[bit]
			if !ok {
				key = fmt.Sprintf("%s%d", matches[2], bit)
			}
			c.AddMeasurement(target, next(target), key)
			continue
		}

		// Single-qubit parameterized gates (RX, RY, RZ)
		if matches := singleGateParamRegex.FindStringSubmatch(line); matches != nil {
			gateType := strings.ToUpper(matches[1])
			param, ok := ParseParam(matches[2])
			if !ok {
				return fmt.Errorf("line %d: invalid parameter %q", i+1, matches[2])
			}
			target, _ := strconv.Atoi(matches[3])
			c.AddParameterizedGate(gateType, target, next(target), []float64{param})
			continue
		}

		if matches := singleGateRegex.FindStringSubmatch(line); matches != nil {
			gateType := strings.ToUpper(matches[1])
			if gateType == "ID" {
				gateType = "I"
			}
			target, _ := strconv.Atoi(matches[2])
			c.AddGate(gateType, target, next(target))
			continue
		}

		return fmt.Errorf("line %d: unsupported statement %q", i+1, line)
	}

	return nil
}
