package circuit

import (
	"math"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
)

func TestParseQASMPacksParallelGates(t *testing.T) {
	qasm := heredoc.Doc(`
		OPENQASM 2.0;
		include "qelib1.inc";
		qreg q[3];
		creg c[1];

		id q[0];
		id q[1];
		rx(pi) q[0];
		x q[2];
	`)

	c := Circuit{}
	if err := c.ParseQASM(qasm); err != nil {
		t.Fatalf("ParseQASM error: %v", err)
	}

	if c.NumQubits != 3 {
		t.Errorf("NumQubits = %d, want 3", c.NumQubits)
	}
	if len(c.Gates) != 4 {
		t.Fatalf("expected 4 gates, got %d", len(c.Gates))
	}

	id0 := c.GetGateAt(0, 0)
	id1 := c.GetGateAt(0, 1)
	if id0 == nil || id0.Type != "I" || id1 == nil || id1.Type != "I" {
		t.Errorf("expected identities on q[0] and q[1] at step 0, got %v and %v", id0, id1)
	}
	if g := c.GetGateAt(1, 0); g == nil || g.Type != "RX" {
		t.Errorf("expected RX on q[0] at step 1, got %v", g)
	}
	if g := c.GetGateAt(0, 2); g == nil || g.Type != "X" {
		t.Errorf("expected X on q[2] at step 0, got %v", g)
	}
}

func TestParseQASMBarrierAlignsQubits(t *testing.T) {
	qasm := heredoc.Doc(`
		qreg q[2];
		id q[0];
		id q[0];
		barrier q[0], q[1];
		x q[1];
	`)

	c := Circuit{}
	if err := c.ParseQASM(qasm); err != nil {
		t.Fatalf("ParseQASM error: %v", err)
	}
	if g := c.GetGateAt(2, 1); g == nil || g.Type != "X" {
		t.Errorf("expected X on q[1] at step 2 after barrier, got %v", g)
	}
}

func TestParseQASMRejectsUnsupportedStatement(t *testing.T) {
	c := Circuit{}
	err := c.ParseQASM("qreg q[2];\ncx q[0], q[1];")
	if err == nil {
		t.Fatal("expected an error for a two-qubit gate")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name the line, got %v", err)
	}
}

func TestRoundTripQASM(t *testing.T) {
	c := New()
	c.Append(Identity(0), Identity(1))
	c.Append(RX(0, math.Pi), RY(1, math.Pi))
	c.Append(Measure(0, "qubit-0"), Measure(1, "qubit-1"))

	qasm := c.ToQASM()

	if !strings.Contains(qasm, "// key c[1] qubit-1") {
		t.Errorf("expected key comment for qubit-1, got:\n%s", qasm)
	}
	if !strings.Contains(qasm, "measure q[1] -> c[1];") {
		t.Errorf("expected measurement of q[1] into c[1], got:\n%s", qasm)
	}

	c2 := Circuit{}
	if err := c2.ParseQASM(qasm); err != nil {
		t.Fatalf("ParseQASM error: %v", err)
	}

	if len(c2.Gates) != len(c.Gates) {
		t.Fatalf("round-trip: expected %d gates, got %d", len(c.Gates), len(c2.Gates))
	}
	if c2.MaxSteps != 3 {
		t.Errorf("round-trip: expected 3 moments, got %d", c2.MaxSteps)
	}
	keys := c2.MeasurementKeys()
	if len(keys) != 2 || keys[0] != "qubit-0" || keys[1] != "qubit-1" {
		t.Errorf("round-trip keys = %v", keys)
	}
}

func TestParseQASMWithoutKeyComments(t *testing.T) {
	c := Circuit{}
	if err := c.ParseQASM("qreg q[1];\ncreg c[1];\nmeasure q[0] -> c[0];"); err != nil {
		t.Fatalf("ParseQASM error: %v", err)
	}
	if keys := c.MeasurementKeys(); len(keys) != 1 || keys[0] != "c0" {
		t.Errorf("keys = %v, want [c0]", keys)
	}
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		// Plain numbers
		{"1.5707", 1.5707, true},
		{"-0.5", -0.5, true},
		{"0", 0, true},

		// Pi constant
		{"pi", math.Pi, true},
		{"PI", math.Pi, true},

		// Pi fractions
		{"pi/2", math.Pi / 2, true},
		{"pi/8", math.Pi / 8, true},

		// Coefficients
		{"2pi", 2 * math.Pi, true},
		{"3*pi/4", 3 * math.Pi / 4, true},

		// Negative
		{"-pi", -math.Pi, true},
		{"-pi/2", -math.Pi / 2, true},

		// Whitespace
		{" pi / 2 ", math.Pi / 2, true},

		// Invalid
		{"", 0, false},
		{"abc", 0, false},
		{"pi/0", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseParam(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseParam(%q): ok=%v, want ok=%v", tt.input, ok, tt.ok)
			continue
		}
		if ok && math.Abs(got-tt.want) > 1e-10 {
			t.Errorf("ParseParam(%q) = %g, want %g", tt.input, got, tt.want)
		}
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{math.Pi, "pi"},
		{math.Pi / 2, "pi/2"},
		{3 * math.Pi / 4, "3*pi/4"},
		{-math.Pi / 2, "-pi/2"},
		{2 * math.Pi, "2*pi"},
		{5 * math.Pi / 8, "5*pi/8"},
		{-3 * math.Pi, "-3*pi"},
		{math.Pi / math.Sqrt2, "2.221441469079183"},
		{1.5, "1.5"},
		{0, "0"},
	}

	for _, tt := range tests {
		got := FormatParam(tt.input)
		if got != tt.want {
			t.Errorf("FormatParam(%g) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPiParamQASMRoundTrip(t *testing.T) {
	c := Circuit{NumQubits: 2}
	c.AddParameterizedGate("RX", 0, 0, []float64{math.Pi / 2})
	c.AddParameterizedGate("RY", 1, 1, []float64{3 * math.Pi / 4})
	c.AddParameterizedGate("RZ", 0, 2, []float64{-math.Pi})

	qasm := c.ToQASM()

	for _, want := range []string{"rx(pi/2)", "ry(3*pi/4)", "rz(-pi)"} {
		if !strings.Contains(qasm, want) {
			t.Errorf("expected %q in QASM, got:\n%s", want, qasm)
		}
	}

	c2 := Circuit{}
	if err := c2.ParseQASM(qasm); err != nil {
		t.Fatalf("ParseQASM error: %v", err)
	}
	if len(c2.Gates) != 3 {
		t.Fatalf("pi round-trip: expected 3 gates, got %d", len(c2.Gates))
	}

	want := []float64{math.Pi / 2, 3 * math.Pi / 4, -math.Pi}
	for i, w := range want {
		if math.Abs(c2.Gates[i].Params[0]-w) > 1e-10 {
			t.Errorf("gate %d param: got %g, want %g", i, c2.Gates[i].Params[0], w)
		}
	}
}

func TestGetMeasureAtStep(t *testing.T) {
	c := New()
	c.Append(RX(0, math.Pi), Identity(2))
	c.Append(Measure(2, "b"), Measure(1, "a"))

	if got := c.GetMeasureAtStep(0); got != -1 {
		t.Errorf("step 0: got %d, want -1", got)
	}
	if got := c.GetMeasureAtStep(1); got != 1 {
		t.Errorf("step 1: got %d, want 1", got)
	}
	if got := c.NumCbits(); got != 2 {
		t.Errorf("NumCbits: got %d, want 2", got)
	}
}
