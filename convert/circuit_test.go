package convert

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddcirq/circuit"
	"ddcirq/ddseq"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func mustSequence(t *testing.T, duration float64, offsets, rabi, az, det []float64) *ddseq.Sequence {
	t.Helper()
	seq, err := ddseq.New(duration, offsets, rabi, az, det, "test")
	require.NoError(t, err)
	return seq
}

func mustScheme(t *testing.T, scheme ddseq.Scheme, p ddseq.Params) *ddseq.Sequence {
	t.Helper()
	seq, err := ddseq.NewFromScheme(scheme, p)
	require.NoError(t, err)
	return seq
}

func TestToCircuitGolden(t *testing.T) {
	g := newGoldie(t)

	t.Run("spin_echo", func(t *testing.T) {
		seq := mustScheme(t, ddseq.SpinEcho, ddseq.Params{Duration: 2})
		opts := DefaultOptions()
		opts.GateTime = 0.5

		c, err := ToCircuit(seq, opts)
		require.NoError(t, err)
		g.Assert(t, "spin_echo", []byte(c.ToQASM()))
	})

	t.Run("cpmg_two_qubits", func(t *testing.T) {
		seq := mustScheme(t, ddseq.CarrPurcellMeiboomGill, ddseq.Params{Duration: 2, OffsetCount: 2})
		opts := Options{
			TargetQubits:   []circuit.Qubit{0, 2},
			GateTime:       0.5,
			AddMeasurement: true,
			Algorithm:      FixedDurationUnitary,
		}

		c, err := ToCircuit(seq, opts)
		require.NoError(t, err)
		g.Assert(t, "cpmg_two_qubits", []byte(c.ToQASM()))
	})
}

// Gate times accumulate in floating point, so 20 steps of 0.1 overshoot 2.0
// and only 19 identities fit before the pulse.
func TestToCircuitIdentityPaddingAccumulatesGateTime(t *testing.T) {
	seq := mustScheme(t, ddseq.SpinEcho, ddseq.Params{Duration: 4})
	require.Equal(t, []float64{2}, seq.Offsets)

	for _, algorithm := range []Algorithm{InstantUnitary, FixedDurationUnitary} {
		opts := DefaultOptions()
		opts.Algorithm = algorithm

		c, err := ToCircuit(seq, opts)
		require.NoError(t, err, algorithm)
		assert.Equal(t, 19, c.Count("I"), algorithm)
		assert.Equal(t, "RX", c.GetGateAt(19, 0).Type, algorithm)
		assert.Equal(t, 21, c.MaxSteps, algorithm)
	}
}

func TestToCircuitIdentityPadding(t *testing.T) {
	seq := mustSequence(t, 4,
		[]float64{1, 3},
		[]float64{math.Pi, math.Pi},
		[]float64{0, 0},
		[]float64{0, 0})

	tests := []struct {
		algorithm  Algorithm
		identities int
		moments    int
	}{
		// 4 idle gates before t=1 and 8 before t=3.
		{InstantUnitary, 12, 15},
		// The first rotation occupies [1, 1.25], leaving 7 idle gates.
		{FixedDurationUnitary, 11, 14},
	}
	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			opts := DefaultOptions()
			opts.GateTime = 0.25
			opts.Algorithm = tt.algorithm

			c, err := ToCircuit(seq, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.identities, c.Count("I"))
			assert.Equal(t, 2, c.Count("RX"))
			assert.Equal(t, 1, c.Count("MEASURE"))
			assert.Equal(t, tt.moments, c.MaxSteps)
		})
	}
}

func TestToCircuitAxisSelection(t *testing.T) {
	tests := []struct {
		name     string
		rabi     float64
		azimuth  float64
		detuning float64
		gate     string
		param    float64
	}{
		{"x", math.Pi, 0, 0, "RX", math.Pi},
		{"minus x", math.Pi, math.Pi, 0, "RX", -math.Pi},
		{"y", math.Pi, math.Pi / 2, 0, "RY", math.Pi},
		{"z", 0, 0, math.Pi, "RZ", math.Pi},
		{"idle", 0, 0, 0, "I", 0},
		{"tiny rabi", 1e-10, 0, 0, "I", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := mustSequence(t, 1, []float64{0.5},
				[]float64{tt.rabi}, []float64{tt.azimuth}, []float64{tt.detuning})
			opts := DefaultOptions()
			opts.GateTime = 0.25
			opts.AddMeasurement = false

			c, err := ToCircuit(seq, opts)
			require.NoError(t, err)

			g := c.GetGateAt(c.MaxSteps-1, 0)
			require.NotNil(t, g)
			assert.Equal(t, tt.gate, g.Type)
			if tt.gate != "I" {
				require.Len(t, g.Params, 1)
				assert.InDelta(t, tt.param, g.Params[0], 1e-12)
			}
		})
	}
}

func TestToCircuitRejectsMultipleAxes(t *testing.T) {
	seq := mustSequence(t, 1, []float64{0.5},
		[]float64{math.Pi}, []float64{math.Pi / 4}, []float64{0})

	_, err := ToCircuit(seq, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidArgument)

	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Contains(t, argErr.Message, "only one rotation axis")
	assert.Equal(t, 0.5, argErr.Extras["offset"])
	assert.Equal(t, math.Pi/4, argErr.Extras["azimuthal_angle"])
}

func TestToCircuitAllThreeAxesPicksX(t *testing.T) {
	seq := mustSequence(t, 1, []float64{0.5},
		[]float64{math.Pi}, []float64{math.Pi / 4}, []float64{math.Pi})
	opts := DefaultOptions()
	opts.GateTime = 0.25

	c, err := ToCircuit(seq, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count("RX"))
}

func TestToCircuitArgumentErrors(t *testing.T) {
	seq := mustScheme(t, ddseq.SpinEcho, ddseq.Params{Duration: 1})

	tests := []struct {
		name string
		seq  *ddseq.Sequence
		opts func(*Options)
		arg  string
	}{
		{"nil sequence", nil, func(*Options) {}, "dynamic_decoupling_sequence"},
		{"zero gate time", seq, func(o *Options) { o.GateTime = 0 }, "gate_time"},
		{"negative gate time", seq, func(o *Options) { o.GateTime = -0.1 }, "gate_time"},
		{"unknown algorithm", seq, func(o *Options) { o.Algorithm = "adiabatic" }, "algorithm"},
		{"duplicate qubits", seq, func(o *Options) { o.TargetQubits = []circuit.Qubit{1, 1} }, "target_qubits"},
		{"negative qubit", seq, func(o *Options) { o.TargetQubits = []circuit.Qubit{-1} }, "target_qubits"},
		{
			"invalid sequence",
			&ddseq.Sequence{Duration: 1, Offsets: []float64{2}, RabiRotations: []float64{0}, AzimuthalAngles: []float64{0}, DetuningRotations: []float64{0}},
			func(*Options) {},
			"dynamic_decoupling_sequence",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.opts(&opts)

			_, err := ToCircuit(tt.seq, opts)
			require.ErrorIs(t, err, ErrInvalidArgument)

			var argErr *ArgumentError
			require.True(t, errors.As(err, &argErr))
			assert.Contains(t, argErr.Args, tt.arg)
		})
	}
}

func TestToCircuitInvalidSequenceWrapsCause(t *testing.T) {
	bad := &ddseq.Sequence{Duration: -1}
	_, err := ToCircuit(bad, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, err, ddseq.ErrInvalidSequence)
}

func TestToCircuitFixedDurationRejectsCloseOffsets(t *testing.T) {
	seq := mustSequence(t, 1,
		[]float64{0.5, 0.55},
		[]float64{math.Pi, math.Pi},
		[]float64{0, 0},
		[]float64{0, 0})

	opts := DefaultOptions()
	opts.GateTime = 0.25
	opts.Algorithm = FixedDurationUnitary
	_, err := ToCircuit(seq, opts)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "cannot be placed")

	opts.Algorithm = InstantUnitary
	_, err = ToCircuit(seq, opts)
	require.NoError(t, err)
}

func TestToCircuitMeasurementKeys(t *testing.T) {
	seq := mustScheme(t, ddseq.SpinEcho, ddseq.Params{Duration: 1})
	opts := DefaultOptions()
	opts.GateTime = 0.25
	opts.TargetQubits = []circuit.Qubit{4, 1, 7}

	c, err := ToCircuit(seq, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"qubit-0", "qubit-1", "qubit-2"}, c.MeasurementKeys())

	last := c.Moments()[c.MaxSteps-1]
	require.Len(t, last, 3)
	for i, q := range opts.TargetQubits {
		assert.Equal(t, int(q), last[i].Target)
		assert.Equal(t, MeasurementKey(i), last[i].Key)
	}

	opts.AddMeasurement = false
	c, err = ToCircuit(seq, opts)
	require.NoError(t, err)
	assert.Zero(t, c.Count("MEASURE"))
}

func TestToCircuitIsDeterministic(t *testing.T) {
	seq := mustScheme(t, ddseq.XYConcatenated, ddseq.DefaultParams(ddseq.XYConcatenated))
	opts := DefaultOptions()
	opts.TargetQubits = []circuit.Qubit{0, 1}

	first, err := ToCircuit(seq, opts)
	require.NoError(t, err)
	second, err := ToCircuit(seq, opts)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated conversion differs (-first +second):\n%s", diff)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]Algorithm{
		"instant":                InstantUnitary,
		"Fixed":                  FixedDurationUnitary,
		"fixed duration unitary": FixedDurationUnitary,
		" instant unitary ":      InstantUnitary,
	} {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseAlgorithm("slow")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestArgumentErrorFormatting(t *testing.T) {
	err := &ArgumentError{
		Message: "bad",
		Args:    map[string]any{"b": 2, "a": 1},
		Extras:  map[string]any{"offset": 0.5},
		Err:     fmt.Errorf("cause"),
	}
	assert.Equal(t, "bad a=1 b=2 offset=0.5: cause", err.Error())
}

var simulationCases = []struct {
	scheme ddseq.Scheme
	params ddseq.Params
	// prePostOnly marks schemes that flip the qubit unless wrapped in π/2 rotations.
	prePostOnly bool
}{
	{ddseq.SpinEcho, ddseq.Params{Duration: 4}, true},
	{ddseq.CarrPurcell, ddseq.Params{Duration: 4, OffsetCount: 2}, false},
	{ddseq.CarrPurcellMeiboomGill, ddseq.Params{Duration: 4, OffsetCount: 2}, false},
	{ddseq.UhrigSingleAxis, ddseq.Params{Duration: 4, OffsetCount: 2}, false},
	{ddseq.PeriodicSingleAxis, ddseq.Params{Duration: 4, OffsetCount: 2}, false},
	{ddseq.WalshSingleAxis, ddseq.Params{Duration: 4, PaleyOrder: 5}, false},
	{ddseq.Quadratic, ddseq.Params{Duration: 16, OuterOffsetCount: 4, InnerOffsetCount: 4}, false},
	{ddseq.XConcatenated, ddseq.Params{Duration: 16, ConcatenationOrder: 2}, false},
	{ddseq.XYConcatenated, ddseq.Params{Duration: 16, ConcatenationOrder: 2}, false},
}

func TestSimulatedSequencesPreserveGroundState(t *testing.T) {
	for _, tc := range simulationCases {
		for _, prePost := range []bool{false, true} {
			if tc.prePostOnly && !prePost {
				continue
			}
			name := fmt.Sprintf("%s/pre_post=%t", tc.scheme, prePost)
			t.Run(name, func(t *testing.T) {
				p := tc.params
				p.PrePostRotation = prePost
				seq := mustScheme(t, tc.scheme, p)

				for _, algorithm := range []Algorithm{InstantUnitary, FixedDurationUnitary} {
					opts := DefaultOptions()
					opts.Algorithm = algorithm

					c, err := ToCircuit(seq, opts)
					require.NoError(t, err, algorithm)

					result, err := circuit.NewSimulator(1).Run(c, 100)
					require.NoError(t, err)
					assert.Equal(t, map[int]int{0: 100}, result.Histogram(MeasurementKey(0)), algorithm)
				}

				sched, err := ToSchedule(seq, DefaultScheduleOptions())
				require.NoError(t, err)
				result, err := circuit.NewSimulator(1).Run(sched.ToCircuit(), 100)
				require.NoError(t, err)
				assert.Equal(t, map[int]int{0: 100}, result.Histogram(MeasurementKey(0)), "schedule")
			})
		}
	}
}

func TestSimulatedSpinEchoFlipsQubit(t *testing.T) {
	seq := mustScheme(t, ddseq.SpinEcho, ddseq.Params{Duration: 4})

	for _, algorithm := range []Algorithm{InstantUnitary, FixedDurationUnitary} {
		opts := DefaultOptions()
		opts.Algorithm = algorithm

		c, err := ToCircuit(seq, opts)
		require.NoError(t, err, algorithm)
		assert.Equal(t, 1, c.Count("RX"), algorithm)

		result, err := circuit.NewSimulator(1).Run(c, 50)
		require.NoError(t, err)
		assert.Equal(t, map[int]int{1: 50}, result.Histogram(MeasurementKey(0)), algorithm)
	}

	sched, err := ToSchedule(seq, DefaultScheduleOptions())
	require.NoError(t, err)
	result, err := circuit.NewSimulator(1).Run(sched.ToCircuit(), 50)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 50}, result.Histogram(MeasurementKey(0)), "schedule")
}
