package convert

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddcirq/circuit"
	"ddcirq/ddseq"
)

func TestToScheduleTimings(t *testing.T) {
	seq := mustSequence(t, 4,
		[]float64{1, 3},
		[]float64{math.Pi, 0},
		[]float64{0, 0},
		[]float64{0, math.Pi})

	opts := DefaultScheduleOptions()
	opts.TargetQubits = []circuit.Qubit{0, 1}

	sched, err := ToSchedule(seq, opts)
	require.NoError(t, err)
	require.Len(t, sched.Operations, 6)

	gate := 100 * time.Millisecond
	for _, op := range sched.Operations[:2] {
		assert.Equal(t, time.Second, op.Time)
		assert.Equal(t, gate, op.Duration)
		assert.Equal(t, "RX", op.Gate.Type)
	}
	for _, op := range sched.Operations[2:4] {
		assert.Equal(t, 3*time.Second, op.Time)
		assert.Equal(t, "RZ", op.Gate.Type)
	}
	for i, op := range sched.Operations[4:] {
		assert.Equal(t, 3*time.Second+gate, op.Time)
		assert.Equal(t, "MEASURE", op.Gate.Type)
		assert.Equal(t, MeasurementKey(i), op.Gate.Key)
	}
	assert.Equal(t, 3*time.Second+2*gate, sched.End())
}

func TestToScheduleHasNoIdentityPadding(t *testing.T) {
	seq := mustScheme(t, ddseq.CarrPurcell, ddseq.DefaultParams(ddseq.CarrPurcell))
	sched, err := ToSchedule(seq, DefaultScheduleOptions())
	require.NoError(t, err)

	c := sched.ToCircuit()
	assert.Zero(t, c.Count("I"))
	assert.Equal(t, 2, c.Count("RX"))
	assert.Equal(t, 3, c.MaxSteps)
}

func TestToScheduleEmitsRYForYPulses(t *testing.T) {
	seq := mustScheme(t, ddseq.CarrPurcellMeiboomGill, ddseq.DefaultParams(ddseq.CarrPurcellMeiboomGill))
	sched, err := ToSchedule(seq, DefaultScheduleOptions())
	require.NoError(t, err)

	c := sched.ToCircuit()
	assert.Equal(t, 2, c.Count("RY"))
	assert.Zero(t, c.Count("RX"))
}

func TestToScheduleDeviceViolation(t *testing.T) {
	seq := mustScheme(t, ddseq.SpinEcho, ddseq.Params{Duration: 1})

	device := circuit.NewDeviceSetting()
	device.DeviceName = "one-qubit"
	device.MaxQubits = 1

	opts := DefaultScheduleOptions()
	opts.TargetQubits = []circuit.Qubit{0, 1}
	opts.Device = device

	_, err := ToSchedule(seq, opts)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, err, circuit.ErrDeviceConstraint)
	assert.Contains(t, err.Error(), "one-qubit")
}

func TestToScheduleArgumentErrors(t *testing.T) {
	seq := mustScheme(t, ddseq.SpinEcho, ddseq.Params{Duration: 1})

	_, err := ToSchedule(nil, DefaultScheduleOptions())
	require.ErrorIs(t, err, ErrInvalidArgument)

	opts := DefaultScheduleOptions()
	opts.GateTime = 0
	_, err = ToSchedule(seq, opts)
	require.ErrorIs(t, err, ErrInvalidArgument)

	opts.GateTime = 4e-10
	_, err = ToSchedule(seq, opts)
	require.ErrorIs(t, err, ErrInvalidArgument)
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Contains(t, argErr.Args, "gate_time")

	opts.GateTime = 1e-9
	sched, err := ToSchedule(seq, opts)
	require.NoError(t, err)
	assert.Equal(t, time.Nanosecond, sched.Operations[0].Duration)

	multi := mustSequence(t, 1, []float64{0.5}, []float64{math.Pi}, []float64{0}, []float64{math.Pi})
	_, err = ToSchedule(multi, DefaultScheduleOptions())
	require.ErrorIs(t, err, ErrInvalidArgument)
}
