package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"ddcirq/circuit"
	"ddcirq/convert"
	"ddcirq/ddseq"
)

// ConvertResult is the JSON payload of the convert command.
type ConvertResult struct {
	Sequence        string   `json:"sequence"`
	Algorithm       string   `json:"algorithm"`
	GateTime        float64  `json:"gate_time"`
	Qubits          int      `json:"qubits"`
	Moments         int      `json:"moments"`
	Operations      int      `json:"operations"`
	MeasurementKeys []string `json:"measurement_keys,omitempty"`
	QASM            string   `json:"qasm"`
}

func newConvertCommand(rootOpts *RootOptions) *cobra.Command {
	seqOpts := &sequenceOptions{}
	convOpts := &converterOptions{}

	cmd := &cobra.Command{
		Use:   "convert [sequence-file]",
		Short: "Convert a sequence into an OpenQASM circuit",
		Long: heredoc.Doc(`
			Convert a dynamic decoupling sequence into a gate-level circuit.

			Idle time between pulses becomes identity gates of one gate time each
			and every pulse becomes an RX, RY or RZ rotation on each target qubit.
		`),
		Example: heredoc.Doc(`
			ddcirq convert --scheme cpmg --offset-count 4 --duration 2
			ddcirq convert sequence.yaml --qubits 0,1 --algorithm fixed
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(rootOpts, seqOpts, convOpts, args, cmd)
		},
	}

	seqOpts.register(cmd)
	convOpts.register(cmd, true)
	return cmd
}

func runConvert(rootOpts *RootOptions, seqOpts *sequenceOptions, convOpts *converterOptions, args []string, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	seq, err := seqOpts.load(args)
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeInput, "failed to load sequence", err, nil)
	}
	opts, err := convOpts.options()
	if err != nil {
		return failConversion(f, "invalid converter options", err)
	}

	c, err := convert.ToCircuit(seq, opts)
	if err != nil {
		return failConversion(f, "conversion failed", err)
	}

	qasm := c.ToQASM()
	return f.Success(qasm, ConvertResult{
		Sequence:        seq.Name,
		Algorithm:       string(opts.Algorithm),
		GateTime:        opts.GateTime,
		Qubits:          c.NumQubits,
		Moments:         c.MaxSteps,
		Operations:      len(c.Gates),
		MeasurementKeys: c.MeasurementKeys(),
		QASM:            qasm,
	})
}

// ScheduledOperationResult is one operation in the schedule command's JSON payload.
type ScheduledOperationResult struct {
	TimeNs     int64     `json:"time_ns"`
	DurationNs int64     `json:"duration_ns"`
	Gate       string    `json:"gate"`
	Qubit      int       `json:"qubit"`
	Params     []float64 `json:"params,omitempty"`
	Key        string    `json:"key,omitempty"`
}

// ScheduleResult is the JSON payload of the schedule command.
type ScheduleResult struct {
	Sequence   string                     `json:"sequence"`
	Device     string                     `json:"device"`
	EndNs      int64                      `json:"end_ns"`
	Operations []ScheduledOperationResult `json:"operations"`
}

func newScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	seqOpts := &sequenceOptions{}
	convOpts := &converterOptions{}
	var devicePath string

	cmd := &cobra.Command{
		Use:   "schedule [sequence-file]",
		Short: "Convert a sequence into a timed schedule",
		Long: heredoc.Doc(`
			Convert a dynamic decoupling sequence into a schedule of timed
			operations. Every pulse starts at its offset and lasts one gate time.

			With --device, every operation is checked against a device described
			in TOML (device_name, max_qubits, gates, min_gate_duration_ns).
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(rootOpts, seqOpts, convOpts, devicePath, args, cmd)
		},
	}

	seqOpts.register(cmd)
	convOpts.register(cmd, false)
	cmd.Flags().StringVar(&devicePath, "device", "", "device setting TOML file")
	return cmd
}

func runSchedule(rootOpts *RootOptions, seqOpts *sequenceOptions, convOpts *converterOptions, devicePath string, args []string, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	seq, err := seqOpts.load(args)
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeInput, "failed to load sequence", err, nil)
	}

	opts := convert.ScheduleOptions{
		TargetQubits:   convOpts.targetQubits(),
		GateTime:       convOpts.gateTime,
		AddMeasurement: !convOpts.noMeasurement,
	}
	deviceName := "unconstrained"
	if devicePath != "" {
		ds, err := circuit.LoadDeviceSetting(devicePath)
		if err != nil {
			return f.Error(ExitCommandError, ErrCodeIO, "failed to load device", err, nil)
		}
		opts.Device = ds
		deviceName = ds.DeviceName
	}

	sched, err := convert.ToSchedule(seq, opts)
	if err != nil {
		return failConversion(f, "scheduling failed", err)
	}

	result := ScheduleResult{
		Sequence: seq.Name,
		Device:   deviceName,
		EndNs:    sched.End().Nanoseconds(),
	}
	for _, op := range sched.Operations {
		result.Operations = append(result.Operations, ScheduledOperationResult{
			TimeNs:     op.Time.Nanoseconds(),
			DurationNs: op.Duration.Nanoseconds(),
			Gate:       op.Gate.Type,
			Qubit:      op.Gate.Target,
			Params:     op.Gate.Params,
			Key:        op.Gate.Key,
		})
	}
	return f.Success(sched.String(), result)
}

// SimulateResult is the JSON payload of the simulate command.
type SimulateResult struct {
	Sequence    string                 `json:"sequence"`
	Repetitions int                    `json:"repetitions"`
	Histograms  map[string]map[int]int `json:"histograms"`
}

func newSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	seqOpts := &sequenceOptions{}
	convOpts := &converterOptions{}
	var (
		repetitions  int
		seed         uint64
		fromSchedule bool
	)

	cmd := &cobra.Command{
		Use:   "simulate [sequence-file]",
		Short: "Convert a sequence and sample its measurements",
		Long: heredoc.Doc(`
			Convert a sequence, run the circuit on a state-vector simulator from
			|0…0⟩ and print a histogram of each measurement key.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			seq, err := seqOpts.load(args)
			if err != nil {
				return f.Error(ExitCommandError, ErrCodeInput, "failed to load sequence", err, nil)
			}

			var c *circuit.Circuit
			if fromSchedule {
				sched, err := convert.ToSchedule(seq, convert.ScheduleOptions{
					TargetQubits:   convOpts.targetQubits(),
					GateTime:       convOpts.gateTime,
					AddMeasurement: !convOpts.noMeasurement,
				})
				if err != nil {
					return failConversion(f, "scheduling failed", err)
				}
				c = sched.ToCircuit()
			} else {
				opts, err := convOpts.options()
				if err != nil {
					return failConversion(f, "invalid converter options", err)
				}
				if c, err = convert.ToCircuit(seq, opts); err != nil {
					return failConversion(f, "conversion failed", err)
				}
			}

			result, err := circuit.NewSimulator(seed).Run(c, repetitions)
			if err != nil {
				return f.Error(ExitFailure, ErrCodeSimulation, "simulation failed", err, nil)
			}
			return f.Success(formatHistograms(result), SimulateResult{
				Sequence:    seq.Name,
				Repetitions: result.Repetitions,
				Histograms:  histograms(result),
			})
		},
	}

	seqOpts.register(cmd)
	convOpts.register(cmd, true)
	cmd.Flags().IntVar(&repetitions, "repetitions", 100, "number of circuit runs")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().BoolVar(&fromSchedule, "from-schedule", false, "simulate the schedule instead of the circuit")
	return cmd
}

func histograms(r *circuit.Result) map[string]map[int]int {
	out := make(map[string]map[int]int, len(r.Measurements))
	for key := range r.Measurements {
		out[key] = r.Histogram(key)
	}
	return out
}

func formatHistograms(r *circuit.Result) string {
	var sb strings.Builder
	keys := make([]string, 0, len(r.Measurements))
	for key := range r.Measurements {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		hist := r.Histogram(key)
		fmt.Fprintf(&sb, "%s: 0=%d 1=%d\n", key, hist[0], hist[1])
	}
	return sb.String()
}

// SchemeInfo describes one scheme in the schemes command's JSON payload.
type SchemeInfo struct {
	Name     string       `json:"name"`
	Aliases  []string     `json:"aliases,omitempty"`
	Defaults ddseq.Params `json:"defaults"`
}

func newSchemesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List the dynamic decoupling schemes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			var (
				sb    strings.Builder
				infos []SchemeInfo
			)
			for _, s := range ddseq.Schemes {
				info := SchemeInfo{Name: string(s), Aliases: ddseq.Aliases(s), Defaults: ddseq.DefaultParams(s)}
				infos = append(infos, info)
				fmt.Fprintf(&sb, "%-28s %s\n", info.Name, strings.Join(info.Aliases, ", "))
			}
			return f.Success(sb.String(), infos)
		},
	}
}
