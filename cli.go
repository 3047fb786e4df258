package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ddcirq/circuit"
	"ddcirq/convert"
	"ddcirq/ddseq"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newLogger builds the process logger. Verbose runs get the development
// encoder at debug level; otherwise only warnings and above are written.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ddcirq",
		Short: "Convert dynamic decoupling sequences into quantum circuits",
		Long: heredoc.Doc(`
			ddcirq turns dynamic decoupling sequences into gate-level circuits
			and timed schedules.

			A sequence comes from a named scheme and flags, or from a YAML, JSON
			or HCL file. Circuits are written as OpenQASM 2.0.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return wrapExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return wrapExitError(ExitCommandError, "failed to create logger", err)
			}
			zap.ReplaceGlobals(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newConvertCommand(opts))
	cmd.AddCommand(newScheduleCommand(opts))
	cmd.AddCommand(newSimulateCommand(opts))
	cmd.AddCommand(newSchemesCommand(opts))
	cmd.AddCommand(newViewCommand(opts))

	return cmd
}

// sequenceOptions selects the sequence a command works on. A file argument
// takes precedence over the scheme flags.
type sequenceOptions struct {
	file ddseq.File
}

func (o *sequenceOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.file.Scheme, "scheme", string(ddseq.SpinEcho), "dynamic decoupling scheme (see the schemes command)")
	f.StringVar(&o.file.Name, "name", "", "sequence name (defaults to the scheme name)")
	f.Float64Var(&o.file.Duration, "duration", 0, "sequence duration in seconds (0 uses the scheme default)")
	f.IntVar(&o.file.OffsetCount, "offset-count", 0, "number of pulses for CP, CPMG, Uhrig and periodic schemes")
	f.IntVar(&o.file.PaleyOrder, "paley-order", 0, "Paley order of the Walsh scheme")
	f.IntVar(&o.file.OuterOffsetCount, "outer-offset-count", 0, "outer Z pulses of the quadratic scheme")
	f.IntVar(&o.file.InnerOffsetCount, "inner-offset-count", 0, "inner X pulses of the quadratic scheme")
	f.IntVar(&o.file.ConcatenationOrder, "concatenation-order", 0, "order of the concatenated schemes")
	f.BoolVar(&o.file.PrePostRotation, "pre-post-rotation", false, "wrap the sequence in π/2 rotations")
}

func (o *sequenceOptions) load(args []string) (*ddseq.Sequence, error) {
	if len(args) > 0 {
		return ddseq.LoadFile(args[0])
	}
	return o.file.Sequence()
}

// converterOptions are the flags shared by the converting commands.
type converterOptions struct {
	qubits        []int
	gateTime      float64
	noMeasurement bool
	algorithm     string
}

func (o *converterOptions) register(cmd *cobra.Command, withAlgorithm bool) {
	f := cmd.Flags()
	f.IntSliceVar(&o.qubits, "qubits", []int{0}, "target qubit indices")
	f.Float64Var(&o.gateTime, "gate-time", 0.1, "duration of one gate in seconds")
	f.BoolVar(&o.noMeasurement, "no-measurement", false, "omit the final measurements")
	if withAlgorithm {
		f.StringVar(&o.algorithm, "algorithm", "instant", "rotation timing: instant or fixed")
	}
}

func (o *converterOptions) targetQubits() []circuit.Qubit {
	qubits := make([]circuit.Qubit, len(o.qubits))
	for i, q := range o.qubits {
		qubits[i] = circuit.Qubit(q)
	}
	return qubits
}

func (o *converterOptions) options() (convert.Options, error) {
	algorithm, err := convert.ParseAlgorithm(o.algorithm)
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		TargetQubits:   o.targetQubits(),
		GateTime:       o.gateTime,
		AddMeasurement: !o.noMeasurement,
		Algorithm:      algorithm,
	}, nil
}

// failConversion reports an error from a converter. Argument errors are
// failures of the input; everything else is treated as a command error.
func failConversion(f *OutputFormatter, message string, err error) error {
	var argErr *convert.ArgumentError
	if errors.As(err, &argErr) {
		details := map[string]any{}
		for k, v := range argErr.Args {
			details[k] = fmt.Sprint(v)
		}
		for k, v := range argErr.Extras {
			details[k] = fmt.Sprint(v)
		}
		return f.Error(ExitFailure, ErrCodeInvalidArgument, message, err, details)
	}
	return f.Error(ExitCommandError, ErrCodeInput, message, err, nil)
}
