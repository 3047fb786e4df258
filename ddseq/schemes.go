package ddseq

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Scheme names a family of dynamic decoupling sequences.
type Scheme string

const (
	SpinEcho               Scheme = "spin echo"
	CarrPurcell            Scheme = "Carr-Purcell"
	CarrPurcellMeiboomGill Scheme = "Carr-Purcell-Meiboom-Gill"
	UhrigSingleAxis        Scheme = "Uhrig single-axis"
	PeriodicSingleAxis     Scheme = "periodic single-axis"
	WalshSingleAxis        Scheme = "Walsh single-axis"
	Quadratic              Scheme = "quadratic"
	XConcatenated          Scheme = "X concatenated"
	XYConcatenated         Scheme = "XY concatenated"
)

// Schemes lists every supported scheme.
var Schemes = []Scheme{
	SpinEcho,
	CarrPurcell,
	CarrPurcellMeiboomGill,
	UhrigSingleAxis,
	PeriodicSingleAxis,
	WalshSingleAxis,
	Quadratic,
	XConcatenated,
	XYConcatenated,
}

var schemeAliases = map[string]Scheme{
	"spin-echo": SpinEcho,
	"cp":        CarrPurcell,
	"cpmg":      CarrPurcellMeiboomGill,
	"uhrig":     UhrigSingleAxis,
	"periodic":  PeriodicSingleAxis,
	"walsh":     WalshSingleAxis,
	"x-concat":  XConcatenated,
	"xy-concat": XYConcatenated,
}

// ParseScheme resolves a scheme from its name (case-insensitive) or a short alias.
func ParseScheme(name string) (Scheme, error) {
	name = strings.TrimSpace(name)
	for _, s := range Schemes {
		if strings.EqualFold(string(s), name) {
			return s, nil
		}
	}
	if s, ok := schemeAliases[strings.ToLower(name)]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown scheme %q", ErrInvalidSequence, name)
}

// Aliases returns the short names accepted for s, sorted.
func Aliases(s Scheme) []string {
	var out []string
	for alias, target := range schemeAliases {
		if target == s {
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}

// Params carries the scheme parameters. Only the fields a scheme uses are read.
type Params struct {
	Duration           float64 `json:"duration"`
	OffsetCount        int     `json:"offset_count"`
	PaleyOrder         int     `json:"paley_order"`
	OuterOffsetCount   int     `json:"outer_offset_count"`
	InnerOffsetCount   int     `json:"inner_offset_count"`
	ConcatenationOrder int     `json:"concatenation_order"`
	PrePostRotation    bool    `json:"pre_post_rotation"`
}

// DefaultParams returns the parameters used for a scheme when none are given.
func DefaultParams(s Scheme) Params {
	p := Params{
		Duration:           4,
		OffsetCount:        2,
		PaleyOrder:         5,
		OuterOffsetCount:   4,
		InnerOffsetCount:   4,
		ConcatenationOrder: 2,
	}
	switch s {
	case Quadratic, XConcatenated, XYConcatenated:
		p.Duration = 16
	}
	return p
}

// pulse is one instantaneous rotation before it is split into the parallel slices.
type pulse struct {
	offset, rabi, azimuth, detuning float64
}

var (
	xPulse = pulse{rabi: math.Pi}
	yPulse = pulse{rabi: math.Pi, azimuth: math.Pi / 2}
	zPulse = pulse{detuning: math.Pi}
)

func (p pulse) at(offset float64) pulse {
	p.offset = offset
	return p
}

// NewFromScheme builds the named sequence.
func NewFromScheme(s Scheme, p Params) (*Sequence, error) {
	if p.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidSequence, p.Duration)
	}

	var pulses []pulse
	var err error
	switch s {
	case SpinEcho:
		pulses = []pulse{xPulse.at(p.Duration / 2)}
	case CarrPurcell:
		pulses, err = carrPurcell(p.Duration, p.OffsetCount, xPulse)
	case CarrPurcellMeiboomGill:
		pulses, err = carrPurcell(p.Duration, p.OffsetCount, yPulse)
	case UhrigSingleAxis:
		pulses, err = uhrig(0, p.Duration, p.OffsetCount, yPulse)
	case PeriodicSingleAxis:
		pulses, err = periodic(p.Duration, p.OffsetCount)
	case WalshSingleAxis:
		pulses, err = walsh(p.Duration, p.PaleyOrder)
	case Quadratic:
		pulses, err = quadratic(p.Duration, p.OuterOffsetCount, p.InnerOffsetCount)
	case XConcatenated:
		pulses, err = concatenated(p.Duration, p.ConcatenationOrder, []pauli{pauliX, pauliX})
	case XYConcatenated:
		pulses, err = concatenated(p.Duration, p.ConcatenationOrder, []pauli{pauliX, pauliY, pauliX, pauliY})
	default:
		return nil, fmt.Errorf("%w: unknown scheme %q", ErrInvalidSequence, s)
	}
	if err != nil {
		return nil, err
	}

	if p.PrePostRotation {
		pulses = addPrePostRotations(p.Duration, pulses)
	}
	return fromPulses(p.Duration, pulses, string(s))
}

func fromPulses(duration float64, pulses []pulse, name string) (*Sequence, error) {
	slices.SortStableFunc(pulses, func(a, b pulse) int {
		switch {
		case a.offset < b.offset:
			return -1
		case a.offset > b.offset:
			return 1
		}
		return 0
	})
	n := len(pulses)
	offsets := make([]float64, n)
	rabi := make([]float64, n)
	azimuth := make([]float64, n)
	detuning := make([]float64, n)
	for i, p := range pulses {
		offsets[i], rabi[i], azimuth[i], detuning[i] = p.offset, p.rabi, p.azimuth, p.detuning
	}
	return New(duration, offsets, rabi, azimuth, detuning, name)
}

func requirePositive(name string, v int) error {
	if v < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidSequence, name, v)
	}
	return nil
}

// carrPurcell places n pulses at (2k-1)/(2n) of the duration.
func carrPurcell(duration float64, n int, kind pulse) ([]pulse, error) {
	if err := requirePositive("offset count", n); err != nil {
		return nil, err
	}
	pulses := make([]pulse, n)
	for k := 1; k <= n; k++ {
		pulses[k-1] = kind.at(duration * float64(2*k-1) / float64(2*n))
	}
	return pulses, nil
}

// uhrig places n pulses at start + span·sin²(πk/(2n+2)).
func uhrig(start, span float64, n int, kind pulse) ([]pulse, error) {
	if err := requirePositive("offset count", n); err != nil {
		return nil, err
	}
	pulses := make([]pulse, n)
	for k := 1; k <= n; k++ {
		s := math.Sin(math.Pi * float64(k) / float64(2*n+2))
		pulses[k-1] = kind.at(start + span*s*s)
	}
	return pulses, nil
}

// periodic places n pulses at k/(n+1) of the duration.
func periodic(duration float64, n int) ([]pulse, error) {
	if err := requirePositive("offset count", n); err != nil {
		return nil, err
	}
	pulses := make([]pulse, n)
	for k := 1; k <= n; k++ {
		pulses[k-1] = xPulse.at(duration * float64(k) / float64(n+1))
	}
	return pulses, nil
}

// walsh places a pulse wherever the Paley-ordered Walsh function of the
// given order changes sign. The function is a product of Rademacher
// functions r_j(t) = sign(sin(2^j πt)), one per set bit j of the order, so
// it is constant on 2^bits equal intervals.
func walsh(duration float64, order int) ([]pulse, error) {
	if err := requirePositive("paley order", order); err != nil {
		return nil, err
	}
	bits := 0
	for v := order; v > 0; v >>= 1 {
		bits++
	}
	segments := 1 << bits

	value := func(segment int) int {
		parity := 0
		for j := 1; j <= bits; j++ {
			if order&(1<<(j-1)) != 0 {
				parity ^= (segment >> (bits - j)) & 1
			}
		}
		return parity
	}

	var pulses []pulse
	for i := 1; i < segments; i++ {
		if value(i) != value(i-1) {
			pulses = append(pulses, xPulse.at(duration*float64(i)/float64(segments)))
		}
	}
	return pulses, nil
}

// quadratic nests Uhrig X sequences inside each interval of an outer Uhrig Z sequence.
func quadratic(duration float64, outer, inner int) ([]pulse, error) {
	if err := requirePositive("outer offset count", outer); err != nil {
		return nil, err
	}
	if err := requirePositive("inner offset count", inner); err != nil {
		return nil, err
	}
	outerPulses, err := uhrig(0, duration, outer, zPulse)
	if err != nil {
		return nil, err
	}

	bounds := make([]float64, 0, outer+2)
	bounds = append(bounds, 0)
	for _, p := range outerPulses {
		bounds = append(bounds, p.offset)
	}
	bounds = append(bounds, duration)

	pulses := slices.Clone(outerPulses)
	for i := 0; i+1 < len(bounds); i++ {
		innerPulses, err := uhrig(bounds[i], bounds[i+1]-bounds[i], inner, xPulse)
		if err != nil {
			return nil, err
		}
		pulses = append(pulses, innerPulses...)
	}
	return pulses, nil
}

// pauli is a π rotation about X, Y or Z up to global phase, encoded by its
// X and Z components so that composition is XOR.
type pauli uint8

const (
	pauliI pauli = 0
	pauliX pauli = 1
	pauliZ pauli = 2
	pauliY pauli = pauliX | pauliZ
)

func (p pauli) pulse() pulse {
	switch p {
	case pauliX:
		return xPulse
	case pauliY:
		return yPulse
	default:
		return zPulse
	}
}

// concatenated expands C_l = C_{l-1} g_1 C_{l-1} g_2 … with C_0 a free
// evolution, then merges the pulses that meet between two free evolutions.
func concatenated(duration float64, order int, generators []pauli) ([]pulse, error) {
	if err := requirePositive("concatenation order", order); err != nil {
		return nil, err
	}

	// -1 marks a free evolution period; everything else is a pulse.
	const free = -1
	tokens := []int{free}
	for range order {
		next := make([]int, 0, len(tokens)*len(generators)*2)
		for _, g := range generators {
			next = append(next, tokens...)
			next = append(next, int(g))
		}
		tokens = next
	}

	periods := 0
	for _, t := range tokens {
		if t == free {
			periods++
		}
	}
	unit := duration / float64(periods)

	var pulses []pulse
	elapsed := 0
	pending := pauliI
	flush := func() {
		if pending != pauliI {
			pulses = append(pulses, pending.pulse().at(unit*float64(elapsed)))
		}
		pending = pauliI
	}
	for _, t := range tokens {
		if t == free {
			flush()
			elapsed++
			continue
		}
		pending ^= pauli(t)
	}
	flush()
	return pulses, nil
}
