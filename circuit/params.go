package circuit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// paramPattern matches one angle inside a QASM gate call, e.g. "0.5",
// "-pi", "3*pi/4" or "2pi".
const paramPattern = `-?(?:\d*\.?\d*\*?pi(?:/\d+\.?\d*)?|\d+\.?\d*(?:[eE][+\-]?\d+)?)`

// maxPiDenominator bounds the fractions of π that FormatParam writes symbolically.
const maxPiDenominator = 8

// ParseParam reads an angle written as a number or as a rational multiple of
// pi ("pi", "-pi/2", "3*pi/4", "2pi"). Spaces around operators are allowed.
func ParseParam(s string) (float64, bool) {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}

	sign := 1.0
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign, s = -1, rest
	}
	num, den, hasDen := strings.Cut(s, "/")

	coeff, ok := strings.CutSuffix(num, "pi")
	if !ok {
		return 0, false
	}
	coeff = strings.TrimSuffix(coeff, "*")
	k := 1.0
	if coeff != "" {
		v, err := strconv.ParseFloat(coeff, 64)
		if err != nil {
			return 0, false
		}
		k = v
	}

	d := 1.0
	if hasDen {
		v, err := strconv.ParseFloat(den, 64)
		if err != nil || v == 0 {
			return 0, false
		}
		d = v
	}
	return sign * k * math.Pi / d, true
}

// FormatParam writes val as k*pi/d when it is a multiple of π with a small
// denominator, otherwise as a plain number.
func FormatParam(val float64) string {
	if val == 0 {
		return "0"
	}
	for d := 1; d <= maxPiDenominator; d++ {
		k := val * float64(d) / math.Pi
		n := math.Round(k)
		if n == 0 || math.Abs(k-n) > 1e-9 || gcd(int(math.Abs(n)), d) != 1 {
			continue
		}
		return piFraction(int(n), d)
	}
	return fmt.Sprintf("%g", val)
}

func piFraction(n, d int) string {
	var sb strings.Builder
	if n < 0 {
		sb.WriteByte('-')
		n = -n
	}
	if n != 1 {
		fmt.Fprintf(&sb, "%d*", n)
	}
	sb.WriteString("pi")
	if d != 1 {
		fmt.Fprintf(&sb, "/%d", d)
	}
	return sb.String()
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
