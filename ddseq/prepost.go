package ddseq

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// addPrePostRotations wraps the pulses in π/2 rotations about X at the start
// and end of the sequence. The closing rotation points along +X or -X,
// whichever brings the ideal Bloch vector back to |0⟩.
func addPrePostRotations(duration float64, pulses []pulse) []pulse {
	pre := pulse{offset: 0, rabi: math.Pi / 2}

	bloch := mat.NewVecDense(3, []float64{0, 0, 1})
	bloch = rotate(bloch, pre)
	for _, p := range pulses {
		bloch = rotate(bloch, p)
	}

	post := pulse{offset: duration, rabi: math.Pi / 2}
	flipped := post
	flipped.azimuth = math.Pi
	if rotate(bloch, flipped).AtVec(2) > rotate(bloch, post).AtVec(2) {
		post = flipped
	}

	out := make([]pulse, 0, len(pulses)+2)
	out = append(out, pre)
	out = append(out, pulses...)
	return append(out, post)
}

// rotate applies the pulse to a Bloch vector with Rodrigues' formula
// R = cosθ·I + sinθ·[n]× + (1-cosθ)·n·nᵀ.
func rotate(v *mat.VecDense, p pulse) *mat.VecDense {
	axis := mat.NewVecDense(3, []float64{
		p.rabi * math.Cos(p.azimuth),
		p.rabi * math.Sin(p.azimuth),
		p.detuning,
	})
	theta := mat.Norm(axis, 2)
	if theta == 0 {
		return mat.VecDenseCopyOf(v)
	}
	axis.ScaleVec(1/theta, axis)
	nx, ny, nz := axis.AtVec(0), axis.AtVec(1), axis.AtVec(2)

	cross := mat.NewDense(3, 3, []float64{
		0, -nz, ny,
		nz, 0, -nx,
		-ny, nx, 0,
	})
	var outer mat.Dense
	outer.Outer(1-math.Cos(theta), axis, axis)

	r := mat.NewDense(3, 3, nil)
	r.Scale(math.Sin(theta), cross)
	r.Add(r, &outer)
	for i := range 3 {
		r.Set(i, i, r.At(i, i)+math.Cos(theta))
	}

	var out mat.VecDense
	out.MulVec(r, v)
	return &out
}
