// Package linesearch implements the Armijo/weak-Wolfe bracketing line
// search used by the optimizer's inner minimizer to pick a step length
// along a preconditioned descent direction.
package linesearch

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Armijo and weak-Wolfe constants, and the bracket-collapse tolerance. Weak
// (not strong) Wolfe is used deliberately: the search direction is already
// preconditioned by L-BFGS, and strong Wolfe was found to collapse the
// bracket too aggressively on preconditioned directions.
const (
	ArmijoC1    = 1e-3
	WolfeC2     = 0.9
	MinInterval = 1e-10

	// DefaultMaxSteps bounds the bracketing loop when Options.MaxSteps is
	// left at zero.
	DefaultMaxSteps = 10
)

// Eval evaluates energy and gradient at x. It is the subset of the
// optimizer's Oracle contract the line search needs; kept as its own type
// so this package has no dependency on the optimizer package.
type Eval func(x []float64) (phi float64, grad []float64, err error)

// Options configures a single AwLineSearch call. The zero value selects
// DefaultMaxSteps.
type Options struct {
	MaxSteps int
	Log      zerolog.Logger
}

// AwLineSearch searches for a step length t > 0 along descent direction d
// from x0 satisfying the Armijo sufficient-decrease condition and the weak
// Wolfe curvature condition. phi0 and g0 are the oracle's energy and
// gradient at x0 (the caller already has them, so the search does not
// re-evaluate at t=0).
//
// The bracket [a, b] starts at [0, +Inf). Each iteration evaluates f at
// x0 + t*d: if Armijo fails the step was too long (b = t); else if Wolfe
// fails the step was too short (a = t); else t is accepted. The next trial
// is the bracket midpoint when b is finite, otherwise a doubles. The loop
// stops when the bracket width drops below MinInterval or MaxSteps trials
// have run, returning the most recent t either way.
func AwLineSearch(x0 []float64, f Eval, d []float64, phi0 float64, g0 []float64, opts Options) (float64, error) {
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	dg0 := floats.Dot(d, g0)

	a, b := 0.0, math.Inf(1)
	t := 1.0

	x := make([]float64, len(x0))
	for i := 0; i < maxSteps; i++ {
		stepTo(x, x0, t, d)

		phiT, gT, err := f(x)
		if err != nil {
			return 0, err
		}

		armijoOK := phiT <= phi0+ArmijoC1*t*dg0
		wolfeOK := floats.Dot(d, gT) >= WolfeC2*dg0

		opts.Log.Debug().
			Float64("t", t).Float64("a", a).Float64("b", b).
			Bool("armijoOK", armijoOK).Bool("wolfeOK", wolfeOK).
			Msg("linesearch: bracket step")

		switch {
		case !armijoOK:
			b = t
		case !wolfeOK:
			a = t
		default:
			return t, nil
		}

		if b-a < MinInterval {
			break
		}

		if !math.IsInf(b, 1) {
			t = (a + b) / 2
		} else {
			t = 2 * a
		}
	}

	return t, nil
}

func stepTo(dst, x0 []float64, t float64, d []float64) {
	copy(dst, x0)
	floats.AddScaled(dst, t, d)
}
