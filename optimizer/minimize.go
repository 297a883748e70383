package optimizer

import (
	"math"

	"github.com/GuerricChupin/penrose-opt/lbfgs"
	"github.com/GuerricChupin/penrose-opt/linesearch"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// UOStop is the convergence threshold on NormGrad = <g, gPre>, the
// Newton-decrement-like quantity Minimize uses in place of a Euclidean
// gradient norm. Acknowledged as loose; tightening it interacts poorly
// with linesearch.MinInterval (see the quadratic-exactness test before
// retuning).
const UOStop = 1e-2

// breakEarly gates the early-convergence check inside Minimize's loop. It
// is a package constant, not a parameter: nothing exercises it false.
const breakEarly = true

// MinimizeResult is the outcome of up to numSteps inner iterations.
type MinimizeResult struct {
	X                           []float64
	Phi                         float64
	NormGrad                    float64
	LBFGS                       lbfgs.State
	Grad, GradPreconditioned    []float64
	ObjEnergies, ConstrEnergies []float64
	// Failed reports a NaN discovered in phi or ||grad|| after a
	// successful oracle evaluation. Not a Go error: the caller (Step)
	// turns this into a terminal Error status.
	Failed bool

	// FuncEvals/GradEvals are diagnostic counters, never used to decide
	// control flow.
	FuncEvals, GradEvals int
}

// MinimizeOptions configures a single Minimize call.
type MinimizeOptions struct {
	Log zerolog.Logger
}

// Minimize runs up to numSteps L-BFGS + line-search iterations from x0
// against oracle f, starting from L-BFGS history lb. It returns early once
// NormGrad drops below UOStop. A NaN found in x before evaluation, or in
// the oracle's gradient after evaluation, is fatal (ErrNaNInState /
// ErrNaNInGradient); a NaN found in phi or ||grad|| after a successful,
// non-NaN gradient evaluation is recoverable and reported via
// MinimizeResult.Failed instead.
func Minimize(x0 []float64, f Oracle, lb lbfgs.State, numSteps int, opts MinimizeOptions) (MinimizeResult, error) {
	if numSteps < 1 {
		return MinimizeResult{}, errors.Wrapf(ErrInsufficientSteps, "got %d", numSteps)
	}

	x := append([]float64(nil), x0...)
	res := MinimizeResult{LBFGS: lb}

	for iter := 0; iter < numSteps; iter++ {
		if floats.HasNaN(x) {
			return MinimizeResult{}, errors.Wrap(ErrNaNInState, "optimizer.Minimize")
		}

		oracleRes, err := f(x)
		if err != nil {
			return MinimizeResult{}, errors.Wrap(err, "optimizer.Minimize: oracle evaluation failed")
		}
		res.FuncEvals++
		res.GradEvals++

		if floats.HasNaN(oracleRes.Grad) {
			return MinimizeResult{}, errors.Wrap(ErrNaNInGradient, "optimizer.Minimize")
		}

		lbRes, err := lbfgs.Step(x, oracleRes.Grad, res.LBFGS)
		if err != nil {
			return MinimizeResult{}, errors.Wrap(err, "optimizer.Minimize: lbfgs step failed")
		}
		res.LBFGS = lbRes.State

		normGrad := floats.Dot(oracleRes.Grad, lbRes.GradPre)

		res.X = x
		res.Phi = oracleRes.Phi
		res.NormGrad = normGrad
		res.Grad = oracleRes.Grad
		res.GradPreconditioned = lbRes.GradPre
		res.ObjEnergies = oracleRes.ObjEnergies
		res.ConstrEnergies = oracleRes.ConstrEnergies

		if breakEarly && normGrad < UOStop {
			opts.Log.Info().Int("iterations", iter+1).Float64("normGrad", normGrad).
				Msg("optimizer.Minimize: converged")
			break
		}

		d := negate(lbRes.GradPre)
		t, err := linesearch.AwLineSearch(x, adaptOracle(f), d, oracleRes.Phi, oracleRes.Grad, linesearch.Options{Log: opts.Log})
		if err != nil {
			return MinimizeResult{}, errors.Wrap(err, "optimizer.Minimize: line search failed")
		}

		if math.IsNaN(oracleRes.Phi) || math.IsNaN(floats.Norm(oracleRes.Grad, 2)) {
			res.Failed = true
			opts.Log.Warn().Int("iteration", iter).Msg("optimizer.Minimize: NaN energy, surfacing as failed")
			break
		}

		next := make([]float64, len(x))
		floats.AddScaledTo(next, x, -t, lbRes.GradPre)
		x = next
		res.X = x

		if iter == numSteps-1 {
			opts.Log.Info().Int("iterations", iter+1).Float64("normGrad", normGrad).
				Msg("optimizer.Minimize: step budget exhausted")
		}
	}

	return res, nil
}

func adaptOracle(f Oracle) linesearch.Eval {
	return func(x []float64) (float64, []float64, error) {
		r, err := f(x)
		if err != nil {
			return 0, nil, err
		}
		return r.Phi, r.Grad, nil
	}
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}
