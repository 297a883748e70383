package optimizer

import (
	"github.com/GuerricChupin/penrose-opt/lbfgs"
	"github.com/pkg/errors"
)

// CompiledFunc is a compiled, ready-to-evaluate form of a scalarized
// energy: given x, it returns phi, the gradient of phi with respect to all
// n parameters, and the per-term secondary outputs (objective terms
// followed by constraint terms, in the order GraphHandles supplied them).
// This is the interface the out-of-scope computation-graph/autodiff
// collaborator must satisfy.
type CompiledFunc func(x []float64) (phi float64, grad []float64, secondary [][]float64, err error)

// GraphHandles is an opaque reference to a vector of computation-graph
// nodes (objective or constraint terms) as produced by the external graph
// builder. The optimizer package never inspects it; it only threads it
// through to GraphCompiler.
type GraphHandles any

// GraphCompiler turns objective and constraint graph handles, scaled by
// the EP weight w, into a CompiledFunc computing
// phi(x; w) = sum(O(x)) + c0*w*sum(penalty(C(x))) and its gradient.
// penalty(v) = max(v, 0)^2; c0 = ConstraintWeightC0.
type GraphCompiler interface {
	Compile(objectives, constraints GraphHandles, w float64) (CompiledFunc, error)
}

// BuildOptions configures BuildProblem.
type BuildOptions struct {
	// InitConstraintWeight seeds Params.Weight. Zero selects
	// DefaultInitConstraintWeight.
	InitConstraintWeight float64
}

// DefaultInitConstraintWeight is used when BuildOptions.InitConstraintWeight
// is left at zero.
const DefaultInitConstraintWeight = 10.0

// DefaultBuildOptions returns BuildOptions with every knob at its default.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{InitConstraintWeight: DefaultInitConstraintWeight}
}

// BuildProblem wraps a compiled, weight-scalarized energy function behind
// the OracleFactory contract and returns the State a caller starts calling
// Step on.
//
// x0 is the initial parameter vector (length n); inputs tags each index as
// Optimized or Pending, length n. compiler.Compile runs each time the
// returned OracleFactory is called: once here for the initial weight, and
// again whenever Step rebinds the oracle (NewIter, weight growth). Weights
// are never compiled ahead of the round that uses them.
func BuildProblem(x0 []float64, inputs []InputTag, objectives, constraints GraphHandles, compiler GraphCompiler, opts BuildOptions) (State, error) {
	if len(inputs) != len(x0) {
		return State{}, errors.Errorf("optimizer.BuildProblem: len(inputs)=%d != len(x0)=%d", len(inputs), len(x0))
	}
	if opts.InitConstraintWeight <= 0 {
		opts.InitConstraintWeight = DefaultInitConstraintWeight
	}

	factory := makeOracleFactory(inputs, objectives, constraints, compiler)

	initWeight := opts.InitConstraintWeight
	frozen := FrozenSet{}

	return State{
		VaryingValues: append([]float64(nil), x0...),
		FrozenValues:  frozen,
		Params: OptParams{
			Weight:        initWeight,
			Status:        UnconstrainedRunning,
			LBFGS:         lbfgs.DefaultState(),
			OracleFactory: factory,
			CurrOracle:    factory(initWeight, frozen),
		},
	}, nil
}

// makeOracleFactory closes over the caller-supplied graph handles and
// compiler and returns an OracleFactory that masks every gradient entry
// not tagged Optimized, or present in the frozen set passed at call time,
// down to zero. A missing (shorter-than-n) gradient entry from the
// compiled function is treated as zero, per spec.
func makeOracleFactory(inputs []InputTag, objectives, constraints GraphHandles, compiler GraphCompiler) OracleFactory {
	n := len(inputs)

	return func(w float64, frozen FrozenSet) Oracle {
		compiled, err := compiler.Compile(objectives, constraints, w)
		if err != nil {
			// Compilation failures are surfaced lazily, on first
			// evaluation, so a bad weight only breaks the round that
			// actually requests it.
			return func(x []float64) (OracleResult, error) {
				return OracleResult{}, errors.Wrapf(err, "optimizer: failed to compile oracle for weight %v", w)
			}
		}

		return func(x []float64) (OracleResult, error) {
			phi, grad, secondary, err := compiled(x)
			if err != nil {
				return OracleResult{}, err
			}

			maskedGrad := make([]float64, n)
			for i := 0; i < n && i < len(grad); i++ {
				if inputs[i] == Optimized && !frozen.Has(i) {
					maskedGrad[i] = grad[i]
				}
			}

			var objEnergies, constrEnergies []float64
			if len(secondary) > 0 {
				objEnergies = secondary[0]
			}
			if len(secondary) > 1 {
				constrEnergies = secondary[1]
			}

			return OracleResult{
				Phi:            phi,
				Grad:           maskedGrad,
				ObjEnergies:    objEnergies,
				ConstrEnergies: constrEnergies,
			}, nil
		}
	}
}
