package optimizer

import "github.com/GuerricChupin/penrose-opt/lbfgs"

// InputTag marks whether a parameter index participates in optimization.
type InputTag int

const (
	// Optimized parameters receive a live gradient and move during Step.
	Optimized InputTag = iota
	// Pending parameters are held constant; their gradient is always zero.
	Pending
)

// FrozenSet holds parameter indices whose gradient is forced to zero in
// addition to whatever InputTag says - e.g. an element the user is
// currently dragging, frozen for the duration of the drag regardless of
// its declared tag.
type FrozenSet map[int]struct{}

// NewFrozenSet builds a FrozenSet from a list of indices.
func NewFrozenSet(indices ...int) FrozenSet {
	fs := make(FrozenSet, len(indices))
	for _, i := range indices {
		fs[i] = struct{}{}
	}
	return fs
}

// Has reports whether index i is frozen. A nil FrozenSet freezes nothing.
func (fs FrozenSet) Has(i int) bool {
	_, ok := fs[i]
	return ok
}

// OracleResult is a single oracle evaluation at a point x.
type OracleResult struct {
	// Phi is the scalarized energy E(x; w) = O(x) + c0*w*sum(penalty(Ci(x))).
	Phi float64
	// Grad is dPhi/dx, with frozen/non-Optimized entries already zeroed.
	Grad []float64
	// ObjEnergies holds the individual objective-term values.
	ObjEnergies []float64
	// ConstrEnergies holds the individual constraint-term penalty values.
	ConstrEnergies []float64
}

// Oracle evaluates energy, gradient, and per-term energies at x. It must be
// deterministic and side-effect-free; a non-nil error is reserved for
// fatal, non-numerical failures (e.g. the compiled graph function itself
// panicking), never for a NaN-valued but otherwise successful evaluation.
type Oracle func(x []float64) (OracleResult, error)

// OracleFactory binds an Oracle to a fixed EP weight and frozen set.
type OracleFactory func(weight float64, frozen FrozenSet) Oracle

// Status is the outer EP driver's state-machine position.
type Status int

const (
	// NewIter is the re-armable entry point: the next Step call resets the
	// round counters, the L-BFGS history and the current oracle, then
	// transitions to UnconstrainedRunning without running any iterations.
	// It starts from Params.Weight when that is positive and from
	// DefaultInitConstraintWeight otherwise; a weight grown in earlier EP
	// rounds is kept, not set back to the weight BuildProblem started with.
	NewIter Status = iota
	// UnconstrainedRunning means Step should run inner L-BFGS iterations
	// at the current EP weight.
	UnconstrainedRunning
	// UnconstrainedConverged means the inner minimizer converged at the
	// current weight; the next Step call decides whether to grow the
	// weight or declare EP convergence.
	UnconstrainedConverged
	// EPConverged is terminal: Step returns the state unchanged.
	EPConverged
	// Error is terminal: Step returns the state unchanged.
	Error
)

func (s Status) String() string {
	switch s {
	case NewIter:
		return "NewIter"
	case UnconstrainedRunning:
		return "UnconstrainedRunning"
	case UnconstrainedConverged:
		return "UnconstrainedConverged"
	case EPConverged:
		return "EPConverged"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// OptParams is the outer EP driver's bookkeeping, carried inside State.
type OptParams struct {
	// Weight is the current EP penalty multiplier w.
	Weight float64
	// UORound counts the UnconstrainedRunning Step calls made at the
	// current weight (one per call, however many inner iterations it ran);
	// reset to 0 whenever the weight grows.
	UORound int
	// EPRound counts completed EP rounds (one full UO round plus a weight
	// update each).
	EPRound int
	// Status is the current state-machine position.
	Status Status

	// LastUOState/LastUOEnergy snapshot the point and energy left by the
	// most recent UnconstrainedRunning Step call; once Status is
	// UnconstrainedConverged they hold the converged point and energy.
	LastUOState  []float64
	LastUOEnergy float64

	// LastEPState/LastEPEnergy snapshot the prior EP round, for the
	// cross-round convergence test. Populated starting from the second EP
	// round.
	LastEPState  []float64
	LastEPEnergy float64

	// LastGradient/LastGradientPreconditioned/LastObjEnergies/
	// LastConstrEnergies are diagnostic bookkeeping from the most recent
	// inner iteration; not used in any convergence decision.
	LastGradient               []float64
	LastGradientPreconditioned []float64
	LastObjEnergies            []float64
	LastConstrEnergies         []float64

	// LBFGS is the current L-BFGS history.
	LBFGS lbfgs.State

	// CurrOracle is the oracle bound to Weight and the owning State's
	// FrozenValues.
	CurrOracle Oracle
	// OracleFactory is what Step calls to rebind CurrOracle on NewIter and
	// whenever the weight grows. Changing FrozenValues alone does not
	// rebind CurrOracle.
	OracleFactory OracleFactory
}

// State is the complete, resumable optimizer state. Step never mutates its
// input State; it always returns a new value built from fresh slices for
// anything it changes.
type State struct {
	// VaryingValues is the parameter vector x.
	VaryingValues []float64
	// FrozenValues are indices held constant regardless of InputTag.
	FrozenValues FrozenSet
	// Params is the EP driver's bookkeeping.
	Params OptParams
}
