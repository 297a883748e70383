// Package lbfgs implements the limited-memory BFGS quasi-Newton
// preconditioner used by the optimizer's inner unconstrained minimizer.
//
// It maintains a bounded history of (s, y) correction pairs and turns a raw
// gradient into a preconditioned gradient that approximates H⁻¹∇ϕ via the
// two-loop recursion (Nocedal & Wright, Numerical Optimization, 2nd ed.,
// Algorithm 7.4). The package never materializes the n×n implicit Hessian;
// all arithmetic is vector-level, via gonum/floats.
package lbfgs

import "github.com/pkg/errors"

// DefaultMemSize is the number of correction pairs retained when a State is
// built with DefaultState. Tunable per problem via NewState.
const DefaultMemSize = 17

// ErrInvalidState reports an LbfgsState whose bookkeeping is inconsistent:
// NumUnconstrSteps claims at least one prior step but LastX/LastGrad are
// missing. A State in this shape can only arise from a hand-built or
// partially-deserialized value; Step never produces one.
var ErrInvalidState = errors.New("lbfgs: invalid state: NumUnconstrSteps > 0 but LastX/LastGrad are unset")

// State is the resumable bookkeeping L-BFGS carries between calls to Step.
// It is plain data: no callbacks, no unexported pointers into caller-owned
// slices are retained across a Step call (Step always copies what it keeps).
type State struct {
	// LastX, LastGrad are x_{k-1} and ∇ϕ(x_{k-1}). Meaningless when
	// NumUnconstrSteps == 0.
	LastX, LastGrad []float64

	// SList, YList hold s_i = x_{i+1} - x_i and y_i = ∇ϕ(x_{i+1}) - ∇ϕ(x_i),
	// newest pair first. len(SList) == len(YList) <= MemSize always holds.
	SList, YList [][]float64

	// NumUnconstrSteps counts how many times Step has successfully updated
	// this State since the last reset (including the very first call).
	NumUnconstrSteps int

	// MemSize bounds len(SList)/len(YList). Must be >= 1.
	MemSize int
}

// DefaultState returns an empty State with MemSize = DefaultMemSize.
func DefaultState() State {
	return NewState(DefaultMemSize)
}

// NewState returns an empty State with the given history depth. memSize <= 0
// is treated as DefaultMemSize rather than producing a State nothing could
// ever correct against.
func NewState(memSize int) State {
	if memSize <= 0 {
		memSize = DefaultMemSize
	}
	return State{MemSize: memSize}
}

// Validate reports ErrInvalidState if s's bookkeeping is inconsistent. A
// caller that deserializes a State checkpoint across a process boundary
// (the resumability story the optimizer is built around) should call
// Validate before handing the State back to Step.
func (s State) Validate() error {
	if s.NumUnconstrSteps > 0 && (s.LastX == nil || s.LastGrad == nil) {
		return ErrInvalidState
	}
	if len(s.SList) != len(s.YList) {
		return errors.Errorf("lbfgs: invalid state: len(SList)=%d != len(YList)=%d", len(s.SList), len(s.YList))
	}
	m := s.MemSize
	if m <= 0 {
		m = DefaultMemSize
	}
	if len(s.SList) > m {
		return errors.Errorf("lbfgs: invalid state: history length %d exceeds MemSize %d", len(s.SList), m)
	}
	return nil
}
