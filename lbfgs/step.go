package lbfgs

import (
	"gonum.org/v1/gonum/floats"
)

// epsilon guards every division in the two-loop recursion against a
// degenerate (s, y) pair — e.g. a step so small that ⟨y, s⟩ underflows to
// zero. Matches the EPSD constant used for the same purpose elsewhere in
// the L-BFGS literature.
const epsilon = 1e-11

// Result is the outcome of a single L-BFGS preconditioning step.
type Result struct {
	// GradPre approximates H⁻¹·g. Callers descend along -GradPre.
	GradPre []float64

	// State is the State to pass to the next call.
	State State

	// Reset reports whether the incoming direction failed the descent-
	// direction check and history was discarded. Not an error: the caller
	// still gets a usable (steepest-descent) GradPre.
	Reset bool
}

// Step turns the raw gradient g at point x into a preconditioned gradient,
// given the current history in st. On the very first call for a fresh
// State (NumUnconstrSteps == 0) it returns steepest descent and seeds the
// history baseline. On later calls it runs the two-loop recursion over the
// stored correction pairs and validates that -GradPre is a descent
// direction against g; if it is not, history is discarded and steepest
// descent is returned instead (NonDescentDirection is not an error, see
// Result.Reset).
func Step(x, g []float64, st State) (Result, error) {
	if err := st.Validate(); err != nil {
		return Result{}, err
	}

	if st.NumUnconstrSteps == 0 {
		return Result{
			GradPre: append([]float64(nil), g...),
			State: State{
				LastX:            append([]float64(nil), x...),
				LastGrad:         append([]float64(nil), g...),
				NumUnconstrSteps: 1,
				MemSize:          memSizeOf(st),
			},
		}, nil
	}

	m := memSizeOf(st)

	s := make([]float64, len(x))
	floats.SubTo(s, x, st.LastX)
	y := make([]float64, len(g))
	floats.SubTo(y, g, st.LastGrad)

	sList := prepend(st.SList, s, m)
	yList := prepend(st.YList, y, m)

	gPre := twoLoopRecursion(g, sList, yList)

	// -gPre must be a descent direction: <-gPre, g> < 0. Numerical drift in
	// the implicit H occasionally violates this; fall back to steepest
	// descent rather than trust a bad direction.
	if negated := negate(gPre); floats.Dot(negated, g) > 0 {
		return Result{
			GradPre: append([]float64(nil), g...),
			State: State{
				LastX:            append([]float64(nil), x...),
				LastGrad:         append([]float64(nil), g...),
				NumUnconstrSteps: 1,
				MemSize:          m,
			},
			Reset: true,
		}, nil
	}

	return Result{
		GradPre: gPre,
		State: State{
			LastX:            append([]float64(nil), x...),
			LastGrad:         append([]float64(nil), g...),
			SList:            sList,
			YList:            yList,
			NumUnconstrSteps: st.NumUnconstrSteps + 1,
			MemSize:          m,
		},
	}, nil
}

func memSizeOf(st State) int {
	if st.MemSize <= 0 {
		return DefaultMemSize
	}
	return st.MemSize
}

// prepend inserts v at the front of list and truncates to at most m
// entries, newest first. list is never mutated in place.
func prepend(list [][]float64, v []float64, m int) [][]float64 {
	out := make([][]float64, 0, min(len(list)+1, m))
	out = append(out, v)
	for _, e := range list {
		if len(out) >= m {
			break
		}
		out = append(out, e)
	}
	return out
}

// twoLoopRecursion computes H*g via Nocedal & Wright Algorithm 7.4. sList
// and yList are newest-first; the backward sweep therefore runs forward
// over the slices (index 0 = newest) and the forward sweep runs backward.
func twoLoopRecursion(g []float64, sList, yList [][]float64) []float64 {
	n := len(sList)
	q := append([]float64(nil), g...)
	alpha := make([]float64, n)
	rho := make([]float64, n)

	for i := 0; i < n; i++ {
		rho[i] = 1.0 / (floats.Dot(yList[i], sList[i]) + epsilon)
	}

	// Backward sweep: newest (i=0) to oldest (i=n-1).
	for i := 0; i < n; i++ {
		alpha[i] = rho[i] * floats.Dot(sList[i], q)
		floats.AddScaled(q, -alpha[i], yList[i])
	}

	gamma := 1.0
	if n > 0 {
		gamma = floats.Dot(sList[0], yList[0]) / (floats.Dot(yList[0], yList[0]) + epsilon)
	}
	r := make([]float64, len(q))
	copy(r, q)
	floats.Scale(gamma, r)

	// Forward sweep: oldest (i=n-1) to newest (i=0).
	for i := n - 1; i >= 0; i-- {
		beta := rho[i] * floats.Dot(yList[i], r)
		floats.AddScaled(r, alpha[i]-beta, sList[i])
	}

	return r
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}
