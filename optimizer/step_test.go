package optimizer_test

import (
	"testing"

	"github.com/GuerricChupin/penrose-opt/internal/testproblems"
	"github.com/GuerricChupin/penrose-opt/optimizer"
	"github.com/stretchr/testify/require"
)

func build1DConstrained(t *testing.T, x0 float64) optimizer.State {
	t.Helper()
	compiler := testproblems.LinearWithInequality()
	s, err := optimizer.BuildProblem([]float64{x0}, []optimizer.InputTag{optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.NoError(t, err)
	return s
}

func TestStepRejectsInsufficientSteps(t *testing.T) {
	s := build1DConstrained(t, -5)
	_, err := optimizer.Step(s, 0, optimizer.StepOptions{})
	require.ErrorIs(t, err, optimizer.ErrInsufficientSteps)
}

func TestStepTerminalStickiness(t *testing.T) {
	s := build1DConstrained(t, -5)
	s.Params.Status = optimizer.EPConverged

	s1, err := optimizer.Step(s, 10, optimizer.StepOptions{})
	require.NoError(t, err)
	s2, err := optimizer.Step(s1, 999, optimizer.StepOptions{})
	require.NoError(t, err)

	require.Equal(t, withoutFuncs(s), withoutFuncs(s1))
	require.Equal(t, withoutFuncs(s1), withoutFuncs(s2))
}

// withoutFuncs clears the func-typed fields of s: reflect.DeepEqual, and so
// require.Equal, never reports two non-nil funcs as equal, so whole States
// are compared on their data fields.
func withoutFuncs(s optimizer.State) optimizer.State {
	s.Params.CurrOracle = nil
	s.Params.OracleFactory = nil
	return s
}

func TestStepErrorStatusIsSticky(t *testing.T) {
	s := build1DConstrained(t, -5)
	s.Params.Status = optimizer.Error

	s1, err := optimizer.Step(s, 10, optimizer.StepOptions{})
	require.NoError(t, err)
	require.Equal(t, optimizer.Error, s1.Params.Status)
	require.Equal(t, withoutFuncs(s), withoutFuncs(s1))
}

func TestStepMonotoneWeightAndEPConvergence(t *testing.T) {
	s := build1DConstrained(t, -5)

	weights := []float64{s.Params.Weight}
	for i := 0; i < 500 && s.Params.Status != optimizer.EPConverged && s.Params.Status != optimizer.Error; i++ {
		next, err := optimizer.Step(s, 20, optimizer.StepOptions{})
		require.NoError(t, err)

		require.GreaterOrEqual(t, next.Params.Weight, s.Params.Weight, "EP weight must never decrease")
		if next.Params.Weight > s.Params.Weight {
			weights = append(weights, next.Params.Weight)
		}
		s = next
	}

	require.Equal(t, optimizer.EPConverged, s.Params.Status)
	require.InDelta(t, 0.0, s.VaryingValues[0], 1e-2)
	require.GreaterOrEqual(t, s.Params.EPRound, 2)
	require.Greater(t, len(weights), 1, "weight should have grown at least once")
}

func TestStep1DQuadraticUnconstrained(t *testing.T) {
	compiler := testproblems.Quadratic1D(3.0)
	s, err := optimizer.BuildProblem([]float64{0}, []optimizer.InputTag{optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.NoError(t, err)

	s, err = optimizer.Step(s, 50, optimizer.StepOptions{})
	require.NoError(t, err)

	require.Equal(t, optimizer.UnconstrainedConverged, s.Params.Status)
	require.InDelta(t, 3.0, s.VaryingValues[0], 1e-3)
}

func TestStepFrozenParameterImmutable(t *testing.T) {
	compiler := testproblems.Quadratic([][]float64{{2, 0}, {0, 2}}, []float64{4, 6})
	inputs := []optimizer.InputTag{optimizer.Optimized, optimizer.Optimized}
	s, err := optimizer.BuildProblem([]float64{10, 7}, inputs, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.NoError(t, err)

	s.FrozenValues = optimizer.NewFrozenSet(1)
	s.Params.CurrOracle = s.Params.OracleFactory(s.Params.Weight, s.FrozenValues)

	for i := 0; i < 20; i++ {
		s, err = optimizer.Step(s, 10, optimizer.StepOptions{})
		require.NoError(t, err)
		require.Equal(t, 7.0, s.VaryingValues[1], "frozen index must stay exactly 7")
		if s.Params.Status == optimizer.EPConverged || s.Params.Status == optimizer.Error {
			break
		}
	}
}

func TestStepNaNInGradientIsFatal(t *testing.T) {
	compiler := testproblems.NaNAfterCall(testproblems.Quadratic1D(3), 3)
	s, err := optimizer.BuildProblem([]float64{0}, []optimizer.InputTag{optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.NoError(t, err)

	_, err = optimizer.Step(s, 10, optimizer.StepOptions{})
	require.ErrorIs(t, err, optimizer.ErrNaNInGradient)
}

func TestStepNaNPhiSurfacesAsErrorStatus(t *testing.T) {
	compiler := testproblems.NaNPhiAfterCall(testproblems.Quadratic1D(3), 1)
	s, err := optimizer.BuildProblem([]float64{0}, []optimizer.InputTag{optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.NoError(t, err)

	s, err = optimizer.Step(s, 10, optimizer.StepOptions{})
	require.NoError(t, err)
	require.Equal(t, optimizer.Error, s.Params.Status)
}

func TestStepNewIterReArms(t *testing.T) {
	compiler := testproblems.Quadratic1D(3.0)
	s, err := optimizer.BuildProblem([]float64{0}, []optimizer.InputTag{optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.NoError(t, err)

	for s.Params.Status != optimizer.UnconstrainedConverged {
		s, err = optimizer.Step(s, 50, optimizer.StepOptions{})
		require.NoError(t, err)
	}

	s.Params.Status = optimizer.NewIter
	s, err = optimizer.Step(s, 1, optimizer.StepOptions{})
	require.NoError(t, err)
	require.Equal(t, optimizer.UnconstrainedRunning, s.Params.Status)
	require.Equal(t, 0, s.Params.UORound)
	require.Equal(t, 0, s.Params.EPRound)
}
