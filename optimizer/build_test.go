package optimizer_test

import (
	"testing"

	"github.com/GuerricChupin/penrose-opt/internal/testproblems"
	"github.com/GuerricChupin/penrose-opt/optimizer"
	"github.com/stretchr/testify/require"
)

func TestBuildProblemInitialState(t *testing.T) {
	compiler := testproblems.Quadratic1D(3.0)
	s, err := optimizer.BuildProblem([]float64{0}, []optimizer.InputTag{optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.NoError(t, err)

	require.Equal(t, optimizer.UnconstrainedRunning, s.Params.Status)
	require.Equal(t, optimizer.DefaultInitConstraintWeight, s.Params.Weight)
	require.NotNil(t, s.Params.CurrOracle)

	res, err := s.Params.CurrOracle(s.VaryingValues)
	require.NoError(t, err)
	require.InDelta(t, 9.0, res.Phi, 1e-9)
}

func TestBuildProblemGradientMasking(t *testing.T) {
	compiler := testproblems.Quadratic([][]float64{{2, 0}, {0, 2}}, []float64{4, 6})
	inputs := []optimizer.InputTag{optimizer.Optimized, optimizer.Pending}

	s, err := optimizer.BuildProblem([]float64{10, 7}, inputs, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.NoError(t, err)

	res, err := s.Params.CurrOracle(s.VaryingValues)
	require.NoError(t, err)
	require.NotEqual(t, 0.0, res.Grad[0])
	require.Equal(t, 0.0, res.Grad[1], "Pending index must have zero gradient")
}

func TestBuildProblemFrozenMasking(t *testing.T) {
	compiler := testproblems.Quadratic([][]float64{{2, 0}, {0, 2}}, []float64{4, 6})
	inputs := []optimizer.InputTag{optimizer.Optimized, optimizer.Optimized}

	s, err := optimizer.BuildProblem([]float64{10, 7}, inputs, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.NoError(t, err)

	frozen := optimizer.NewFrozenSet(1)
	oracle := s.Params.OracleFactory(s.Params.Weight, frozen)

	res, err := oracle(s.VaryingValues)
	require.NoError(t, err)
	require.NotEqual(t, 0.0, res.Grad[0])
	require.Equal(t, 0.0, res.Grad[1], "frozen index must have zero gradient even though its tag is Optimized")
}

func TestBuildProblemRejectsMismatchedLengths(t *testing.T) {
	compiler := testproblems.Quadratic1D(0)
	_, err := optimizer.BuildProblem([]float64{0, 1}, []optimizer.InputTag{optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
	require.Error(t, err)
}
