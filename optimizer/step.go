package optimizer

import (
	"github.com/GuerricChupin/penrose-opt/lbfgs"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// EP driver constants.
const (
	// ConstraintWeightC0 is the fixed multiplier on the summed constraint
	// penalty inside the scalarized energy.
	ConstraintWeightC0 = 1e4
	// WeightGrowthFactor is how much the EP weight grows each round that
	// does not converge.
	WeightGrowthFactor = 10
	// EPStop is the EP-round convergence threshold.
	EPStop = 1e-3
)

// StepOptions configures a single Step call.
type StepOptions struct {
	Log zerolog.Logger
}

// Step advances s by exactly one state-machine transition: for
// Status == UnconstrainedRunning that also means running up to steps inner
// L-BFGS iterations; for every other non-terminal status it performs
// bookkeeping only, so the caller's step budget is spent exclusively on
// genuine inner-loop work. steps < 1 is fatal regardless of s's status -
// the call itself is invalid, independent of what state it would have
// acted on.
//
// Step never mutates s; EPConverged and Error are sticky, returned
// unchanged with a nil error.
func Step(s State, steps int, opts StepOptions) (State, error) {
	if steps < 1 {
		return State{}, errors.Wrapf(ErrInsufficientSteps, "got %d", steps)
	}

	switch s.Params.Status {
	case EPConverged, Error:
		return s, nil
	case NewIter:
		return stepNewIter(s, opts), nil
	case UnconstrainedRunning:
		return stepUnconstrainedRunning(s, steps, opts)
	case UnconstrainedConverged:
		return stepUnconstrainedConverged(s, opts), nil
	default:
		return State{}, errors.Errorf("optimizer: unknown status %v", s.Params.Status)
	}
}

func stepNewIter(s State, opts StepOptions) State {
	p := s.Params
	weight := p.Weight
	if weight <= 0 {
		weight = DefaultBuildOptions().InitConstraintWeight
	}

	next := s
	next.Params = OptParams{
		Weight:        weight,
		UORound:       0,
		EPRound:       0,
		Status:        UnconstrainedRunning,
		LBFGS:         lbfgs.DefaultState(),
		OracleFactory: p.OracleFactory,
		CurrOracle:    p.OracleFactory(weight, s.FrozenValues),
	}

	opts.Log.Info().Float64("weight", weight).Msg("optimizer.Step: NewIter -> UnconstrainedRunning")
	return next
}

func stepUnconstrainedRunning(s State, steps int, opts StepOptions) (State, error) {
	res, err := Minimize(s.VaryingValues, s.Params.CurrOracle, s.Params.LBFGS, steps, MinimizeOptions{Log: opts.Log})
	if err != nil {
		return State{}, err
	}

	next := s
	next.VaryingValues = res.X
	next.Params = s.Params
	next.Params.LBFGS = res.LBFGS
	next.Params.LastUOState = next.VaryingValues
	next.Params.LastUOEnergy = res.Phi
	next.Params.LastGradient = res.Grad
	next.Params.LastGradientPreconditioned = res.GradPreconditioned
	next.Params.LastObjEnergies = res.ObjEnergies
	next.Params.LastConstrEnergies = res.ConstrEnergies
	next.Params.UORound = s.Params.UORound + 1

	switch {
	case res.Failed:
		next.Params.Status = Error
		opts.Log.Warn().Msg("optimizer.Step: UnconstrainedRunning -> Error (NaN energy)")
	case res.NormGrad < UOStop:
		next.Params.Status = UnconstrainedConverged
		next.Params.LBFGS = lbfgs.DefaultState()
		opts.Log.Info().Int("UORound", next.Params.UORound).
			Msg("optimizer.Step: UnconstrainedRunning -> UnconstrainedConverged")
	default:
		next.Params.Status = UnconstrainedRunning
	}

	return next, nil
}

func stepUnconstrainedConverged(s State, opts StepOptions) State {
	next := s
	next.Params = s.Params

	if s.Params.EPRound > 1 && epConverged(s.Params.LastEPState, s.Params.LastUOState, s.Params.LastEPEnergy, s.Params.LastUOEnergy) {
		next.Params.Status = EPConverged
		opts.Log.Info().Int("EPRound", s.Params.EPRound).
			Msg("optimizer.Step: UnconstrainedConverged -> EPConverged")
	} else {
		weight := s.Params.Weight * WeightGrowthFactor
		next.Params.Weight = weight
		next.Params.OracleFactory = s.Params.OracleFactory
		next.Params.CurrOracle = s.Params.OracleFactory(weight, s.FrozenValues)
		next.Params.UORound = 0
		next.Params.EPRound = s.Params.EPRound + 1
		next.Params.Status = UnconstrainedRunning
		opts.Log.Info().Int("EPRound", next.Params.EPRound).Float64("weight", weight).
			Msg("optimizer.Step: UnconstrainedConverged -> UnconstrainedRunning (weight grown)")
	}

	next.Params.LastEPState = s.Params.LastUOState
	next.Params.LastEPEnergy = s.Params.LastUOEnergy

	return next
}

// epConverged reports whether two successive EP rounds' endpoints are close
// enough in state or in energy to stop growing the weight.
func epConverged(x0, x1 []float64, phi0, phi1 float64) bool {
	if floats.Distance(x1, x0, 2) < EPStop {
		return true
	}
	diff := phi1 - phi0
	if diff < 0 {
		diff = -diff
	}
	return diff < EPStop
}
