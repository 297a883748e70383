// Command penrose-opt-demo drives the optimizer package end-to-end against
// canned problems, for manual inspection of convergence behavior. It is a
// harness around the library, not part of it: optimizer stays free of any
// CLI/file/wire concerns.
package main

import (
	"fmt"
	"os"

	"github.com/GuerricChupin/penrose-opt/internal/testproblems"
	"github.com/GuerricChupin/penrose-opt/optimizer"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "penrose-opt-demo",
		Short:   "Drive the exterior-point/L-BFGS optimizer against canned problems",
		Version: version,
	}

	rootCmd.AddCommand(quadraticCmd(), rosenbrockCmd(), constrainedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func quadraticCmd() *cobra.Command {
	var target float64
	var steps int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "quadratic",
		Short: "Minimize (x - target)^2 from x0 = 0",
		Example: `  penrose-opt-demo quadratic --target 3
  penrose-opt-demo quadratic --target -2 --steps 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(verbose)
			compiler := testproblems.Quadratic1D(target)
			s, err := optimizer.BuildProblem([]float64{0}, []optimizer.InputTag{optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
			if err != nil {
				return err
			}

			s, err = optimizer.Step(s, steps, optimizer.StepOptions{Log: log})
			if err != nil {
				return err
			}

			fmt.Printf("status=%s x=%.6f\n", s.Params.Status, s.VaryingValues[0])
			return nil
		},
	}

	cmd.Flags().Float64Var(&target, "target", 3.0, "target value")
	cmd.Flags().IntVar(&steps, "steps", 50, "inner iteration budget")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	return cmd
}

func rosenbrockCmd() *cobra.Command {
	var steps, rounds int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "rosenbrock",
		Short: "Minimize the 2-D Rosenbrock function from (-1.2, 1.0)",
		Example: `  penrose-opt-demo rosenbrock
  penrose-opt-demo rosenbrock --steps 500 --rounds 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(verbose)
			compiler := testproblems.Rosenbrock()
			s, err := optimizer.BuildProblem([]float64{-1.2, 1.0}, []optimizer.InputTag{optimizer.Optimized, optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
			if err != nil {
				return err
			}

			for i := 0; i < rounds && s.Params.Status != optimizer.UnconstrainedConverged && s.Params.Status != optimizer.Error; i++ {
				s, err = optimizer.Step(s, steps, optimizer.StepOptions{Log: log})
				if err != nil {
					return err
				}
			}

			fmt.Printf("status=%s x=(%.6f, %.6f)\n", s.Params.Status, s.VaryingValues[0], s.VaryingValues[1])
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 200, "inner iteration budget per round")
	cmd.Flags().IntVar(&rounds, "rounds", 20, "max Step calls")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	return cmd
}

func constrainedCmd() *cobra.Command {
	var x0 float64
	var steps, rounds int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "constrained",
		Short: "Minimize x subject to x >= 0 via the exterior-point penalty method",
		Example: `  penrose-opt-demo constrained --x0 -5
  penrose-opt-demo constrained --x0 -50 --rounds 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(verbose)
			compiler := testproblems.LinearWithInequality()
			s, err := optimizer.BuildProblem([]float64{x0}, []optimizer.InputTag{optimizer.Optimized}, nil, nil, compiler, optimizer.DefaultBuildOptions())
			if err != nil {
				return err
			}

			for i := 0; i < rounds && s.Params.Status != optimizer.EPConverged && s.Params.Status != optimizer.Error; i++ {
				s, err = optimizer.Step(s, steps, optimizer.StepOptions{Log: log})
				if err != nil {
					return err
				}
			}

			fmt.Printf("status=%s x=%.6f weight=%.1f EPround=%d\n", s.Params.Status, s.VaryingValues[0], s.Params.Weight, s.Params.EPRound)
			return nil
		},
	}

	cmd.Flags().Float64Var(&x0, "x0", -5.0, "starting point")
	cmd.Flags().IntVar(&steps, "steps", 20, "inner iteration budget per round")
	cmd.Flags().IntVar(&rounds, "rounds", 500, "max Step calls")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	return cmd
}
