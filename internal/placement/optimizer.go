package placement

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Default annealing parameters. They match the reference cost landscape and
// are used whenever a config leaves the corresponding field zero.
const (
	DefaultMaxIterations = 50000
	DefaultStartTemp     = 100.0
	DefaultCooling       = 0.995
)

// Placer defines the interface for placement search engines.
type Placer interface {
	// Place runs the search to completion and returns the result.
	Place(ctx context.Context) (*Result, error)

	// Best returns the best solution found so far.
	Best() *Solution

	// History returns the best-cost-so-far value recorded at each iteration.
	History() []float64

	// Stop cancels a running search.
	Stop()
}

// PlacerConfig contains configuration for a placement run.
type PlacerConfig struct {
	// Problem is the module catalog, net list, and surface to place on.
	Problem Problem

	// MaxIterations is the fixed iteration budget. Zero selects the default;
	// negative values are configuration errors.
	MaxIterations int

	// StartTemp is the initial temperature. Zero selects the default.
	StartTemp float64

	// Cooling is the per-iteration geometric decay factor, strictly in
	// (0,1). Zero selects the default.
	Cooling float64

	// OverlapPenalty is the flat cost per colliding module pair. Zero
	// selects DefaultOverlapPenalty.
	OverlapPenalty float64

	// Seed for the run's random source. Zero seeds from the clock.
	Seed int64

	// Verbose enables per-interval progress logging.
	Verbose bool
}

// Normalize fills zero-valued parameters with defaults.
func (c *PlacerConfig) Normalize() {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.StartTemp == 0 {
		c.StartTemp = DefaultStartTemp
	}
	if c.Cooling == 0 {
		c.Cooling = DefaultCooling
	}
	if c.OverlapPenalty == 0 {
		c.OverlapPenalty = DefaultOverlapPenalty
	}
}

// Validate checks the parameters and the underlying problem. It assumes
// Normalize has filled defaults.
func (c *PlacerConfig) Validate() error {
	if err := c.Problem.Validate(); err != nil {
		return err
	}
	if c.MaxIterations < 1 {
		return NewErrorf("max iterations %d must be positive", c.MaxIterations).
			WithComponent("config").WithOperation("validate")
	}
	if c.StartTemp <= 0 || math.IsNaN(c.StartTemp) || math.IsInf(c.StartTemp, 0) {
		return NewErrorf("start temperature %g must be a positive finite number", c.StartTemp).
			WithComponent("config").WithOperation("validate")
	}
	if c.Cooling <= 0 || c.Cooling >= 1 {
		return NewErrorf("cooling factor %g must be strictly inside (0,1)", c.Cooling).
			WithComponent("config").WithOperation("validate")
	}
	if c.OverlapPenalty <= 0 {
		return NewErrorf("overlap penalty %g must be positive", c.OverlapPenalty).
			WithComponent("config").WithOperation("validate")
	}
	return nil
}

// Solution is a placement together with its cost.
type Solution struct {
	Placement Placement
	Cost      float64
}

// Result contains the outcome of a placement run.
type Result struct {
	// Best is the best solution found across the whole run.
	Best Solution

	// Initial is the random starting solution; Best.Cost never exceeds
	// Initial.Cost.
	Initial Solution

	// History holds the best cost recorded at each iteration. The sequence
	// is non-increasing and its length equals Iterations.
	History []float64

	// Iterations is the number of iterations actually executed.
	Iterations int
}

// Summary describes how a run converged.
type Summary struct {
	// InitialCost is the cost of the random starting placement.
	InitialCost float64
	// BestCost is the lowest cost seen across the run.
	BestCost float64
	// TailMean and TailStdDev summarize the final tenth of the history,
	// showing whether the search had settled by the end of the budget.
	TailMean   float64
	TailStdDev float64
	// Reduction is the fraction of the initial cost shed by the best
	// solution, in [0,1].
	Reduction float64
}

// Summarize computes convergence statistics over the run's history.
func (r *Result) Summarize() Summary {
	s := Summary{
		InitialCost: r.Initial.Cost,
		BestCost:    r.Best.Cost,
	}
	if len(r.History) > 0 {
		s.BestCost = floats.Min(r.History)
		tail := r.History[len(r.History)-tailLen(len(r.History)):]
		s.TailMean, s.TailStdDev = stat.MeanStdDev(tail, nil)
		if math.IsNaN(s.TailStdDev) {
			s.TailStdDev = 0
		}
	}
	if s.InitialCost > 0 {
		s.Reduction = (s.InitialCost - s.BestCost) / s.InitialCost
	}
	return s
}

// tailLen is a tenth of the history, at least one sample.
func tailLen(n int) int {
	t := n / 10
	if t < 1 {
		t = 1
	}
	return t
}
