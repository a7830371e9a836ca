// Package annealing implements the simulated annealing placement engine.
//
// The engine draws a random initial placement, then repeatedly relocates a
// single random module and accepts or rejects the move under the Metropolis
// criterion while the temperature decays geometrically. It is a fixed-budget
// heuristic: it terminates after MaxIterations, never on convergence.
package annealing

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/TAIGA/internal/placement"
)

// progressInterval is how many iterations pass between verbose progress
// log lines.
const progressInterval = 5000

// Annealer implements placement.Placer using simulated annealing.
type Annealer struct {
	// Configuration, normalized and validated at construction.
	config placement.PlacerConfig

	// Cost evaluator and move generator, both bound to the run's problem.
	eval  *placement.Evaluator
	mover *placement.Mover

	// Random number generator owned by this run. Moves and acceptance draws
	// share it, so a fixed seed reproduces the whole trajectory.
	rng *rand.Rand

	logger *zap.Logger

	// mu guards best, history, and cancel so status observers and Stop can
	// act while the run is in flight. The search loop itself is
	// single-threaded.
	mu      sync.Mutex
	best    *placement.Solution
	history []float64
	cancel  context.CancelFunc
}

// New creates an annealer for the given configuration. Zero-valued
// parameters take defaults; configuration errors (unplaceable modules,
// dangling nets, out-of-range parameters) are returned before any run
// starts. A nil logger disables logging.
func New(config placement.PlacerConfig, logger *zap.Logger) (*Annealer, error) {
	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Annealer{
		config:  config,
		eval:    placement.NewEvaluator(config.Problem, config.OverlapPenalty),
		mover:   placement.NewMover(config.Problem, rng),
		rng:     rng,
		logger:  logger,
		history: make([]float64, 0, config.MaxIterations),
	}, nil
}

// Place runs the annealing loop to completion and returns the result.
// The only mid-run exit is context cancellation, which surfaces ctx.Err().
func (a *Annealer) Place(ctx context.Context) (*placement.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	// INITIALIZING: random start, current and best coincide.
	current := a.mover.RandomPlacement()
	currentCost := a.eval.Cost(current)
	initial := placement.Solution{Placement: current.Clone(), Cost: currentCost}

	a.mu.Lock()
	a.best = &placement.Solution{Placement: current.Clone(), Cost: currentCost}
	a.history = a.history[:0]
	a.mu.Unlock()

	t := a.config.StartTemp

	a.logger.Debug("annealing started",
		zap.Int("modules", len(a.config.Problem.Catalog)),
		zap.Int("nets", len(a.config.Problem.Nets)),
		zap.Int("max_iterations", a.config.MaxIterations),
		zap.Float64("initial_cost", currentCost),
	)

	for i := 0; i < a.config.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		candidate := a.mover.Propose(current)
		candidateCost := a.eval.Cost(candidate)

		if a.accept(currentCost, candidateCost, t) {
			current = candidate
			currentCost = candidateCost
		}

		// The accepted cost is carried forward, so the best-check reuses it
		// instead of re-evaluating the placement.
		a.mu.Lock()
		if currentCost < a.best.Cost {
			a.best = &placement.Solution{Placement: current.Clone(), Cost: currentCost}
		}
		a.history = append(a.history, a.best.Cost)
		a.mu.Unlock()

		t *= a.config.Cooling

		if a.config.Verbose && (i+1)%progressInterval == 0 {
			a.logger.Debug("annealing progress",
				zap.Int("iteration", i+1),
				zap.Float64("temperature", t),
				zap.Float64("current_cost", currentCost),
				zap.Float64("best_cost", a.Best().Cost),
			)
		}
	}

	best := a.Best()
	a.logger.Debug("annealing finished",
		zap.Int("iterations", a.config.MaxIterations),
		zap.Float64("initial_cost", initial.Cost),
		zap.Float64("best_cost", best.Cost),
	)

	return &placement.Result{
		Best:       *best,
		Initial:    initial,
		History:    a.History(),
		Iterations: a.config.MaxIterations,
	}, nil
}

// accept applies the Metropolis criterion: strictly improving moves are
// always taken; worsening moves are taken with probability
// exp((oldCost-newCost)/t). A non-positive temperature never reaches the
// exponential branch, which degenerates into greedy hill-climbing.
func (a *Annealer) accept(oldCost, newCost, t float64) bool {
	if newCost < oldCost {
		return true
	}
	if t <= 0 {
		return false
	}
	// oldCost <= newCost here, so the ratio is <= 0 and exp is in (0,1];
	// underflow toward exp == 0 correctly shuts off uphill acceptance.
	return a.rng.Float64() < math.Exp((oldCost-newCost)/t)
}

// Best returns a snapshot of the best solution found so far, or nil before
// the run has initialized.
func (a *Annealer) Best() *placement.Solution {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.best == nil {
		return nil
	}
	return &placement.Solution{Placement: a.best.Placement.Clone(), Cost: a.best.Cost}
}

// History returns a snapshot of the best-cost-per-iteration curve recorded
// so far.
func (a *Annealer) History() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float64(nil), a.history...)
}

// Stop cancels a running search.
func (a *Annealer) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
