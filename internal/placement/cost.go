package placement

import "math"

// DefaultOverlapPenalty is the cost charged per pair of colliding modules.
// The penalty is flat: it counts colliding pairs, it does not scale with the
// overlapping area. The cost landscape of reference runs depends on this
// exact constant.
const DefaultOverlapPenalty = 10.0

// Evaluator computes placement cost against a fixed problem. It is a pure
// function of the placement and the catalogs: no hidden state, no
// randomness, and recomputing the cost of an unchanged placement always
// yields a bit-identical result.
type Evaluator struct {
	problem Problem
	penalty float64
}

// NewEvaluator creates an evaluator for the problem. A non-positive penalty
// selects DefaultOverlapPenalty.
func NewEvaluator(problem Problem, penalty float64) *Evaluator {
	if penalty <= 0 {
		penalty = DefaultOverlapPenalty
	}
	return &Evaluator{problem: problem, penalty: penalty}
}

// Cost returns total wirelength plus the overlap penalty term.
func (e *Evaluator) Cost(p Placement) float64 {
	return e.Wirelength(p) + e.penalty*float64(e.OverlapCount(p))
}

// Wirelength sums the Manhattan distance between the centers of every net's
// two modules. Centers use real-valued half-sizes, so an odd dimension
// yields a fractional center; runs in O(e) for e nets.
func (e *Evaluator) Wirelength(p Placement) float64 {
	wl := 0.0
	for _, n := range e.problem.Nets {
		ma, mb := e.problem.Catalog[n.A], e.problem.Catalog[n.B]
		pa, pb := p[n.A], p[n.B]
		wl += math.Abs((pa.X+ma.W/2)-(pb.X+mb.W/2)) +
			math.Abs((pa.Y+ma.H/2)-(pb.Y+mb.H/2))
	}
	return wl
}

// OverlapCount returns the number of unordered pairs of distinct modules
// whose rectangles intersect. All-pairs check, O(n²) in the module count.
func (e *Evaluator) OverlapCount(p Placement) int {
	count := 0
	for i := range e.problem.Catalog {
		for j := i + 1; j < len(e.problem.Catalog); j++ {
			if Overlaps(p[i], e.problem.Catalog[i], p[j], e.problem.Catalog[j]) {
				count++
			}
		}
	}
	return count
}
