package placement

import "math/rand"

// Mover generates random placements and neighbor moves for a fixed problem.
// It owns no state beyond the problem and the run's random source, so
// independent runs with independent RNGs never interfere.
type Mover struct {
	problem Problem
	rng     *rand.Rand
}

// NewMover creates a mover drawing from the given random source. The caller
// validates the problem before constructing a mover; a module wider or
// taller than the surface has no legal position and must be rejected as a
// configuration error, never discovered mid-move.
func NewMover(problem Problem, rng *rand.Rand) *Mover {
	return &Mover{problem: problem, rng: rng}
}

// RandomPlacement draws an independent uniform in-bounds position for every
// module in the catalog.
func (m *Mover) RandomPlacement() Placement {
	p := make(Placement, len(m.problem.Catalog))
	for id, mod := range m.problem.Catalog {
		p[id] = m.randomPosition(mod)
	}
	return p
}

// Propose returns a neighbor of p: one uniformly chosen module relocated to
// a uniform in-bounds position, every other module untouched. The input
// placement is never modified.
func (m *Mover) Propose(p Placement) Placement {
	next := p.Clone()
	id := m.rng.Intn(len(m.problem.Catalog))
	next[id] = m.randomPosition(m.problem.Catalog[id])
	return next
}

// randomPosition draws x uniform in [0, surfaceW-w] and y uniform in
// [0, surfaceH-h], so the module always fits fully inside the surface.
func (m *Mover) randomPosition(mod Module) Point {
	return Point{
		X: m.rng.Float64() * (m.problem.Surface.W - mod.W),
		Y: m.rng.Float64() * (m.problem.Surface.H - mod.H),
	}
}
