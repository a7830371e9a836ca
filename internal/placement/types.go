// Package placement defines the data model and primitives for rectangular
// module placement on a bounded surface: the module/net catalogs, the
// placement representation, the cost evaluator, and the move generator used
// by the annealing engine.
package placement

// Module is a rectangular block with a fixed size, known for the lifetime
// of a run. Modules are never created or destroyed once the catalog is built.
type Module struct {
	Name string
	W    float64
	H    float64
}

// Catalog is the immutable list of modules to place. A module's id is its
// index in the catalog; names are resolved to ids once at the boundary and
// the hot loops work on ids only.
type Catalog []Module

// Index returns the id of the module with the given name.
func (c Catalog) Index(name string) (int, bool) {
	for i, m := range c {
		if m.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Net is a required connection between two modules, identified by catalog
// ids. The pair is unordered; self-loops and duplicates are allowed and
// simply contribute their wirelength as written.
type Net struct {
	A int
	B int
}

// Surface is the bounded area modules are placed on.
type Surface struct {
	W float64
	H float64
}

// Point is the bottom-left coordinate of a placed module.
type Point struct {
	X float64
	Y float64
}

// Placement assigns a coordinate to every module, indexed by module id.
// A placement is a value: code that needs to keep the original must Clone
// before mutating.
type Placement []Point

// Clone returns an independent copy of the placement.
func (p Placement) Clone() Placement {
	out := make(Placement, len(p))
	copy(out, p)
	return out
}

// Problem bundles the read-only inputs of a placement run. It is passed
// explicitly into every evaluator and mover call so independent runs share
// no state.
type Problem struct {
	Catalog Catalog
	Nets    []Net
	Surface Surface
}

// Validate checks the problem for configuration errors: degenerate surface
// or module dimensions, modules that cannot fit the surface at any position,
// and nets referencing unknown module ids. A run must not start until
// Validate returns nil.
func (p Problem) Validate() error {
	if len(p.Catalog) == 0 {
		return NewError("catalog is empty").WithComponent("problem").WithOperation("validate")
	}
	if p.Surface.W <= 0 || p.Surface.H <= 0 {
		return NewErrorf("surface %gx%g must have positive dimensions", p.Surface.W, p.Surface.H).
			WithComponent("problem").WithOperation("validate")
	}
	for i, m := range p.Catalog {
		if m.W <= 0 || m.H <= 0 {
			return NewErrorf("module %q (id %d) has non-positive size %gx%g", m.Name, i, m.W, m.H).
				WithComponent("problem").WithOperation("validate")
		}
		if m.W > p.Surface.W || m.H > p.Surface.H {
			return NewErrorf("module %q (%gx%g) does not fit surface %gx%g", m.Name, m.W, m.H, p.Surface.W, p.Surface.H).
				WithComponent("problem").WithOperation("validate")
		}
	}
	for i, n := range p.Nets {
		if n.A < 0 || n.A >= len(p.Catalog) || n.B < 0 || n.B >= len(p.Catalog) {
			return NewErrorf("net %d references unknown module id (%d, %d)", i, n.A, n.B).
				WithComponent("problem").WithOperation("validate")
		}
	}
	return nil
}
