package placement

// Overlaps reports whether the axis-aligned rectangles of two placed modules
// intersect. Two rectangles overlap iff neither is entirely to the left of,
// right of, above, or below the other. Rectangles that only share an edge do
// not overlap.
func Overlaps(p1 Point, m1 Module, p2 Point, m2 Module) bool {
	return p1.X+m1.W > p2.X && p2.X+m2.W > p1.X &&
		p1.Y+m1.H > p2.Y && p2.Y+m2.H > p1.Y
}
