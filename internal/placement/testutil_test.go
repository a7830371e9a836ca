package placement

// twoModuleProblem is the smallest interesting problem: two connected
// modules on a roomy surface.
func twoModuleProblem() Problem {
	return Problem{
		Catalog: Catalog{
			{Name: "A", W: 2, H: 3},
			{Name: "B", W: 3, H: 2},
		},
		Nets:    []Net{{A: 0, B: 1}},
		Surface: Surface{W: 20, H: 20},
	}
}

// referenceProblem mirrors the ten-module floorplanning dataset used
// throughout the CLI examples.
func referenceProblem() Problem {
	catalog := Catalog{
		{Name: "A", W: 2, H: 3},
		{Name: "B", W: 3, H: 2},
		{Name: "C", W: 2, H: 2},
		{Name: "D", W: 1, H: 4},
		{Name: "E", W: 3, H: 3},
		{Name: "F", W: 2, H: 4},
		{Name: "G", W: 4, H: 2},
		{Name: "H", W: 2, H: 3},
		{Name: "I", W: 3, H: 1},
		{Name: "J", W: 2, H: 2},
	}
	pairs := [][2]string{
		{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"},
		{"E", "F"}, {"F", "G"}, {"G", "H"},
		{"H", "I"}, {"I", "J"}, {"E", "A"},
		{"B", "F"}, {"C", "H"}, {"D", "J"},
	}
	nets := make([]Net, len(pairs))
	for i, p := range pairs {
		a, _ := catalog.Index(p[0])
		b, _ := catalog.Index(p[1])
		nets[i] = Net{A: a, B: b}
	}
	return Problem{Catalog: catalog, Nets: nets, Surface: Surface{W: 20, H: 20}}
}
