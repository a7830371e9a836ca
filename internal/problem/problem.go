// Package problem describes placement problems as they cross the service
// boundary: TOML files for the CLI and JSON bodies for the HTTP API share
// the same spec shape. A problem names its modules, connects them with
// nets, and bounds the surface; an optional annealing table overrides the
// engine defaults.
//
//	[surface]
//	width = 20
//	height = 20
//
//	[[modules]]
//	name = "A"
//	width = 2
//	height = 3
//
//	nets = [["A", "B"]]
//
//	[annealing]
//	max_iterations = 50000
//	start_temp = 100.0
//	cooling = 0.995
//	overlap_penalty = 10.0
//	seed = 0
package problem

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/copyleftdev/TAIGA/internal/placement"
)

// Spec is the external description of a placement problem. Module names are
// only meaningful here; they are resolved to dense ids when the spec is
// turned into a run configuration.
type Spec struct {
	Surface   SurfaceSpec  `toml:"surface" json:"surface"`
	Modules   []ModuleSpec `toml:"modules" json:"modules"`
	Nets      [][]string   `toml:"nets" json:"nets"`
	Annealing AnnealSpec   `toml:"annealing" json:"annealing"`
}

// SurfaceSpec bounds the placement area.
type SurfaceSpec struct {
	Width  float64 `toml:"width" json:"width"`
	Height float64 `toml:"height" json:"height"`
}

// ModuleSpec is one catalog entry.
type ModuleSpec struct {
	Name   string  `toml:"name" json:"name"`
	Width  float64 `toml:"width" json:"width"`
	Height float64 `toml:"height" json:"height"`
}

// AnnealSpec overrides engine parameters; zero values take defaults.
type AnnealSpec struct {
	MaxIterations  int     `toml:"max_iterations" json:"max_iterations"`
	StartTemp      float64 `toml:"start_temp" json:"start_temp"`
	Cooling        float64 `toml:"cooling" json:"cooling"`
	OverlapPenalty float64 `toml:"overlap_penalty" json:"overlap_penalty"`
	Seed           int64   `toml:"seed" json:"seed"`
}

// Config resolves the spec into a normalized, validated run configuration.
// A non-nil error is a configuration error; no run may start on one.
func (s Spec) Config() (placement.PlacerConfig, error) {
	catalog := make(placement.Catalog, 0, len(s.Modules))
	for _, m := range s.Modules {
		if _, exists := catalog.Index(m.Name); exists {
			return placement.PlacerConfig{}, placement.NewErrorf("duplicate module name %q", m.Name).
				WithComponent("problem").WithOperation("resolve")
		}
		catalog = append(catalog, placement.Module{Name: m.Name, W: m.Width, H: m.Height})
	}

	nets := make([]placement.Net, 0, len(s.Nets))
	for i, pair := range s.Nets {
		if len(pair) != 2 {
			return placement.PlacerConfig{}, placement.NewErrorf("net %d must name exactly two modules, got %d", i, len(pair)).
				WithComponent("problem").WithOperation("resolve")
		}
		a, ok := catalog.Index(pair[0])
		if !ok {
			return placement.PlacerConfig{}, placement.NewErrorf("net %d references unknown module %q", i, pair[0]).
				WithComponent("problem").WithOperation("resolve")
		}
		b, ok := catalog.Index(pair[1])
		if !ok {
			return placement.PlacerConfig{}, placement.NewErrorf("net %d references unknown module %q", i, pair[1]).
				WithComponent("problem").WithOperation("resolve")
		}
		nets = append(nets, placement.Net{A: a, B: b})
	}

	cfg := placement.PlacerConfig{
		Problem: placement.Problem{
			Catalog: catalog,
			Nets:    nets,
			Surface: placement.Surface{W: s.Surface.Width, H: s.Surface.Height},
		},
		MaxIterations:  s.Annealing.MaxIterations,
		StartTemp:      s.Annealing.StartTemp,
		Cooling:        s.Annealing.Cooling,
		OverlapPenalty: s.Annealing.OverlapPenalty,
		Seed:           s.Annealing.Seed,
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return placement.PlacerConfig{}, err
	}
	return cfg, nil
}

// Load reads a TOML problem file and resolves it into a run configuration.
func Load(path string) (placement.PlacerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return placement.PlacerConfig{}, placement.WrapError(err, "reading problem file").
			WithComponent("problem").WithOperation("load")
	}
	return Parse(data)
}

// Parse resolves a raw TOML problem description.
func Parse(data []byte) (placement.PlacerConfig, error) {
	var spec Spec
	if err := toml.Unmarshal(data, &spec); err != nil {
		return placement.PlacerConfig{}, placement.WrapError(err, "parsing problem file").
			WithComponent("problem").WithOperation("parse")
	}
	return spec.Config()
}
