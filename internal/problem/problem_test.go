package problem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/TAIGA/internal/placement"
)

const validProblem = `
nets = [["A", "B"]]

[surface]
width = 20
height = 20

[[modules]]
name = "A"
width = 2
height = 3

[[modules]]
name = "B"
width = 3
height = 2

[annealing]
max_iterations = 1000
start_temp = 50.0
cooling = 0.99
seed = 7
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validProblem))
	require.NoError(t, err)

	require.Len(t, cfg.Problem.Catalog, 2)
	assert.Equal(t, placement.Module{Name: "A", W: 2, H: 3}, cfg.Problem.Catalog[0])
	assert.Equal(t, placement.Module{Name: "B", W: 3, H: 2}, cfg.Problem.Catalog[1])

	require.Len(t, cfg.Problem.Nets, 1)
	assert.Equal(t, placement.Net{A: 0, B: 1}, cfg.Problem.Nets[0])

	assert.Equal(t, placement.Surface{W: 20, H: 20}, cfg.Problem.Surface)
	assert.Equal(t, 1000, cfg.MaxIterations)
	assert.Equal(t, 50.0, cfg.StartTemp)
	assert.Equal(t, 0.99, cfg.Cooling)
	assert.Equal(t, int64(7), cfg.Seed)

	// Unset penalty takes the engine default.
	assert.Equal(t, placement.DefaultOverlapPenalty, cfg.OverlapPenalty)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "malformed toml",
			input:   "[[surface",
			wantErr: "parsing problem file",
		},
		{
			name: "duplicate module name",
			input: `
[surface]
width = 10
height = 10
[[modules]]
name = "A"
width = 1
height = 1
[[modules]]
name = "A"
width = 2
height = 2
`,
			wantErr: "duplicate module name",
		},
		{
			name: "net with one endpoint",
			input: `
nets = [["A"]]
[surface]
width = 10
height = 10
[[modules]]
name = "A"
width = 1
height = 1
`,
			wantErr: "exactly two modules",
		},
		{
			name: "net referencing unknown module",
			input: `
nets = [["A", "Z"]]
[surface]
width = 10
height = 10
[[modules]]
name = "A"
width = 1
height = 1
`,
			wantErr: `unknown module "Z"`,
		},
		{
			name: "module too large for surface",
			input: `
[surface]
width = 10
height = 10
[[modules]]
name = "A"
width = 11
height = 1
`,
			wantErr: "does not fit",
		},
		{
			name: "cooling out of range",
			input: `
[surface]
width = 10
height = 10
[[modules]]
name = "A"
width = 1
height = 1
[annealing]
cooling = 1.5
`,
			wantErr: "strictly inside (0,1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problem.toml")
	require.NoError(t, os.WriteFile(path, []byte(validProblem), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Problem.Catalog, 2)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading problem file")
}
