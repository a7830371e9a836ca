package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 50000, cfg.Placement.MaxIterations)
	assert.Equal(t, 100.0, cfg.Placement.StartTemp)
	assert.Equal(t, 0.995, cfg.Placement.Cooling)
	assert.Equal(t, 10.0, cfg.Placement.OverlapPenalty)
	assert.Equal(t, 4, cfg.Placement.MaxConcurrentRuns)

	// Development defaults to verbose logging
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("PLACE_MAX_ITERATIONS", "2500")
	t.Setenv("PLACE_COOLING", "0.9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, 2500, cfg.Placement.MaxIterations)
	assert.Equal(t, 0.9, cfg.Placement.Cooling)
	assert.Equal(t, "info", cfg.Logging.Level)
}
