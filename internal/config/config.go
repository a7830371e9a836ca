package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Placement struct {
		// Engine defaults applied when a request leaves a parameter unset.
		MaxIterations  int     `env:"PLACE_MAX_ITERATIONS" envDefault:"50000"`
		StartTemp      float64 `env:"PLACE_START_TEMP" envDefault:"100"`
		Cooling        float64 `env:"PLACE_COOLING" envDefault:"0.995"`
		OverlapPenalty float64 `env:"PLACE_OVERLAP_PENALTY" envDefault:"10"`
		// MaxConcurrentRuns caps placement jobs running at once.
		MaxConcurrentRuns int `env:"PLACE_MAX_CONCURRENT_RUNS" envDefault:"4"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Verbose logging by default in development
	if cfg.Environment == "development" && cfg.Logging.Level == "info" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
