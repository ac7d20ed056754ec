package main

import (
	"flag"
	"time"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
)

// Config is loaded from RECS_* environment variables, then overridden by flags.
type Config struct {
	Duration       string `config:"RECS_DURATION"`
	Entities       int    `config:"RECS_ENTITIES"`
	Headroom       int    `config:"RECS_HEADROOM"`
	Seed           int64  `config:"RECS_SEED"`
	MaxLifetime    int    `config:"RECS_MAX_LIFETIME"`
	GCPauseMetrics bool   `config:"RECS_GC_PAUSE_METRICS"`
	JSON           bool   `config:"RECS_JSON"`
	Profile        string `config:"RECS_PROFILE"`
	LogLevel       string `config:"RECS_LOG_LEVEL"`
}

func defaultConfig() Config {
	return Config{
		Duration:    "10s",
		Entities:    10000,
		Headroom:    1024,
		Seed:        1,
		MaxLifetime: 600,
		LogLevel:    "info",
	}
}

// loadConfig reads the environment into the defaults and lets args override it.
func loadConfig(args []string) (Config, error) {
	cfg := defaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to read environment")
	}

	fs := flag.NewFlagSet("recs-stress", flag.ContinueOnError)
	fs.StringVar(&cfg.Duration, "duration", cfg.Duration, "The total duration the test should run for.")
	fs.IntVar(&cfg.Entities, "entities", cfg.Entities, "The initial number of entities to create.")
	fs.IntVar(&cfg.Headroom, "headroom", cfg.Headroom, "Extra entity slots beyond the initial population.")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for population and respawns.")
	fs.IntVar(&cfg.MaxLifetime, "max-lifetime", cfg.MaxLifetime, "Maximum lifetime of an entity in frames.")
	fs.BoolVar(&cfg.GCPauseMetrics, "gc-pause-metrics", cfg.GCPauseMetrics, "Enable detailed GC pause metrics in the report.")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "Print the report as JSON.")
	fs.StringVar(&cfg.Profile, "profile", cfg.Profile, "Write a cpu or mem profile to the working directory.")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error).")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if _, err := time.ParseDuration(c.Duration); err != nil {
		return eris.Wrapf(err, "invalid duration %q", c.Duration)
	}

	if c.Entities <= 0 {
		return eris.Errorf("entities must be positive, got %d", c.Entities)
	}
	if c.Headroom < 0 {
		return eris.Errorf("headroom must not be negative, got %d", c.Headroom)
	}
	if c.MaxLifetime <= 0 {
		return eris.Errorf("max lifetime must be positive, got %d", c.MaxLifetime)
	}
	switch c.Profile {
	case "", "cpu", "mem":
	default:
		return eris.Errorf("unknown profile mode %q", c.Profile)
	}
	return nil
}

func (c Config) runDuration() time.Duration {
	d, _ := time.ParseDuration(c.Duration)
	return d
}
