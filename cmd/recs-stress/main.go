package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	switch cfg.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	report, err := run(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("stress test failed")
	}

	if cfg.JSON {
		err = report.GenerateJSON(os.Stdout)
	} else {
		fmt.Println("\n\n--- Stress Test Report ---")
		err = report.Generate(os.Stdout)
		fmt.Println("--- End of Report ---")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to generate report")
	}

	logger.Info().Msg("stress test complete")
}

// run builds the world and steps it until ctx is done or the configured duration elapses.
func run(ctx context.Context, cfg Config, logger zerolog.Logger) (*Report, error) {
	report := &Report{
		RunID:          uuid.New(),
		Duration:       cfg.runDuration(),
		Entities:       cfg.Entities,
		Capacity:       cfg.Entities + cfg.Headroom,
		Seed:           cfg.Seed,
		GCPauseMetrics: cfg.GCPauseMetrics,
	}
	logger = logger.With().Str("run_id", report.RunID.String()).Logger()

	logger.Info().Msg("starting ECS stress test")
	w, err := newWorld(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer w.engine.Free()

	logger.Info().Int("entities", cfg.Entities).Msg("populating engine")
	w.populate(cfg.Entities)
	w.engine.LogState(zerolog.DebugLevel)

	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info().Dur("duration", report.Duration).Msg("running simulation")
	ctx, cancel := context.WithTimeout(ctx, report.Duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := startTime

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			w.step(deltaTime.Seconds())
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
			report.TotalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	report.Spawned = w.spawned
	report.Expired = w.expired
	report.Reaped = w.reaped
	report.Engine = w.engine.Stats()
	report.Systems = w.engine.SystemStats()

	logger.Info().Int64("updates", report.TotalUpdates).Msg("simulation finished")
	return report, nil
}
