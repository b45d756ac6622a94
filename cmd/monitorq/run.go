package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/aradilov/monitorq"
	"github.com/aradilov/monitorq/internal/config"
	"github.com/aradilov/monitorq/internal/logging"
	"github.com/aradilov/monitorq/internal/workload"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	configPath string
	duration   time.Duration
	logLevel   string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run producers and consumers against a bounded channel"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags]

Runs the configured producers and consumers, then logs the channel statistics.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.configPath, "config", "", "path to a configuration file (json, yaml, toml)")
	f.DurationVar(&r.duration, "duration", 0, "override workload.duration")
	f.StringVar(&r.logLevel, "log-level", "", "override logLevel")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg, err := config.Load(r.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitorq: %v\n", err)
		return subcommands.ExitFailure
	}
	if r.duration > 0 {
		cfg.Workload.Duration = r.duration
	}
	if r.logLevel != "" {
		cfg.LogLevel = r.logLevel
	}

	log := logging.New(os.Stderr, cfg.LogLevel)

	ch, err := monitorq.New[int](cfg.Channel.Capacity,
		monitorq.WithLogger(log),
		monitorq.WithDeadlockThreshold(cfg.Channel.DeadlockThreshold),
	)
	if err != nil {
		log.Error().Err(err).Msg("creating channel")
		return subcommands.ExitFailure
	}

	if cfg.Workload.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Workload.Duration)
		defer cancel()
	}

	log.Info().
		Int("capacity", cfg.Channel.Capacity).
		Int("producers", cfg.Workload.Producers).
		Int("consumers", cfg.Workload.Consumers).
		Dur("duration", cfg.Workload.Duration).
		Msg("starting")

	report, err := workload.Run(ctx, ch, workloadConfig(cfg), log)
	report.Log(log)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func workloadConfig(cfg *config.Config) workload.Config {
	return workload.Config{
		Producers:        cfg.Workload.Producers,
		Consumers:        cfg.Workload.Consumers,
		Items:            cfg.Workload.Items,
		InsertTimeout:    cfg.Workload.InsertTimeout,
		RemoveTimeout:    cfg.Workload.RemoveTimeout,
		ProduceDelay:     cfg.Workload.ProduceDelay,
		ConsumeDelay:     cfg.Workload.ConsumeDelay,
		WatchdogInterval: cfg.Channel.WatchdogInterval,
	}
}
