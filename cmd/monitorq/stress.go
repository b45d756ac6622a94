package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/aradilov/monitorq"
	"github.com/aradilov/monitorq/internal/logging"
	"github.com/aradilov/monitorq/internal/workload"
)

// Stress implements subcommands.Command for the "stress" command.
type Stress struct {
	rounds   int
	logLevel string
}

// Name implements subcommands.Command.Name.
func (*Stress) Name() string {
	return "stress"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Stress) Synopsis() string {
	return "run the 4x4 producer/consumer stress scenario and check its invariants"
}

// Usage implements subcommands.Command.Usage.
func (*Stress) Usage() string {
	return `stress [flags]
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Stress) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.rounds, "rounds", 1, "number of times to run the scenario")
	f.StringVar(&s.logLevel, "log-level", "info", "log level")
}

// Execute implements subcommands.Command.Execute.
func (s *Stress) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 || s.rounds <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	log := logging.New(os.Stderr, s.logLevel)
	cfg := workload.Stress()

	for i := 0; i < s.rounds; i++ {
		rlog := log.With().Int("round", i).Logger()

		ch, err := monitorq.New[int](workload.StressCapacity, monitorq.WithLogger(rlog))
		if err != nil {
			rlog.Error().Err(err).Msg("creating channel")
			return subcommands.ExitFailure
		}

		report, err := workload.Run(ctx, ch, cfg, rlog)
		report.Log(rlog)
		if err != nil {
			rlog.Error().Err(err).Msg("stress run failed")
			return subcommands.ExitFailure
		}
		if err := report.Check(cfg); err != nil {
			rlog.Error().Err(err).Msg("invariant violated")
			return subcommands.ExitFailure
		}
	}
	log.Info().Int("rounds", s.rounds).Msg("stress passed")
	return subcommands.ExitSuccess
}
