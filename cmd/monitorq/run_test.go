package main

import (
	"context"
	"flag"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradilov/monitorq/internal/config"
)

func TestWorkloadConfig(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	w := workloadConfig(cfg)
	assert.Equal(t, cfg.Workload.Producers, w.Producers)
	assert.Equal(t, cfg.Workload.Consumers, w.Consumers)
	assert.Equal(t, cfg.Workload.InsertTimeout, w.InsertTimeout)
	assert.Equal(t, cfg.Workload.RemoveTimeout, w.RemoveTimeout)
	assert.Equal(t, cfg.Channel.WatchdogInterval, w.WatchdogInterval)
}

func execute(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

func TestRunCommand(t *testing.T) {
	t.Setenv("MONITORQ_WORKLOAD_PRODUCEDELAY", "1ms")
	t.Setenv("MONITORQ_WORKLOAD_CONSUMEDELAY", "1ms")

	status := execute(t, new(Run), "-duration", (50 * time.Millisecond).String(), "-log-level", "error")
	assert.Equal(t, subcommands.ExitSuccess, status)
}

func TestRunCommandBadConfig(t *testing.T) {
	t.Setenv("MONITORQ_CHANNEL_CAPACITY", "-3")

	status := execute(t, new(Run), "-log-level", "error")
	assert.Equal(t, subcommands.ExitFailure, status)
}

func TestStressCommand(t *testing.T) {
	assert.Equal(t, subcommands.ExitSuccess, execute(t, new(Stress), "-log-level", "error"))
	assert.Equal(t, subcommands.ExitUsageError, execute(t, new(Stress), "-rounds", "0"))
}
