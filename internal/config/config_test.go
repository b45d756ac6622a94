package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.Channel.Capacity)
	assert.Equal(t, 5*time.Second, cfg.Channel.DeadlockThreshold)
	assert.Equal(t, time.Second, cfg.Channel.WatchdogInterval)
	assert.Equal(t, 1, cfg.Workload.Producers)
	assert.Equal(t, 1, cfg.Workload.Consumers)
	assert.Equal(t, 0, cfg.Workload.Items)
	assert.Equal(t, time.Second, cfg.Workload.InsertTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Workload.RemoveTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Workload.ProduceDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.Workload.ConsumeDelay)
	assert.Equal(t, 10*time.Second, cfg.Workload.Duration)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitorq.json")
	content := `{
		"logLevel": "debug",
		"channel": {"capacity": 3, "deadlockThreshold": "250ms"},
		"workload": {"producers": 4, "consumers": 2, "items": 50, "insertTimeout": "0s"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Channel.Capacity)
	assert.Equal(t, 250*time.Millisecond, cfg.Channel.DeadlockThreshold)
	assert.Equal(t, 4, cfg.Workload.Producers)
	assert.Equal(t, 2, cfg.Workload.Consumers)
	assert.Equal(t, 50, cfg.Workload.Items)
	assert.Equal(t, time.Duration(0), cfg.Workload.InsertTimeout)
	// untouched keys keep their defaults
	assert.Equal(t, 1500*time.Millisecond, cfg.Workload.RemoveTimeout)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MONITORQ_CHANNEL_CAPACITY", "7")
	t.Setenv("MONITORQ_WORKLOAD_CONSUMERS", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Channel.Capacity)
	assert.Equal(t, 3, cfg.Workload.Consumers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MONITORQ_CHANNEL_CAPACITY", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel.capacity")
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Channel: ChannelConfig{Capacity: -1},
		Workload: WorkloadConfig{
			Producers:     0,
			Consumers:     1,
			InsertTimeout: -time.Second,
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel.capacity")
	assert.Contains(t, err.Error(), "workload.producers")
	assert.Contains(t, err.Error(), "workload.insertTimeout")
	assert.Contains(t, err.Error(), "workload.items or workload.duration")

	cfg = Config{
		Channel:  ChannelConfig{Capacity: 1},
		Workload: WorkloadConfig{Producers: 1, Consumers: 1, Items: 1},
	}
	assert.NoError(t, cfg.Validate())
}
