// Package config loads the demo configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MONITORQ_CHANNEL_CAPACITY.
const EnvPrefix = "MONITORQ"

// ChannelConfig holds the bounded channel settings.
type ChannelConfig struct {
	Capacity          int           `mapstructure:"capacity"`
	DeadlockThreshold time.Duration `mapstructure:"deadlockThreshold"`
	WatchdogInterval  time.Duration `mapstructure:"watchdogInterval"`
}

// WorkloadConfig holds the producer/consumer settings.
type WorkloadConfig struct {
	Producers int `mapstructure:"producers"`
	Consumers int `mapstructure:"consumers"`
	// Items is the number of items each producer inserts. 0 produces until
	// Duration elapses.
	Items int `mapstructure:"items"`

	InsertTimeout time.Duration `mapstructure:"insertTimeout"`
	RemoveTimeout time.Duration `mapstructure:"removeTimeout"`
	ProduceDelay  time.Duration `mapstructure:"produceDelay"`
	ConsumeDelay  time.Duration `mapstructure:"consumeDelay"`
	Duration      time.Duration `mapstructure:"duration"`
}

// Config is the full demo configuration.
type Config struct {
	LogLevel string         `mapstructure:"logLevel"`
	Channel  ChannelConfig  `mapstructure:"channel"`
	Workload WorkloadConfig `mapstructure:"workload"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")

	v.SetDefault("channel.capacity", 10)
	v.SetDefault("channel.deadlockThreshold", "5s")
	v.SetDefault("channel.watchdogInterval", "1s")

	v.SetDefault("workload.producers", 1)
	v.SetDefault("workload.consumers", 1)
	v.SetDefault("workload.items", 0)
	v.SetDefault("workload.insertTimeout", "1s")
	v.SetDefault("workload.removeTimeout", "1500ms")
	v.SetDefault("workload.produceDelay", "100ms")
	v.SetDefault("workload.consumeDelay", "150ms")
	v.SetDefault("workload.duration", "10s")
}

// Load reads configuration from path, if not empty, on top of the defaults.
// Environment variables prefixed with EnvPrefix override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the demo cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Channel.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("channel.capacity must be > 0, got %d", c.Channel.Capacity))
	}
	if c.Workload.Producers <= 0 {
		errs = append(errs, fmt.Errorf("workload.producers must be > 0, got %d", c.Workload.Producers))
	}
	if c.Workload.Consumers <= 0 {
		errs = append(errs, fmt.Errorf("workload.consumers must be > 0, got %d", c.Workload.Consumers))
	}
	if c.Workload.Items < 0 {
		errs = append(errs, fmt.Errorf("workload.items must be >= 0, got %d", c.Workload.Items))
	}
	for name, d := range map[string]time.Duration{
		"channel.deadlockThreshold": c.Channel.DeadlockThreshold,
		"channel.watchdogInterval":  c.Channel.WatchdogInterval,
		"workload.insertTimeout":    c.Workload.InsertTimeout,
		"workload.removeTimeout":    c.Workload.RemoveTimeout,
		"workload.produceDelay":     c.Workload.ProduceDelay,
		"workload.consumeDelay":     c.Workload.ConsumeDelay,
		"workload.duration":         c.Workload.Duration,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, d))
		}
	}
	if c.Workload.Items == 0 && c.Workload.Duration == 0 {
		errs = append(errs, errors.New("one of workload.items or workload.duration must be set"))
	}
	return errors.Join(errs...)
}
