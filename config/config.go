package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all process configuration.
type Config struct {
	Chain    ChainConfig
	Snapshot SnapshotConfig
	Logging  LogConfig
	Metrics  MetricsConfig
}

// ChainConfig holds ledger parameters. The chain name comes from the
// genesis file or snapshot, not from the environment.
type ChainConfig struct {
	BaseGas  uint64 `envconfig:"BCFS_BASE_GAS" default:"2100"`
	GasPrice uint64 `envconfig:"BCFS_GAS_PRICE" default:"0"`
}

// SnapshotConfig names the state file the CLI loads and saves.
type SnapshotConfig struct {
	Path        string `envconfig:"BCFS_STATE"`
	Compression string `envconfig:"BCFS_COMPRESSION" default:"zstd"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"BCFS_LOG_LEVEL" default:"warn"`
	Development bool   `envconfig:"BCFS_LOG_DEV" default:"false"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// OutputFile receives the registry in text format on exit. Empty
	// disables metrics.
	OutputFile string `envconfig:"BCFS_METRICS_OUT"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Chain: ChainConfig{
			BaseGas: 2100,
		},
		Snapshot: SnapshotConfig{
			Compression: "zstd",
		},
		Logging: LogConfig{
			Level: "warn",
		},
	}
}
