// Package config loads service configuration from defaults, an optional
// YAML file, and PICKBOARD_-prefixed environment variables.
package config

import "fmt"

// Config holds all runtime settings for the pickboard service.
type Config struct {
	LogLevel string `koanf:"log_level"`
	Addr     string `koanf:"addr"`

	StoreBackend string `koanf:"store_backend"`
	StoreDSN     string `koanf:"store_dsn"`

	CSVDropDir        string `koanf:"csv_drop_dir"`
	ScanIntervalSec   int    `koanf:"scan_interval_sec"`
	IngestQueueSize   int    `koanf:"ingest_queue_size"`
	IngestWorkerCount int    `koanf:"ingest_worker_count"`
	IngestBatchSize   int    `koanf:"ingest_batch_size"`

	LeaderboardSize int    `koanf:"leaderboard_size"`
	CohortCSVPath   string `koanf:"cohort_csv_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:          "info",
		Addr:              ":8090",
		StoreBackend:      "memory",
		CSVDropDir:        "csv_uploads",
		ScanIntervalSec:   600,
		IngestQueueSize:   100,
		IngestWorkerCount: 2,
		IngestBatchSize:   500,
		LeaderboardSize:   15,
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.StoreBackend != "memory" && c.StoreDSN == "" {
		return fmt.Errorf("%w: store_dsn required for backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.ScanIntervalSec <= 0 {
		return fmt.Errorf("%w: scan_interval_sec must be positive", ErrInvalidConfig)
	}
	if c.IngestQueueSize <= 0 {
		return fmt.Errorf("%w: ingest_queue_size must be positive", ErrInvalidConfig)
	}
	if c.IngestWorkerCount <= 0 {
		return fmt.Errorf("%w: ingest_worker_count must be positive", ErrInvalidConfig)
	}
	if c.IngestBatchSize <= 0 {
		return fmt.Errorf("%w: ingest_batch_size must be positive", ErrInvalidConfig)
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("%w: leaderboard_size must be positive", ErrInvalidConfig)
	}
	return nil
}
