// Package config loads and validates warden configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level warden configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Stream  StreamConfig  `yaml:"stream"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StoreConfig configures the rule bundle store.
type StoreConfig struct {
	// Dir holds the bundle and index artifacts.
	Dir string `yaml:"dir"`

	// Cache enables the in-process bundle read cache.
	Cache bool `yaml:"cache"`

	// Watch enables fsnotify invalidation of the cache when another
	// process replaces the bundle. Only meaningful with Cache.
	Watch bool `yaml:"watch"`
}

// LedgerConfig configures the violation ledger.
type LedgerConfig struct {
	Path       string `yaml:"path"`
	StatusPath string `yaml:"status_path"`
}

// StreamConfig configures live distribution.
type StreamConfig struct {
	// PollInterval is the ledger size polling cadence per subscriber.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Buffer is the per-subscriber channel capacity.
	Buffer int `yaml:"buffer"`
}

// ArchiveConfig configures the queryable violation mirror.
type ArchiveConfig struct {
	// Enabled turns archive mirroring on.
	Enabled bool `yaml:"enabled"`

	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// Driver selects the SQL driver for the sqlite backend: "sqlite3"
	// (cgo) or "sqlite" (pure Go).
	Driver string `yaml:"driver"`

	// Path is the sqlite database file.
	Path string `yaml:"path"`

	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig configures archive pruning.
type RetentionConfig struct {
	Days     int    `yaml:"days"`
	MaxRows  int64  `yaml:"max_rows"`
	Schedule string `yaml:"schedule"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metric naming.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "out"
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "out/violations.jsonl"
	}
	if cfg.Ledger.StatusPath == "" {
		cfg.Ledger.StatusPath = "out/violations_state.json"
	}
	if cfg.Stream.PollInterval == 0 {
		cfg.Stream.PollInterval = time.Second
	}
	if cfg.Stream.Buffer == 0 {
		cfg.Stream.Buffer = 64
	}
	if cfg.Archive.Backend == "" {
		cfg.Archive.Backend = "sqlite"
	}
	if cfg.Archive.Driver == "" {
		cfg.Archive.Driver = "sqlite3"
	}
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = "data/violations.db"
	}
	if cfg.Archive.Retention.Days == 0 {
		cfg.Archive.Retention.Days = 90
	}
	if cfg.Archive.Retention.Schedule == "" {
		cfg.Archive.Retention.Schedule = "0 3 * * *"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "warden"
	}
}

// Validate checks the configuration for inconsistencies.
func Validate(cfg *Config) error {
	if cfg.Stream.PollInterval < 0 {
		return fmt.Errorf("stream.poll_interval must be positive, got %s", cfg.Stream.PollInterval)
	}
	if cfg.Stream.Buffer < 0 {
		return fmt.Errorf("stream.buffer must be positive, got %d", cfg.Stream.Buffer)
	}

	switch cfg.Archive.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("archive.backend must be sqlite or memory, got %q", cfg.Archive.Backend)
	}

	switch cfg.Archive.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("archive.driver must be sqlite3 or sqlite, got %q", cfg.Archive.Driver)
	}

	if cfg.Archive.Retention.Days < 0 {
		return fmt.Errorf("archive.retention.days must not be negative, got %d", cfg.Archive.Retention.Days)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}

	return nil
}
