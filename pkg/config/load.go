package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file, applies defaults and
// validates. Environment variables are not consulted; use LoadWithEnv for
// that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from a YAML file and applies WARDEN_*
// environment overrides, which always win over file values.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies WARDEN_SECTION_FIELD environment variables.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("WARDEN_STORE_DIR"); val != "" {
		cfg.Store.Dir = val
	}
	if val := os.Getenv("WARDEN_STORE_CACHE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Store.Cache = b
		}
	}
	if val := os.Getenv("WARDEN_LEDGER_PATH"); val != "" {
		cfg.Ledger.Path = val
	}
	if val := os.Getenv("WARDEN_LEDGER_STATUS_PATH"); val != "" {
		cfg.Ledger.StatusPath = val
	}
	if val := os.Getenv("WARDEN_STREAM_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Stream.PollInterval = d
		}
	}
	if val := os.Getenv("WARDEN_ARCHIVE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Archive.Enabled = b
		}
	}
	if val := os.Getenv("WARDEN_ARCHIVE_BACKEND"); val != "" {
		cfg.Archive.Backend = val
	}
	if val := os.Getenv("WARDEN_ARCHIVE_DRIVER"); val != "" {
		cfg.Archive.Driver = val
	}
	if val := os.Getenv("WARDEN_ARCHIVE_PATH"); val != "" {
		cfg.Archive.Path = val
	}
	if val := os.Getenv("WARDEN_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("WARDEN_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
