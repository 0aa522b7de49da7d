package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Unmarshal over the seeded defaults so booleans that default to true
	// (WAL mode, metrics, health, PII redaction) survive being absent from
	// the file, while an explicit false still wins.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention QUOTAGATE_SECTION_FIELD (e.g., QUOTAGATE_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format QUOTAGATE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("QUOTAGATE_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("QUOTAGATE_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("QUOTAGATE_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("QUOTAGATE_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("QUOTAGATE_SERVER_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxHeaderBytes = i
		}
	}

	if val := os.Getenv("QUOTAGATE_DURABLE_BACKEND"); val != "" {
		cfg.Durable.Backend = val
	}
	if val := os.Getenv("QUOTAGATE_DURABLE_SQLITE_PATH"); val != "" {
		cfg.Durable.SQLite.Path = val
	}
	if val := os.Getenv("QUOTAGATE_DURABLE_HOUSEKEEPING_SCHEDULE"); val != "" {
		cfg.Durable.Housekeeping.CheckpointSchedule = val
	}

	if val := os.Getenv("QUOTAGATE_COUNTERS_BACKEND"); val != "" {
		cfg.Counters.Backend = val
	}
	if val := os.Getenv("QUOTAGATE_COUNTERS_REDIS_ADDRESS"); val != "" {
		cfg.Counters.Redis.Address = val
	}
	if val := os.Getenv("QUOTAGATE_COUNTERS_REDIS_PASSWORD"); val != "" {
		cfg.Counters.Redis.Password = val
	}
	if val := os.Getenv("QUOTAGATE_COUNTERS_REDIS_DB"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Counters.Redis.DB = i
		}
	}

	if val := os.Getenv("QUOTAGATE_THROTTLE_THRESHOLDS_PATH"); val != "" {
		cfg.Throttle.ThresholdsPath = val
	}
	if val := os.Getenv("QUOTAGATE_THROTTLE_WATCH_THRESHOLDS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Throttle.WatchThresholds = b
		}
	}

	if val := os.Getenv("QUOTAGATE_AUTH_HEADER_NAME"); val != "" {
		cfg.Authentication.HeaderName = val
	}

	if val := os.Getenv("QUOTAGATE_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("QUOTAGATE_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("QUOTAGATE_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("QUOTAGATE_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
