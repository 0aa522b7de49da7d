package config

import (
	"fmt"
	"strings"
	"time"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateDurable(&cfg.Durable)...)
	errs = append(errs, validateCounters(&cfg.Counters)...)
	errs = append(errs, validateSubscriptions(&cfg.Subscriptions)...)
	errs = append(errs, validateThrottle(&cfg.Throttle)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must be non-negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must be non-negative"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "must be non-negative"})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "must be non-negative"})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "exceeds reasonable limit (10MB)",
		})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "required when TLS is enabled"})
		}
		if cfg.TLS.MinVersion != "" && cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{
				Field:   "server.tls.min_version",
				Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.TLS.MinVersion),
			})
		}
	}

	return errs
}

func validateDurable(cfg *DurableConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{Field: "durable.backend", Message: "backend is required"})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "durable.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite' or 'memory'", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "durable.sqlite.path",
			Message: "path is required when backend is 'sqlite'",
		})
	}
	if cfg.SQLite.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: "durable.sqlite.busy_timeout", Message: "must be non-negative"})
	}

	return errs
}

func validateCounters(cfg *CountersConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"redis": true, "memory": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{Field: "counters.backend", Message: "backend is required"})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "counters.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'redis' or 'memory'", cfg.Backend),
		})
	}

	if cfg.Backend == "redis" {
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{
				Field:   "counters.redis.address",
				Message: "address is required when backend is 'redis'",
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{Field: "counters.redis.db", Message: "must be non-negative"})
		}
		if cfg.Redis.PoolSize < 0 {
			errs = append(errs, FieldError{Field: "counters.redis.pool_size", Message: "must be non-negative"})
		}
	}

	return errs
}

func validateSubscriptions(cfg *SubscriptionsConfig) []FieldError {
	var errs []FieldError

	if cfg.MinCacheTTL < 0 {
		errs = append(errs, FieldError{Field: "subscriptions.min_cache_ttl", Message: "must be non-negative"})
	}
	if cfg.MaxCacheTTL < 0 {
		errs = append(errs, FieldError{Field: "subscriptions.max_cache_ttl", Message: "must be non-negative"})
	}
	if cfg.MinCacheTTL > 0 && cfg.MaxCacheTTL > 0 && cfg.MinCacheTTL > cfg.MaxCacheTTL {
		errs = append(errs, FieldError{
			Field:   "subscriptions.min_cache_ttl",
			Message: "must not exceed subscriptions.max_cache_ttl",
		})
	}
	if cfg.NegativeCacheTTL < 0 {
		errs = append(errs, FieldError{Field: "subscriptions.negative_cache_ttl", Message: "must be non-negative"})
	}

	return errs
}

func validateThrottle(cfg *ThrottleConfig) []FieldError {
	var errs []FieldError

	if cfg.SoftDelayCap < 0 {
		errs = append(errs, FieldError{Field: "throttle.soft_delay_cap", Message: "must be non-negative"})
	}
	if cfg.WatchThresholds && cfg.ThresholdsPath == "" {
		errs = append(errs, FieldError{
			Field:   "throttle.watch_thresholds",
			Message: "thresholds_path is required when watch_thresholds is true",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}

	if cfg.Health.Enabled {
		if cfg.Health.LivenessPath == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.liveness_path",
				Message: "liveness path is required when health checks are enabled",
			})
		} else if cfg.Health.LivenessPath[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.liveness_path",
				Message: "liveness path must start with /",
			})
		}
		if cfg.Health.ReadinessPath == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path is required when health checks are enabled",
			})
		} else if cfg.Health.ReadinessPath[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must start with /",
			})
		}

		if cfg.Health.CheckTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "must be non-negative",
			})
		}
		if cfg.Health.CheckTimeout > 60*time.Second {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "exceeds reasonable limit (60s)",
			})
		}
	}

	return errs
}
