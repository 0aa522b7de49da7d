// Package config provides configuration management for the rate limiting
// gateway.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention QUOTAGATE_SECTION_FIELD.
// For example:
//
//   - QUOTAGATE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - QUOTAGATE_COUNTERS_REDIS_ADDRESS overrides counters.redis.address
//   - QUOTAGATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	// At application startup
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the application
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Server.ListenAddress)
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., durable store path, Redis address)
//   - Range validation (e.g., cache TTL floors/ceilings)
//   - Format validation (e.g., health check paths)
//   - Logical validation (e.g., thresholds_path is required when watching is enabled)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - durable.sqlite.path: path is required when backend is 'sqlite'
//	  - throttle.watch_thresholds: thresholds_path is required when watch_thresholds is true
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//
//	durable:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/quotagate.db"
//
//	counters:
//	  backend: "redis"
//	  redis:
//	    address: "127.0.0.1:6379"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses read-write
// locks to allow concurrent reads while protecting against concurrent writes during
// reload operations.
package config
