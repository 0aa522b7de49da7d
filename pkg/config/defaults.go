package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "0.0.0.0:8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled          = true
	DefaultCORSMaxAge           = 3600 // 1 hour
	DefaultCORSAllowCredentials = false

	// TLS defaults
	DefaultTLSEnabled    = false
	DefaultTLSMinVersion = "1.3"

	// Durable store defaults
	DefaultDurableBackend           = "sqlite"
	DefaultDurableSQLitePath        = "data/quotagate.db"
	DefaultDurableSQLiteMaxOpenConn = 10
	DefaultDurableSQLiteMaxIdleConn = 5
	DefaultDurableSQLiteWALMode     = true
	DefaultDurableSQLiteBusyTimeout = 5 * time.Second
	DefaultCheckpointSchedule       = "0 */15 * * * *"

	// Counter store defaults
	DefaultCountersBackend  = "redis"
	DefaultRedisAddress     = "127.0.0.1:6379"
	DefaultRedisDB          = 0
	DefaultRedisDialTimeout = 5 * time.Second
	DefaultRedisReadTimeout = 3 * time.Second
	DefaultRedisWriteTmout  = 3 * time.Second
	DefaultRedisPoolSize    = 20
	DefaultRedisKeyPrefix   = "quotagate"

	// Subscription cache defaults
	DefaultMinCacheTTL      = 60 * time.Second
	DefaultMaxCacheTTL      = 3600 * time.Second
	DefaultDefaultCacheTTL  = 3600 * time.Second
	DefaultNegativeCacheTTL = 300 * time.Second

	// Throttle defaults
	DefaultWatchThresholds = true
	DefaultSoftDelayCap    = 2 * time.Second

	// Authentication defaults
	DefaultAPIKeyHeader = "X-API-Key"
	DefaultRequireKey   = true

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultLoggingBuffer  = 10000
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
	DefaultMetricsNamespace = "quotagate"
	DefaultMetricsSubsystem = "ratelimit"
	DefaultHealthEnabled  = true
	DefaultLivenessPath   = "/health"
	DefaultReadinessPath  = "/ready"
	DefaultCheckTimeout   = 5 * time.Second
)

// DefaultConfig returns a configuration seeded with every default,
// including the booleans that default to true and therefore cannot be
// recovered from a zero value by ApplyDefaults alone. LoadConfig
// unmarshals YAML over this base so an explicit `false` in the file still
// wins.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Durable.SQLite.WALMode = DefaultDurableSQLiteWALMode
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Health.Enabled = true
	cfg.Telemetry.Logging.RedactPII = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(cfg)
	applyDurableDefaults(cfg)
	applyCountersDefaults(cfg)
	applySubscriptionsDefaults(cfg)
	applyThrottleDefaults(cfg)
	applyAuthenticationDefaults(cfg)
	applyTelemetryDefaults(cfg)
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	applyCORSDefaults(cfg)
}

// applyCORSDefaults applies default values to CORS configuration.
func applyCORSDefaults(cfg *Config) {
	cors := &cfg.Server.CORS

	if !cors.Enabled {
		hasAnyConfig := len(cors.AllowedOrigins) > 0 ||
			len(cors.AllowedMethods) > 0 ||
			len(cors.AllowedHeaders) > 0 ||
			len(cors.ExposedHeaders) > 0 ||
			cors.MaxAge > 0

		if !hasAnyConfig {
			cors.Enabled = DefaultCORSEnabled
		}
	}

	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID", "X-API-Key"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{
			"Content-Type", "X-Request-ID",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
			"X-Throttle-Type", "X-Suggested-Delay-Ms",
		}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyDurableDefaults(cfg *Config) {
	if cfg.Durable.Backend == "" {
		cfg.Durable.Backend = DefaultDurableBackend
	}
	if cfg.Durable.SQLite.Path == "" {
		cfg.Durable.SQLite.Path = DefaultDurableSQLitePath
	}
	if cfg.Durable.SQLite.MaxOpenConns == 0 {
		cfg.Durable.SQLite.MaxOpenConns = DefaultDurableSQLiteMaxOpenConn
	}
	if cfg.Durable.SQLite.MaxIdleConns == 0 {
		cfg.Durable.SQLite.MaxIdleConns = DefaultDurableSQLiteMaxIdleConn
	}
	if cfg.Durable.SQLite.BusyTimeout == 0 {
		cfg.Durable.SQLite.BusyTimeout = DefaultDurableSQLiteBusyTimeout
	}
	if cfg.Durable.Housekeeping.CheckpointSchedule == "" {
		cfg.Durable.Housekeeping.CheckpointSchedule = DefaultCheckpointSchedule
	}
}

func applyCountersDefaults(cfg *Config) {
	if cfg.Counters.Backend == "" {
		cfg.Counters.Backend = DefaultCountersBackend
	}
	if cfg.Counters.Redis.Address == "" {
		cfg.Counters.Redis.Address = DefaultRedisAddress
	}
	if cfg.Counters.Redis.DialTimeout == 0 {
		cfg.Counters.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Counters.Redis.ReadTimeout == 0 {
		cfg.Counters.Redis.ReadTimeout = DefaultRedisReadTimeout
	}
	if cfg.Counters.Redis.WriteTimeout == 0 {
		cfg.Counters.Redis.WriteTimeout = DefaultRedisWriteTmout
	}
	if cfg.Counters.Redis.PoolSize == 0 {
		cfg.Counters.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Counters.Redis.KeyPrefix == "" {
		cfg.Counters.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
}

func applySubscriptionsDefaults(cfg *Config) {
	if cfg.Subscriptions.MinCacheTTL == 0 {
		cfg.Subscriptions.MinCacheTTL = DefaultMinCacheTTL
	}
	if cfg.Subscriptions.MaxCacheTTL == 0 {
		cfg.Subscriptions.MaxCacheTTL = DefaultMaxCacheTTL
	}
	if cfg.Subscriptions.DefaultCacheTTL == 0 {
		cfg.Subscriptions.DefaultCacheTTL = DefaultDefaultCacheTTL
	}
	if cfg.Subscriptions.NegativeCacheTTL == 0 {
		cfg.Subscriptions.NegativeCacheTTL = DefaultNegativeCacheTTL
	}
}

func applyThrottleDefaults(cfg *Config) {
	if cfg.Throttle.ThresholdsPath != "" && !cfg.Throttle.WatchThresholds {
		cfg.Throttle.WatchThresholds = DefaultWatchThresholds
	}
	if cfg.Throttle.SoftDelayCap == 0 {
		cfg.Throttle.SoftDelayCap = DefaultSoftDelayCap
	}
}

func applyAuthenticationDefaults(cfg *Config) {
	if cfg.Authentication.HeaderName == "" {
		cfg.Authentication.HeaderName = DefaultAPIKeyHeader
	}
}

func applyTelemetryDefaults(cfg *Config) {
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.BufferSize == 0 {
		cfg.Telemetry.Logging.BufferSize = DefaultLoggingBuffer
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.EvaluatorDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.EvaluatorDurationBuckets = []float64{
			0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
		}
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultCheckTimeout
	}
}
