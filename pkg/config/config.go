package config

import "time"

// Config is the root configuration structure for the rate limiting gateway.
// It contains all configuration sections for the HTTP server, the durable
// store, the shared counter store, throttle enforcement, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Durable contains configuration for the durable store holding
	// subscription plans, clients, and rate limit rules.
	Durable DurableConfig `yaml:"durable"`

	// Counters contains configuration for the shared counter store used
	// to evaluate and increment rate limit windows atomically.
	Counters CountersConfig `yaml:"counters"`

	// Subscriptions contains configuration for the subscription resolver
	// cache.
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`

	// Throttle contains configuration for the throttle classifier
	// thresholds, hot-reloadable from disk.
	Throttle ThrottleConfig `yaml:"throttle"`

	// Authentication contains API key authentication configuration used
	// to resolve the calling client.
	Authentication AuthenticationConfig `yaml:"authentication"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "0.0.0.0:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero or negative value means no timeout.
	// Default: 15s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// RequestTimeout bounds the total time an inbound request, including any
	// soft-throttle delay, may take before the server aborts it.
	// Default: 10s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// If requests are still in-flight after this timeout, the server will
	// force shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values, including the
	// request line. It does not limit the size of the request body.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS contains TLS configuration for the server.
	TLS TLSConfig `yaml:"tls"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Use ["*"] to allow all origins (not recommended for production).
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "PUT", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Authorization", "Content-Type", "X-Request-ID", "X-API-Key"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers that are exposed to the client.
	// Default: ["Content-Type", "X-Request-ID", "X-RateLimit-Limit",
	// "X-RateLimit-Remaining", "Retry-After", "X-Throttle-Type",
	// "X-Suggested-Delay-Ms"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600 (1 hour)
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials (cookies, auth headers)
	// are allowed in CORS requests.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	// Enabled controls whether TLS is enabled for the server.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the TLS certificate file.
	// Required when Enabled is true.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the TLS private key file.
	// Required when Enabled is true.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept.
	// Options: "1.2", "1.3"
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`
}

// DurableConfig contains configuration for the durable store holding
// subscription plans, clients, and rate limit rules.
type DurableConfig struct {
	// Backend selects the durable store implementation.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite DurableSQLiteConfig `yaml:"sqlite"`

	// Housekeeping contains the WAL checkpoint schedule.
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
}

// DurableSQLiteConfig contains SQLite-specific configuration for the
// durable store.
type DurableSQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/quotagate.db"
	Path string `yaml:"path"`

	// MaxOpenConns is passed to the durable store, which does not apply it:
	// the SQLite pool is always limited to one open connection.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is passed to the durable store, which does not apply it:
	// the SQLite pool always keeps at most one idle connection.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// HousekeepingConfig configures periodic maintenance of the durable store.
type HousekeepingConfig struct {
	// CheckpointSchedule is a cron expression controlling how often the
	// SQLite WAL is checkpointed.
	// Default: "0 */15 * * * *" (every 15 minutes)
	CheckpointSchedule string `yaml:"checkpoint_schedule"`
}

// CountersConfig contains configuration for the shared counter store used
// to atomically evaluate and increment rate limit windows.
type CountersConfig struct {
	// Backend selects the counter store implementation.
	// Options: "redis", "memory"
	// Default: "redis"
	Backend string `yaml:"backend"`

	// Redis contains Redis-specific configuration.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains configuration for the Redis-backed counter store.
type RedisConfig struct {
	// Address is the "host:port" of the Redis server.
	// Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password is the Redis AUTH password, if required.
	Password string `yaml:"password"`

	// DB is the Redis logical database index.
	// Default: 0
	DB int `yaml:"db"`

	// DialTimeout bounds establishing a new connection.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ReadTimeout bounds a single command round trip.
	// Default: 3s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing a single command.
	// Default: 3s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PoolSize is the maximum number of socket connections.
	// Default: 20
	PoolSize int `yaml:"pool_size"`

	// KeyPrefix is prepended to every counter and cache key written to
	// Redis, to allow multiple deployments to share a cluster.
	// Default: "quotagate"
	KeyPrefix string `yaml:"key_prefix"`
}

// SubscriptionsConfig contains configuration for the subscription resolver
// cache.
type SubscriptionsConfig struct {
	// MinCacheTTL is the floor applied to the computed positive cache TTL.
	// Default: 60s
	MinCacheTTL time.Duration `yaml:"min_cache_ttl"`

	// MaxCacheTTL is the ceiling applied to the computed positive cache TTL.
	// Default: 3600s
	MaxCacheTTL time.Duration `yaml:"max_cache_ttl"`

	// DefaultCacheTTL is used when a client's plan has no expiry.
	// Default: 3600s
	DefaultCacheTTL time.Duration `yaml:"default_cache_ttl"`

	// NegativeCacheTTL is how long an expired-subscription result is
	// cached before the durable store is consulted again.
	// Default: 300s
	NegativeCacheTTL time.Duration `yaml:"negative_cache_ttl"`
}

// ThrottleConfig contains configuration for the throttle classifier and
// its hot-reloadable threshold file.
type ThrottleConfig struct {
	// ThresholdsPath is the path to a YAML file containing the ordered
	// hard/soft threshold rules. When empty, built-in defaults are used
	// and hot-reload is disabled.
	ThresholdsPath string `yaml:"thresholds_path"`

	// WatchThresholds enables fsnotify-based hot-reload of ThresholdsPath.
	// Default: true (when ThresholdsPath is set)
	WatchThresholds bool `yaml:"watch_thresholds"`

	// SoftDelayCap bounds the delay applied to a soft-throttled request,
	// regardless of what a threshold rule requests.
	// Default: 2s
	SoftDelayCap time.Duration `yaml:"soft_delay_cap"`
}

// AuthenticationConfig contains API key authentication configuration.
type AuthenticationConfig struct {
	// HeaderName is the HTTP header carrying the client's API key.
	// Default: "X-API-Key"
	HeaderName string `yaml:"header_name"`

	// RequireKey is not read by the admission filter: a notify request
	// without an API key, or with an unknown one, is rejected with 401
	// whatever this is set to.
	// Default: true
	RequireKey bool `yaml:"require_key"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in logs.
	// Redacts API keys, emails, SSN, IP addresses, etc.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// BufferSize is the size of the async log buffer.
	// Logs are written asynchronously to avoid blocking.
	// Default: 10000
	BufferSize int `yaml:"buffer_size"`

	// RedactPatterns contains custom PII redaction patterns.
	// Each pattern has a name, regex, and replacement string.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Port is an optional separate port for metrics (0 = use server port).
	// Default: 0
	Port int `yaml:"port"`

	// Namespace is the metric name prefix.
	// Default: "quotagate"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "ratelimit"
	Subsystem string `yaml:"subsystem"`

	// EvaluatorDurationBuckets defines histogram buckets for the atomic
	// evaluator round-trip duration (seconds).
	// Default: [0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25]
	EvaluatorDurationBuckets []float64 `yaml:"evaluator_duration_buckets"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
