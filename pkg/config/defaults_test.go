package config

import "testing"

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, DefaultReadTimeout)
	}
	if cfg.Durable.Backend != DefaultDurableBackend {
		t.Errorf("Durable.Backend = %q, want %q", cfg.Durable.Backend, DefaultDurableBackend)
	}
	if cfg.Durable.SQLite.Path != DefaultDurableSQLitePath {
		t.Errorf("Durable.SQLite.Path = %q, want %q", cfg.Durable.SQLite.Path, DefaultDurableSQLitePath)
	}
	if cfg.Counters.Backend != DefaultCountersBackend {
		t.Errorf("Counters.Backend = %q, want %q", cfg.Counters.Backend, DefaultCountersBackend)
	}
	if cfg.Counters.Redis.Address != DefaultRedisAddress {
		t.Errorf("Counters.Redis.Address = %q, want %q", cfg.Counters.Redis.Address, DefaultRedisAddress)
	}
	if cfg.Subscriptions.MinCacheTTL != DefaultMinCacheTTL {
		t.Errorf("Subscriptions.MinCacheTTL = %v, want %v", cfg.Subscriptions.MinCacheTTL, DefaultMinCacheTTL)
	}
	if cfg.Subscriptions.NegativeCacheTTL != DefaultNegativeCacheTTL {
		t.Errorf("Subscriptions.NegativeCacheTTL = %v, want %v", cfg.Subscriptions.NegativeCacheTTL, DefaultNegativeCacheTTL)
	}
	if cfg.Throttle.SoftDelayCap != DefaultSoftDelayCap {
		t.Errorf("Throttle.SoftDelayCap = %v, want %v", cfg.Throttle.SoftDelayCap, DefaultSoftDelayCap)
	}
	if cfg.Authentication.HeaderName != DefaultAPIKeyHeader {
		t.Errorf("Authentication.HeaderName = %q, want %q", cfg.Authentication.HeaderName, DefaultAPIKeyHeader)
	}
	if cfg.Telemetry.Logging.Level != DefaultLoggingLevel {
		t.Errorf("Logging.Level = %q, want %q", cfg.Telemetry.Logging.Level, DefaultLoggingLevel)
	}
	if cfg.Telemetry.Metrics.Namespace != DefaultMetricsNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Telemetry.Metrics.Namespace, DefaultMetricsNamespace)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{ListenAddress: "10.0.0.1:9090"},
		Durable: DurableConfig{Backend: "memory"},
	}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != "10.0.0.1:9090" {
		t.Errorf("explicit ListenAddress was overwritten: %q", cfg.Server.ListenAddress)
	}
	if cfg.Durable.Backend != "memory" {
		t.Errorf("explicit Durable.Backend was overwritten: %q", cfg.Durable.Backend)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	first := cfg.Server.ListenAddress

	ApplyDefaults(cfg)
	if cfg.Server.ListenAddress != first {
		t.Errorf("ApplyDefaults is not idempotent: got %q, want %q", cfg.Server.ListenAddress, first)
	}
}

func TestApplyDefaults_CORSDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if !cfg.Server.CORS.Enabled {
		t.Error("CORS.Enabled defaulted to false, want true")
	}
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		t.Error("CORS.AllowedOrigins is empty")
	}
	found := false
	for _, h := range cfg.Server.CORS.ExposedHeaders {
		if h == "X-Throttle-Type" {
			found = true
		}
	}
	if !found {
		t.Error("CORS.ExposedHeaders missing X-Throttle-Type")
	}
}

func TestApplyDefaults_ThrottleWatchRequiresPath(t *testing.T) {
	cfg := &Config{Throttle: ThrottleConfig{ThresholdsPath: "/etc/quotagate/thresholds.yaml"}}
	ApplyDefaults(cfg)

	if !cfg.Throttle.WatchThresholds {
		t.Error("WatchThresholds should default to true when ThresholdsPath is set")
	}
}

func TestApplyDefaults_ThrottleWatchWithoutPathStaysFalse(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Throttle.WatchThresholds {
		t.Error("WatchThresholds should stay false when ThresholdsPath is empty")
	}
}

func TestDefaultConfig_TrueBooleans(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Durable.SQLite.WALMode {
		t.Error("WALMode should default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to true")
	}
	if !cfg.Telemetry.Health.Enabled {
		t.Error("Health.Enabled should default to true")
	}
	if !cfg.Telemetry.Logging.RedactPII {
		t.Error("RedactPII should default to true")
	}
	if !cfg.Server.CORS.Enabled {
		t.Error("CORS.Enabled should default to true")
	}
}
