package config

import "testing"

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	cfg := validConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("defaulted config should be valid, got: %v", err)
	}
}

func TestValidate_MissingListenAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ListenAddress = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing listen address")
	}
}

func TestValidate_InvalidDurableBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Durable.Backend = "postgres"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid durable backend")
	}
}

func TestValidate_SQLiteRequiresPath(t *testing.T) {
	cfg := validConfig()
	cfg.Durable.Backend = "sqlite"
	cfg.Durable.SQLite.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing sqlite path")
	}
}

func TestValidate_InvalidCountersBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Counters.Backend = "memcached"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid counters backend")
	}
}

func TestValidate_RedisRequiresAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Counters.Backend = "redis"
	cfg.Counters.Redis.Address = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing redis address")
	}
}

func TestValidate_CacheTTLOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.Subscriptions.MinCacheTTL = 3600_000_000_000
	cfg.Subscriptions.MaxCacheTTL = 60_000_000_000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error when min cache TTL exceeds max")
	}
}

func TestValidate_WatchThresholdsRequiresPath(t *testing.T) {
	cfg := validConfig()
	cfg.Throttle.WatchThresholds = true
	cfg.Throttle.ThresholdsPath = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error when watching without a thresholds path")
	}
}

func TestValidate_InvalidLoggingLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Telemetry.Logging.Level = "verbose"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid logging level")
	}
}

func TestValidate_TLSRequiresCertAndKey(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TLS.Enabled = true

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for TLS enabled without cert/key files")
	}
}

func TestValidate_MultipleErrorsAggregated(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ListenAddress = ""
	cfg.Durable.Backend = "bogus"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(ve.Errors) < 2 {
		t.Errorf("expected at least 2 field errors, got %d", len(ve.Errors))
	}
}
