package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_Minimal(t *testing.T) {
	path := writeTempConfig(t, `
server:
  listen_address: "127.0.0.1:9090"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:9090" {
		t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, "127.0.0.1:9090")
	}
	if cfg.Durable.Backend != DefaultDurableBackend {
		t.Errorf("Durable.Backend defaulted incorrectly: %q", cfg.Durable.Backend)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [unbalanced")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadConfig_FailsValidation(t *testing.T) {
	path := writeTempConfig(t, `
durable:
  backend: "not-a-real-backend"
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error for invalid backend")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, `
server:
  listen_address: "127.0.0.1:9090"
`)

	t.Setenv("QUOTAGATE_SERVER_LISTEN_ADDRESS", "0.0.0.0:7070")
	t.Setenv("QUOTAGATE_COUNTERS_REDIS_ADDRESS", "redis.internal:6379")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides returned error: %v", err)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:7070" {
		t.Errorf("env override not applied: ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Counters.Redis.Address != "redis.internal:6379" {
		t.Errorf("env override not applied: Redis.Address = %q", cfg.Counters.Redis.Address)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidDurationIgnored(t *testing.T) {
	path := writeTempConfig(t, `
server:
  listen_address: "127.0.0.1:9090"
`)

	t.Setenv("QUOTAGATE_SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides returned error: %v", err)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("invalid duration override should be ignored, got %v", cfg.Server.ReadTimeout)
	}
}
