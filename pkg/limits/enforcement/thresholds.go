package enforcement

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Throttle labels a denied request.
type Throttle string

const (
	ThrottleNone Throttle = "NONE"
	ThrottleSoft Throttle = "SOFT"
	ThrottleHard Throttle = "HARD"
)

// Thresholds holds the classifier's tunables, loadable from a YAML
// file and hot-reloadable via Watcher.
type Thresholds struct {
	// Mode is "hard" or "soft"; "hard" disables the soft-delay path
	// entirely regardless of SoftDelayMs.
	Mode string `yaml:"throttling"`

	SoftDelayMs int `yaml:"soft_delay_ms"`

	GlobalSoftThreshold float64 `yaml:"global_soft_threshold"`
	GlobalWarnThreshold float64 `yaml:"global_warn_threshold"`
	GlobalFullThreshold float64 `yaml:"global_full_threshold"`
	GlobalHardThreshold float64 `yaml:"global_hard_threshold"`
}

// DefaultThresholds returns the built-in defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Mode:                "hard",
		SoftDelayMs:         100,
		GlobalSoftThreshold: 0.80,
		GlobalWarnThreshold: 0.80,
		GlobalFullThreshold: 1.00,
		GlobalHardThreshold: 1.20,
	}
}

// Validate checks the monotonicity invariant 0 < soft <= warn <= full <=
// hard.
func (t Thresholds) Validate() error {
	if t.Mode != "hard" && t.Mode != "soft" {
		return fmt.Errorf("enforcement: throttling must be %q or %q, got %q", "hard", "soft", t.Mode)
	}
	if t.GlobalSoftThreshold <= 0 {
		return fmt.Errorf("enforcement: global_soft_threshold must be positive, got %v", t.GlobalSoftThreshold)
	}
	if t.GlobalSoftThreshold > t.GlobalWarnThreshold {
		return fmt.Errorf("enforcement: global_soft_threshold must be <= global_warn_threshold")
	}
	if t.GlobalWarnThreshold > t.GlobalFullThreshold {
		return fmt.Errorf("enforcement: global_warn_threshold must be <= global_full_threshold")
	}
	if t.GlobalFullThreshold > t.GlobalHardThreshold {
		return fmt.Errorf("enforcement: global_full_threshold must be <= global_hard_threshold")
	}
	if t.SoftDelayMs < 0 || t.SoftDelayMs > 60000 {
		return fmt.Errorf("enforcement: soft_delay_ms must be in [0, 60000], got %d", t.SoftDelayMs)
	}
	return nil
}

// LoadThresholds reads and validates a Thresholds file. Missing fields fall
// back to DefaultThresholds.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()

	data, err := os.ReadFile(path)
	if err != nil {
		return Thresholds{}, fmt.Errorf("enforcement: read thresholds: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Thresholds{}, fmt.Errorf("enforcement: parse thresholds: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}
