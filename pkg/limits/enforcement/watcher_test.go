package enforcement

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeThresholdsFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "thresholds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write thresholds: %v", err)
	}
	return path
}

func TestProviderUpdateRejectsInvalid(t *testing.T) {
	p := NewProvider(DefaultThresholds())

	bad := DefaultThresholds()
	bad.GlobalSoftThreshold = -1
	if err := p.Update(bad); err == nil {
		t.Fatal("expected invalid thresholds to be rejected")
	}
	if p.Current().GlobalSoftThreshold != DefaultThresholds().GlobalSoftThreshold {
		t.Error("rejected update must leave the previous thresholds in effect")
	}
}

func TestLoadThresholdsAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeThresholdsFile(t, dir, "throttling: hard\nsoft_delay_ms: 50\n")

	got, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("LoadThresholds: %v", err)
	}
	if got.Mode != "hard" || got.SoftDelayMs != 50 {
		t.Errorf("explicit fields not applied: %+v", got)
	}
	if got.GlobalHardThreshold != 1.20 {
		t.Errorf("missing fields must fall back to defaults, got hard=%v", got.GlobalHardThreshold)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeThresholdsFile(t, dir, "throttling: hard\nsoft_delay_ms: 100\n")

	provider := NewProvider(DefaultThresholds())
	w, err := NewWatcher(path, provider, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx)
	}()

	// Let the watcher register before touching the file.
	time.Sleep(200 * time.Millisecond)

	writeThresholdsFile(t, dir, "throttling: soft\nsoft_delay_ms: 321\n")

	deadline := time.After(3 * time.Second)
	for {
		if provider.Current().SoftDelayMs == 321 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("thresholds never reloaded, current: %+v", provider.Current())
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}

func TestWatcherKeepsPreviousOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeThresholdsFile(t, dir, "throttling: soft\nsoft_delay_ms: 100\n")

	seed, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("LoadThresholds: %v", err)
	}
	provider := NewProvider(seed)

	w, err := NewWatcher(path, provider, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx) }()
	time.Sleep(200 * time.Millisecond)

	writeThresholdsFile(t, dir, "soft_delay_ms: -5\n")
	time.Sleep(500 * time.Millisecond)

	if provider.Current().SoftDelayMs != 100 {
		t.Errorf("invalid reload must not replace thresholds, got %+v", provider.Current())
	}
}
