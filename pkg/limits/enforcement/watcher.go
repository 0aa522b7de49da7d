package enforcement

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Provider holds the current Thresholds behind an atomic swap so the
// admission hot path reads them without locking while the watcher replaces
// them from disk.
type Provider struct {
	current atomic.Value // Thresholds
}

// NewProvider returns a Provider seeded with t.
func NewProvider(t Thresholds) *Provider {
	p := &Provider{}
	p.current.Store(t)
	return p
}

// Current returns the thresholds in effect right now.
func (p *Provider) Current() Thresholds {
	return p.current.Load().(Thresholds)
}

// Update validates t and makes it the current thresholds. Invalid
// thresholds are rejected and the previous set stays in effect.
func (p *Provider) Update(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	p.current.Store(t)
	return nil
}

// Watcher hot-reloads a thresholds file into a Provider when the file
// changes on disk. It watches the file's directory rather than the file
// itself so editors and config-management tools that replace the file
// atomically (write + rename) still trigger a reload.
type Watcher struct {
	path     string
	provider *Provider
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates a watcher for the thresholds file at path, feeding
// reloaded values into provider.
func NewWatcher(path string, provider *Provider, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("enforcement: create watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		provider: provider,
		logger:   logger,
		watcher:  fsw,
		debounce: 100 * time.Millisecond,
	}, nil
}

// Watch blocks, reloading the thresholds file on every change until ctx is
// cancelled. A reload that fails to parse or validate is logged and
// dropped; the previous thresholds stay in effect.
func (w *Watcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("enforcement: watch %s: %w", dir, err)
	}
	defer w.watcher.Close()

	w.logger.Info("threshold watcher started",
		"path", w.path,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	var pending *time.Timer
	reload := make(chan struct{}, 1)
	base := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("threshold watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: editors emit bursts of events per save.
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("threshold watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	t, err := LoadThresholds(w.path)
	if err != nil {
		w.logger.Error("threshold reload failed, keeping previous thresholds",
			"path", w.path,
			"error", err,
		)
		return
	}
	if err := w.provider.Update(t); err != nil {
		w.logger.Error("threshold reload rejected, keeping previous thresholds",
			"path", w.path,
			"error", err,
		)
		return
	}
	w.logger.Info("thresholds reloaded",
		"mode", t.Mode,
		"soft_delay_ms", t.SoftDelayMs,
		"soft", t.GlobalSoftThreshold,
		"warn", t.GlobalWarnThreshold,
		"full", t.GlobalFullThreshold,
		"hard", t.GlobalHardThreshold,
	)
}
