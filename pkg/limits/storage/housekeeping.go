package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Housekeeper checkpoints the durable store's WAL on a cron schedule.
// SQLite's WAL grows until somebody checkpoints it; with the connection
// pool pinned to a single writer the passive checkpoint is cheap and never
// blocks readers.
type Housekeeper struct {
	store    *DurableStore
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
	onDone   func()
}

// NewHousekeeper creates a housekeeper running store.Checkpoint on the
// given cron schedule (six-field, seconds first, e.g. "0 */15 * * * *").
func NewHousekeeper(store *DurableStore, schedule string, logger *slog.Logger) (*Housekeeper, error) {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Housekeeper{
		store:    store,
		cron:     cron.New(cron.WithSeconds()),
		schedule: schedule,
		logger:   logger,
	}

	if _, err := h.cron.AddFunc(schedule, h.checkpoint); err != nil {
		return nil, fmt.Errorf("housekeeper: invalid schedule %q: %w", schedule, err)
	}
	return h, nil
}

// OnCheckpoint registers a hook invoked after every successful checkpoint,
// used to record the checkpoint metric.
func (h *Housekeeper) OnCheckpoint(fn func()) {
	h.onDone = fn
}

// Start begins running the schedule in the cron's own goroutine.
func (h *Housekeeper) Start() {
	h.cron.Start()
	h.logger.Info("durable store housekeeping started", "schedule", h.schedule)
}

// Stop halts the schedule, waiting for an in-flight checkpoint to finish.
func (h *Housekeeper) Stop() {
	ctx := h.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		h.logger.Warn("housekeeping stop timed out waiting for running job")
	}
}

// Next returns the time of the next scheduled checkpoint, zero if the
// schedule is not running.
func (h *Housekeeper) Next() time.Time {
	entries := h.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (h *Housekeeper) checkpoint() {
	if err := h.store.Checkpoint(); err != nil {
		h.logger.Error("wal checkpoint failed", "error", err)
		return
	}
	h.logger.Debug("wal checkpoint complete")
	if h.onDone != nil {
		h.onDone()
	}
}
