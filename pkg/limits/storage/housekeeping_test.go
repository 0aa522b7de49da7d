package storage

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestHousekeeperRejectsBadSchedule(t *testing.T) {
	store, err := NewDurableStore(DurableStoreConfig{
		Path:    filepath.Join(t.TempDir(), "hk.db"),
		WALMode: true,
	})
	if err != nil {
		t.Fatalf("NewDurableStore: %v", err)
	}
	defer store.Close()

	if _, err := NewHousekeeper(store, "not a schedule", nil); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestHousekeeperRunsCheckpoint(t *testing.T) {
	store, err := NewDurableStore(DurableStoreConfig{
		Path:    filepath.Join(t.TempDir(), "hk.db"),
		WALMode: true,
	})
	if err != nil {
		t.Fatalf("NewDurableStore: %v", err)
	}
	defer store.Close()

	// Every second, so the test observes at least one firing quickly.
	h, err := NewHousekeeper(store, "* * * * * *", nil)
	if err != nil {
		t.Fatalf("NewHousekeeper: %v", err)
	}

	var fired atomic.Int32
	h.OnCheckpoint(func() { fired.Add(1) })

	h.Start()
	defer h.Stop()

	if h.Next().IsZero() {
		t.Error("expected a scheduled next run")
	}

	deadline := time.After(3 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("checkpoint never fired")
		case <-time.After(100 * time.Millisecond):
		}
	}
}
