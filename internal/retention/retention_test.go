package retention

import (
	"context"
	"testing"
	"time"

	"parley/pkg/config"
	"parley/pkg/store"
)

func seedTombstones(t *testing.T, st *store.Store, ages ...time.Duration) {
	t.Helper()
	now := time.Now().UTC()
	for i, age := range ages {
		ts := now.Add(-age).UnixNano()
		key := store.TombstoneKey(ts, "conv-"+string(rune('a'+i)))
		if err := st.Put(context.Background(), key, []byte("{}")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
}

func TestRunOncePurgesExpired(t *testing.T) {
	st := store.New(store.OpenMemory())
	sw, err := New(st, config.RetentionConfig{Enabled: true, Period: "720h"}, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// two past the 30-day period, one fresh
	seedTombstones(t, st, 40*24*time.Hour, 31*24*time.Hour, time.Hour)

	purged, err := sw.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged, got %d", purged)
	}
	kvs, _ := st.Scan(context.Background(), store.ScanOptions{Prefix: store.TombstonePrefix})
	if len(kvs) != 1 {
		t.Fatalf("fresh tombstone must survive, %d remain", len(kvs))
	}

	// nothing left to purge
	purged, err = sw.RunOnce(context.Background())
	if err != nil || purged != 0 {
		t.Fatalf("second sweep: purged=%d err=%v", purged, err)
	}
}

func TestRunOnceDryRun(t *testing.T) {
	st := store.New(store.OpenMemory())
	sw, err := New(st, config.RetentionConfig{Enabled: true, Period: "24h", DryRun: true}, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seedTombstones(t, st, 48*time.Hour)

	purged, err := sw.RunOnce(context.Background())
	if err != nil || purged != 1 {
		t.Fatalf("dry run: purged=%d err=%v", purged, err)
	}
	kvs, _ := st.Scan(context.Background(), store.ScanOptions{Prefix: store.TombstonePrefix})
	if len(kvs) != 1 {
		t.Fatalf("dry run must not delete, %d remain", len(kvs))
	}
}

func TestNewRejectsBadPeriod(t *testing.T) {
	st := store.New(store.OpenMemory())
	if _, err := New(st, config.RetentionConfig{Period: "soon"}, ""); err == nil {
		t.Fatalf("expected error for unparsable period")
	}
	if _, err := New(st, config.RetentionConfig{Period: "-1h"}, ""); err == nil {
		t.Fatalf("expected error for non-positive period")
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	st := store.New(store.OpenMemory())
	sw, err := New(st, config.RetentionConfig{Enabled: false, Period: "720h"}, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cancel, err := sw.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
}

func TestStartRejectsBadCron(t *testing.T) {
	st := store.New(store.OpenMemory())
	sw, err := New(st, config.RetentionConfig{Enabled: true, Period: "720h", Cron: "not a cron"}, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sw.Start(context.Background()); err == nil {
		t.Fatalf("expected invalid cron error")
	}
}
