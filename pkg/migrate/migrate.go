package migrate

import (
	"context"
	"encoding/json"
	"strings"

	"parley/pkg/logger"
	"parley/pkg/models"
	"parley/pkg/store"
)

const (
	systemVersionKey    = "system:version"
	systemInProgressKey = "system:migration_in_progress"
)

// Run checks for a version change and runs Sync if needed. Returns true
// when Sync ran.
func Run(ctx context.Context, st *store.Store, newVersion string) (bool, error) {
	stored := storedVersion(ctx, st)
	logger.Info("migrate_version_check", "stored", stored, "running", newVersion)
	if stored == newVersion {
		logger.Info("migrate_noop", "version", newVersion)
		return false, nil
	}

	marker, _ := json.Marshal(map[string]string{"from": stored, "to": newVersion})
	if err := st.Put(ctx, systemInProgressKey, marker); err != nil {
		return false, err
	}
	if err := Sync(ctx, st, stored, newVersion); err != nil {
		return true, err
	}
	if err := st.Apply(ctx, []store.Op{
		{Key: systemVersionKey, Value: []byte(newVersion)},
		{Key: systemInProgressKey, Delete: true},
	}); err != nil {
		return true, err
	}
	return true, nil
}

// Sync performs upgrade work between versions. Edit in-place for
// migration logic; every step must be idempotent.
func Sync(ctx context.Context, st *store.Store, from, to string) error {
	logger.Info("migrate_sync_start", "from", from, "to", to)
	if err := backfillIndexes(ctx, st); err != nil {
		return err
	}
	logger.Info("migrate_sync_done", "from", from, "to", to)
	return nil
}

// backfillIndexes rebuilds the pair and membership indexes from the
// conversation records. Records written by older versions that predate an
// index get theirs here. The pair key goes through PutIfAbsent so an
// existing mapping stays authoritative; membership entries are rewritten
// with the same value, so reruns are harmless.
func backfillIndexes(ctx context.Context, st *store.Store) error {
	kvs, err := st.Scan(ctx, store.ScanOptions{Prefix: "conv:"})
	if err != nil {
		return err
	}
	var ops []store.Op
	var filled, seen int
	for _, kv := range kvs {
		if !strings.HasSuffix(kv.Key, ":meta") || strings.Contains(kv.Key, ":msg:") {
			continue
		}
		var conv models.Conversation
		if err := json.Unmarshal(kv.Value, &conv); err != nil {
			logger.Warn("migrate_skip_corrupt_conversation", "key", kv.Key)
			continue
		}
		seen++
		pairKey := store.PairKey(conv.Participants[0], conv.Participants[1], conv.Subject)
		if _, created, err := st.PutIfAbsent(ctx, pairKey, []byte(conv.ID)); err != nil {
			return err
		} else if created {
			filled++
		}
		ops = append(ops,
			store.Op{Key: store.MemberKey(conv.Participants[0], conv.ID), Value: []byte(conv.ID)},
			store.Op{Key: store.MemberKey(conv.Participants[1], conv.ID), Value: []byte(conv.ID)},
		)
	}
	if len(ops) == 0 {
		return nil
	}
	if err := st.Apply(ctx, ops); err != nil {
		return err
	}
	logger.Info("migrate_indexes_backfilled", "conversations", seen, "missing_pairs", filled)
	return nil
}

func storedVersion(ctx context.Context, st *store.Store) string {
	v, ok, err := st.Get(ctx, systemVersionKey)
	if err != nil || !ok {
		return ""
	}
	return string(v)
}
