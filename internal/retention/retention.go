package retention

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/adhocore/gronx"

	"parley/pkg/config"
	"parley/pkg/logger"
	"parley/pkg/store"
)

// Sweeper purges expired tombstones on a cron schedule. Deleting a
// conversation leaves a tombstone audit record; the sweeper is what
// finally forgets them once the retention period has passed.
type Sweeper struct {
	st     *store.Store
	cfg    config.RetentionConfig
	period time.Duration
	dir    string
}

// New validates the retention configuration and returns a sweeper.
func New(st *store.Store, cfg config.RetentionConfig, dir string) (*Sweeper, error) {
	period, err := time.ParseDuration(cfg.Period)
	if err != nil {
		return nil, fmt.Errorf("invalid retention period %q: %w", cfg.Period, err)
	}
	if period <= 0 {
		return nil, fmt.Errorf("retention period must be positive: %s", cfg.Period)
	}
	return &Sweeper{st: st, cfg: cfg, period: period, dir: dir}, nil
}

// Start starts the scheduler if retention is enabled. Returns a cancel
// func; the no-op cancel is returned when retention is disabled.
func (s *Sweeper) Start(ctx context.Context) (context.CancelFunc, error) {
	if !s.cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o700); err != nil {
			logger.Error("retention_path_create_failed", "path", s.dir, "error", err)
			return nil, err
		}
	}

	cronExpr := s.cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", s.cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", s.cfg.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", s.cfg.Period, "dry_run", s.cfg.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go s.runScheduler(ctx2, cronExpr)
	return cancel, nil
}

// runScheduler sleeps until the next cron tick and triggers a sweep.
func (s *Sweeper) runScheduler(ctx context.Context, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if _, err := s.RunOnce(ctx); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce sweeps tombstones older than the retention period and returns
// how many were purged (or would have been, in dry-run mode).
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.period).UnixNano()
	kvs, err := s.st.Scan(ctx, store.ScanOptions{Prefix: store.TombstonePrefix})
	if err != nil {
		return 0, err
	}

	var ops []store.Op
	for _, kv := range kvs {
		ts, ok := store.TombstoneTS(kv.Key)
		if !ok {
			logger.Warn("retention_skip_malformed_tombstone", "key", kv.Key)
			continue
		}
		if ts >= cutoff {
			// tombstone keys sort by timestamp; everything after is newer
			break
		}
		ops = append(ops, store.Op{Key: kv.Key, Delete: true})
	}
	if len(ops) == 0 {
		logger.Info("retention_sweep_done", "purged", 0)
		return 0, nil
	}
	if s.cfg.DryRun {
		logger.Info("retention_sweep_dry_run", "would_purge", len(ops))
		return len(ops), nil
	}
	if err := s.st.Apply(ctx, ops); err != nil {
		return 0, err
	}
	logger.Info("retention_sweep_done", "purged", len(ops))
	return len(ops), nil
}
