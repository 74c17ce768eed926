package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"parley/internal/retention"
	"parley/pkg/banner"
	"parley/pkg/config"
	"parley/pkg/conversation"
	"parley/pkg/fanout"
	"parley/pkg/filestore"
	"parley/pkg/logger"
	"parley/pkg/migrate"
	"parley/pkg/state"
	"parley/pkg/store"
	"parley/pkg/ticket"
	"parley/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff     config.EffectiveConfigResult
	version string

	st       *store.Store
	registry *conversation.Registry
	ledger   *conversation.Ledger
	tickets  *ticket.Service
	pub      *fanout.Publisher
	files    *filestore.Local
	sweeper  *retention.Sweeper

	srv serverHandle
}

// New initializes everything that does not need a running context: config
// validation, state directories, the storage backend, the core services.
// Call Run to start the publisher, retention and the HTTP server.
func New(eff config.EffectiveConfigResult, version string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}
	if err := state.EnsureStateDirs(eff.DBPath); err != nil {
		return nil, fmt.Errorf("state layout: %w", err)
	}

	cfg := eff.Config
	validation.SetRules(validation.Rules{
		MaxBodyChars: cfg.Limits.MaxBodyChars,
		PageSize:     cfg.Limits.PageSize,
		PreviewChars: cfg.Limits.PreviewChars,
	})

	st, err := openStore(eff)
	if err != nil {
		return nil, err
	}

	files, err := filestore.NewLocal(state.FilesPath(eff.DBPath), "")
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("file storage: %w", err)
	}

	pub := fanout.NewPublisher(fanout.LogGateway{}, cfg.Fanout.QueueCapacity, cfg.Fanout.PublishTimeout.Duration())

	a := &App{
		eff:      eff,
		version:  version,
		st:       st,
		registry: conversation.NewRegistry(st),
		ledger:   conversation.NewLedger(st, pub),
		tickets:  ticket.NewService(st, pub, files),
		pub:      pub,
		files:    files,
	}

	a.sweeper, err = retention.New(st, cfg.Retention, state.RetentionPath(eff.DBPath))
	if err != nil {
		st.Close()
		return nil, err
	}

	if err := state.WriteRuntimeInfo(eff.DBPath, state.RuntimeInfo{
		Version: version,
		Backend: st.BackendName(),
		Engine:  cfg.Server.Engine,
	}); err != nil {
		logger.Warn("runtime_info_write_failed", "error", err)
	}
	return a, nil
}

// openStore opens the durable backend, or the in-memory one when the
// durable open fails and storage.allow_volatile permits it. The choice is
// made once; it never changes while the process runs.
func openStore(eff config.EffectiveConfigResult) (*store.Store, error) {
	backend, err := store.OpenPebble(state.StorePath(eff.DBPath))
	if err == nil {
		return store.New(backend), nil
	}
	if !eff.Config.Storage.AllowVolatile {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}
	logger.Warn("pebble_open_failed_using_memory", "path", eff.DBPath, "error", err)
	return store.New(store.OpenMemory()), nil
}

// Run starts the publisher, migrations, retention and the HTTP server,
// then blocks until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.pub.Start()

	if _, err := migrate.Run(ctx, a.st, a.version); err != nil {
		return fmt.Errorf("migration: %w", err)
	}

	stopRetention, err := a.sweeper.Start(ctx)
	if err != nil {
		return err
	}

	banner.Print(a.eff, a.st.BackendName(), a.version)

	errCh := a.startHTTP()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal_received")
	case runErr = <-errCh:
		logger.Error("http_server_failed", "error", runErr)
	}

	stopRetention()
	a.stopHTTP()
	a.pub.Close()
	if err := a.st.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	logger.Info("shutdown_complete")
	return runErr
}
