package app

import (
	"context"
	"time"

	"parley/pkg/api"
	"parley/pkg/api/handlers"
	"parley/pkg/auth"
	"parley/pkg/httpx"
	"parley/pkg/logger"
)

type serverHandle struct {
	srv httpx.Server
}

// startHTTP assembles the router, picks the serving engine and starts it
// in a goroutine. The returned channel carries any fatal server error.
func (a *App) startHTTP() <-chan error {
	cfg := a.eff.Config

	h := handlers.New(a.registry, a.ledger, a.tickets, cfg.Limits.MaxAttachment.Int64())
	router := api.NewRouter(api.RouterConfig{
		Handlers: h,
		Security: auth.SecConfig{
			RPS:   cfg.Security.RateLimit.RPS,
			Burst: cfg.Security.RateLimit.Burst,
		},
		FilesDir: a.files.Dir(),
		Ready:    func() bool { return a.st != nil },
	})

	a.srv.srv = httpx.New(cfg.Server.Engine, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listening", "addr", a.eff.Addr, "engine", cfg.Server.Engine)
		cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.srv.srv.ListenAndServeTLS(a.eff.Addr, cert, key)
		} else {
			errCh <- a.srv.srv.ListenAndServe(a.eff.Addr)
		}
	}()
	return errCh
}

// stopHTTP drains in-flight requests with a short grace period.
func (a *App) stopHTTP() {
	if a.srv.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.srv.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown_incomplete", "error", err)
	}
}
