package httpx

import (
	"context"
	"net/http"
)

// Server is the transport engine behind the API. Two engines are
// provided: net/http (default) and fasthttp. Both serve the same
// http.Handler so the routing layer never sees the difference.
type Server interface {
	ListenAndServe(addr string) error
	ListenAndServeTLS(addr, certFile, keyFile string) error
	Shutdown(ctx context.Context) error
}

// New returns the engine named by cfg (server.engine). Unknown names
// fall back to net/http.
func New(engine string, h http.Handler) Server {
	switch engine {
	case "fasthttp":
		return newFastHTTPServer(h)
	default:
		return newNetHTTPServer(h)
	}
}
