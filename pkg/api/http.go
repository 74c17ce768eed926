package api

import (
	_ "embed"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"parley/pkg/api/handlers"
	"parley/pkg/auth"
	"parley/pkg/telemetry"
)

//go:embed openapi.json
var openapiSpec []byte

// RouterConfig carries everything the HTTP surface needs from app wiring.
type RouterConfig struct {
	Handlers *handlers.Handlers
	Security auth.SecConfig
	FilesDir string
	Ready    func() bool
}

// NewRouter assembles the full HTTP surface: the versioned API behind the
// identity middleware, plus the unauthenticated operational endpoints.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if cfg.Ready != nil && !cfg.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/docs/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(openapiSpec)
	}).Methods(http.MethodGet)
	r.PathPrefix("/docs/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.json"),
	))

	if cfg.FilesDir != "" {
		r.PathPrefix("/files/").Handler(
			http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.FilesDir))),
		)
	}

	h := cfg.Handlers
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(auth.RequireIdentity(cfg.Security))

	v1.HandleFunc("/conversations", h.CreateConversation).Methods(http.MethodPost)
	v1.HandleFunc("/conversations", h.ListConversations).Methods(http.MethodGet)
	v1.HandleFunc("/conversations/{id}", h.GetConversation).Methods(http.MethodGet)
	v1.HandleFunc("/conversations/{id}", h.DeleteConversation).Methods(http.MethodDelete)
	v1.HandleFunc("/conversations/{id}/read", h.MarkRead).Methods(http.MethodPost)
	v1.HandleFunc("/conversations/{id}/unread", h.Unread).Methods(http.MethodGet)
	v1.HandleFunc("/conversations/{id}/messages", h.PostMessage).Methods(http.MethodPost)
	v1.HandleFunc("/conversations/{id}/messages", h.ListMessages).Methods(http.MethodGet)
	v1.HandleFunc("/messages/{id}", h.EditMessage).Methods(http.MethodPatch)
	v1.HandleFunc("/messages/{id}", h.DeleteMessage).Methods(http.MethodDelete)

	v1.HandleFunc("/tickets", h.CreateTicket).Methods(http.MethodPost)
	v1.HandleFunc("/tickets", h.ListTickets).Methods(http.MethodGet)
	v1.HandleFunc("/tickets/open", h.ListOpenTickets).Methods(http.MethodGet)
	v1.HandleFunc("/tickets/{id}", h.GetTicket).Methods(http.MethodGet)
	v1.HandleFunc("/tickets/{id}/assign", h.AssignTicket).Methods(http.MethodPost)
	v1.HandleFunc("/tickets/{id}/close", h.CloseTicket).Methods(http.MethodPost)
	v1.HandleFunc("/tickets/{id}/rate", h.RateTicket).Methods(http.MethodPost)
	v1.HandleFunc("/tickets/{id}/messages", h.PostTicketMessage).Methods(http.MethodPost)
	v1.HandleFunc("/tickets/{id}/messages", h.ListTicketMessages).Methods(http.MethodGet)
	v1.HandleFunc("/tickets/{id}/attachments", h.AttachFile).Methods(http.MethodPost)

	return telemetry.Middleware(r)
}
