package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"parley/pkg/auth"
	"parley/pkg/conversation"
	"parley/pkg/ticket"
	"parley/pkg/utils"
)

// Handlers binds the HTTP surface to the core services. Every handler
// resolves the caller from the request context; requests reach here only
// after the identity middleware has run.
type Handlers struct {
	Registry      *conversation.Registry
	Ledger        *conversation.Ledger
	Tickets       *ticket.Service
	MaxAttachment int64
}

func New(reg *conversation.Registry, led *conversation.Ledger, tk *ticket.Service, maxAttachment int64) *Handlers {
	return &Handlers{Registry: reg, Ledger: led, Tickets: tk, MaxAttachment: maxAttachment}
}

// caller returns the identity injected by the auth middleware. A missing
// identity here is a wiring bug, reported as 401 rather than a panic.
func caller(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		utils.JSONErrorStatus(w, http.StatusUnauthorized, "missing identity")
		return auth.Identity{}, false
	}
	return id, true
}

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		utils.JSONErrorStatus(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if len(body) == 0 {
		utils.JSONErrorStatus(w, http.StatusBadRequest, "empty request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		utils.JSONErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter, 0 when absent.
func queryInt(r *http.Request, name string) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
