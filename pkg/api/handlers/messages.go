package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"parley/pkg/models"
	"parley/pkg/utils"
)

// PostMessage appends a message to the conversation.
//
// POST /v1/conversations/{id}/messages {"body": "...", "kind": "text"}
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
		Kind string `json:"kind"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.Ledger.Append(r.Context(), mux.Vars(r)["id"], id.ID, req.Body, models.MessageKind(req.Kind))
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, msg)
}

// ListMessages returns one page of the conversation history in ascending
// order. The before cursor from a previous page fetches the next older
// page; an empty cursor fetches the newest page.
//
// GET /v1/conversations/{id}/messages?limit=N&before=CURSOR
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, err := h.Ledger.List(r.Context(), mux.Vars(r)["id"], id.ID, queryInt(r, "limit"), r.URL.Query().Get("before"))
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, page)
}

// EditMessage replaces the body of the caller's own message.
//
// PATCH /v1/messages/{id} {"body": "..."}
func (h *Handlers) EditMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.Ledger.Edit(r.Context(), mux.Vars(r)["id"], id.ID, req.Body)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, msg)
}

// DeleteMessage redacts the caller's own message. Repeating the call is
// a no-op.
//
// DELETE /v1/messages/{id}
func (h *Handlers) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.Ledger.SoftDelete(r.Context(), mux.Vars(r)["id"], id.ID); err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}
