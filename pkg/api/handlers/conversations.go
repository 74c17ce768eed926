package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"parley/pkg/utils"
)

// CreateConversation opens (or returns) the conversation between the
// caller and a peer. Repeating the call with the same peer and subject
// returns the same conversation.
//
// POST /v1/conversations {"peer": "...", "subject": "..."}
func (h *Handlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Peer    string `json:"peer"`
		Subject string `json:"subject"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	conv, err := h.Registry.GetOrCreate(r.Context(), id.ID, req.Peer, req.Subject)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, conv)
}

// ListConversations returns the caller's conversations, newest activity
// first, each with counterpart and unread count.
//
// GET /v1/conversations?limit=N
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	out, err := h.Registry.ListForParticipant(r.Context(), id.ID, queryInt(r, "limit"))
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"conversations": out})
}

// GetConversation returns one conversation the caller is a member of.
//
// GET /v1/conversations/{id}
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	conv, err := h.Registry.Get(r.Context(), mux.Vars(r)["id"], id.ID)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, conv)
}

// DeleteConversation removes a conversation and its messages.
//
// DELETE /v1/conversations/{id}
func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.Registry.Delete(r.Context(), mux.Vars(r)["id"], id.ID); err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// MarkRead marks every counterpart message in the conversation as read.
//
// POST /v1/conversations/{id}/read
func (h *Handlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.Ledger.MarkRead(r.Context(), mux.Vars(r)["id"], id.ID); err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Unread returns the caller's unread count for the conversation.
//
// GET /v1/conversations/{id}/unread
func (h *Handlers) Unread(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	convID := mux.Vars(r)["id"]
	if _, err := h.Registry.Get(r.Context(), convID, id.ID); err != nil {
		utils.JSONError(w, err)
		return
	}
	n, err := h.Ledger.CountUnread(r.Context(), convID, id.ID)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"unread": n})
}
