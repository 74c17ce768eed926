package handlers

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"parley/pkg/utils"
)

// CreateTicket opens a support ticket for the caller.
//
// POST /v1/tickets {"category": "...", "subcategory": "...", "problem": "..."}
func (h *Handlers) CreateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Category    string `json:"category"`
		Subcategory string `json:"subcategory"`
		Problem     string `json:"problem"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.Tickets.Create(r.Context(), id.ID, id.Role, req.Category, req.Subcategory, req.Problem)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, t)
}

// ListTickets returns the caller's tickets, newest first.
//
// GET /v1/tickets
func (h *Handlers) ListTickets(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	out, err := h.Tickets.ListForRequester(r.Context(), id.ID)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"tickets": out})
}

// ListOpenTickets returns the unclaimed queue, oldest first. Agents only.
//
// GET /v1/tickets/open
func (h *Handlers) ListOpenTickets(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	if !id.IsAgent() {
		utils.JSONErrorStatus(w, http.StatusForbidden, "agent role required")
		return
	}
	out, err := h.Tickets.ListOpen(r.Context())
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"tickets": out})
}

// GetTicket returns one ticket. Parties to the ticket and agents may look.
//
// GET /v1/tickets/{id}
func (h *Handlers) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	t, err := h.Tickets.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	if t.Requester != id.ID && t.Assignee != id.ID && !id.IsAgent() {
		utils.JSONErrorStatus(w, http.StatusForbidden, "not a party to this ticket")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, t)
}

// AssignTicket claims an open ticket for the calling agent.
//
// POST /v1/tickets/{id}/assign
func (h *Handlers) AssignTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	if !id.IsAgent() {
		utils.JSONErrorStatus(w, http.StatusForbidden, "agent role required")
		return
	}
	t, err := h.Tickets.Assign(r.Context(), mux.Vars(r)["id"], id.ID)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, t)
}

// CloseTicket ends the ticket. Assigned agent only.
//
// POST /v1/tickets/{id}/close
func (h *Handlers) CloseTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	t, err := h.Tickets.Close(r.Context(), mux.Vars(r)["id"], id.ID)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, t)
}

// RateTicket records the requester's rating for a closed ticket.
//
// POST /v1/tickets/{id}/rate {"rating": 1..5}
func (h *Handlers) RateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Rating int `json:"rating"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.Tickets.Rate(r.Context(), mux.Vars(r)["id"], id.ID, req.Rating)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, t)
}

// PostTicketMessage appends a message to the ticket thread.
//
// POST /v1/tickets/{id}/messages {"body": "..."}
func (h *Handlers) PostTicketMessage(w http.ResponseWriter, r *http.Request) {
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
	m, err := h.Tickets.AppendMessage(r.Context(), mux.Vars(r)["id"], id.ID, req.Body, "")
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

// ListTicketMessages returns the ticket thread in ascending order.
//
// GET /v1/tickets/{id}/messages
func (h *Handlers) ListTicketMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	out, err := h.Tickets.ListMessages(r.Context(), mux.Vars(r)["id"], id.ID)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"messages": out})
}

// AttachFile uploads a file to the ticket thread as a multipart form with
// a single "file" part. Requester only; the stored URL lands in a new
// ticket message.
//
// POST /v1/tickets/{id}/attachments
func (h *Handlers) AttachFile(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(h.MaxAttachment); err != nil {
		utils.JSONErrorStatus(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		utils.JSONErrorStatus(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer f.Close()
	if hdr.Size > h.MaxAttachment {
		utils.JSONErrorStatus(w, http.StatusRequestEntityTooLarge, "attachment too large")
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, h.MaxAttachment+1))
	if err != nil {
		utils.JSONErrorStatus(w, http.StatusBadRequest, "failed to read attachment")
		return
	}
	if int64(len(data)) > h.MaxAttachment {
		utils.JSONErrorStatus(w, http.StatusRequestEntityTooLarge, "attachment too large")
		return
	}
	m, err := h.Tickets.Attach(r.Context(), mux.Vars(r)["id"], id.ID, hdr.Filename, hdr.Header.Get("Content-Type"), data)
	if err != nil {
		utils.JSONError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}
