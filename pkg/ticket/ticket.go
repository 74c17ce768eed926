package ticket

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"parley/pkg/apperr"
	"parley/pkg/fanout"
	"parley/pkg/filestore"
	"parley/pkg/logger"
	"parley/pkg/models"
	"parley/pkg/store"
	"parley/pkg/utils"
	"parley/pkg/validation"
)

// Service drives the support-ticket lifecycle: open -> assigned -> closed,
// with closed terminal. Transitions are conditional writes on the ticket
// record; the loser of a concurrent transition race gets INVALID_STATE.
// Tickets are never deleted; they are the audit trail.
type Service struct {
	st    *store.Store
	pub   *fanout.Publisher
	files filestore.Storage
	seq   uint64
}

func NewService(st *store.Store, pub *fanout.Publisher, files filestore.Storage) *Service {
	return &Service{st: st, pub: pub, files: files}
}

// ticketEvent is the fan-out payload for lifecycle changes.
type ticketEvent struct {
	Ticket  models.Ticket         `json:"ticket"`
	Message *models.TicketMessage `json:"message,omitempty"`
}

// Create opens a new ticket and announces it on the agents broadcast group
// so any idle agent can claim it.
func (s *Service) Create(ctx context.Context, requester, role, category, subcategory, problem string) (models.Ticket, error) {
	if err := validation.TicketCreate(requester, category, problem); err != nil {
		return models.Ticket{}, err
	}
	t := models.Ticket{
		ID:            utils.GenTicketID(),
		Requester:     requester,
		RequesterRole: role,
		Category:      category,
		Subcategory:   subcategory,
		Problem:       problem,
		Status:        models.TicketOpen,
		CreatedTS:     time.Now().UTC().UnixNano(),
	}
	b, err := json.Marshal(t)
	if err != nil {
		return models.Ticket{}, apperr.Internal("marshal ticket", err)
	}
	ops := []store.Op{
		{Key: store.TicketMetaKey(t.ID), Value: b},
		{Key: store.TicketByKey(requester, t.ID), Value: []byte(t.ID)},
	}
	if err := s.st.Apply(ctx, ops); err != nil {
		return models.Ticket{}, err
	}
	logger.Info("ticket_created", "id", t.ID, "category", category)
	s.pub.Publish(fanout.AudienceAgents, fanout.EventTicketCreated, ticketEvent{Ticket: t})
	return t, nil
}

// Assign claims an open ticket for an agent. Only the open state accepts
// assignment, which also guards two agents racing for the same ticket.
func (s *Service) Assign(ctx context.Context, ticketID, agent string) (models.Ticket, error) {
	if agent == "" {
		return models.Ticket{}, apperr.InvalidArg("agent id is required")
	}
	t, err := s.transition(ctx, ticketID, func(t *models.Ticket) error {
		if t.Status != models.TicketOpen {
			return apperr.InvalidState("ticket is not open")
		}
		t.Status = models.TicketAssigned
		t.Assignee = agent
		return nil
	})
	if err != nil {
		return models.Ticket{}, err
	}
	logger.Info("ticket_assigned", "id", ticketID, "agent", agent)
	s.pub.Publish(t.Requester, fanout.EventTicketAssigned, ticketEvent{Ticket: t})
	return t, nil
}

// Close ends an assigned ticket. Only the assigned agent may close.
func (s *Service) Close(ctx context.Context, ticketID, actor string) (models.Ticket, error) {
	t, err := s.transition(ctx, ticketID, func(t *models.Ticket) error {
		if t.Status == models.TicketClosed {
			return apperr.InvalidState("ticket is already closed")
		}
		if t.Status != models.TicketAssigned {
			return apperr.InvalidState("ticket is not assigned")
		}
		if t.Assignee != actor {
			return apperr.Forbidden("only the assigned agent may close the ticket")
		}
		t.Status = models.TicketClosed
		t.ClosedTS = time.Now().UTC().UnixNano()
		return nil
	})
	if err != nil {
		return models.Ticket{}, err
	}
	logger.Info("ticket_closed", "id", ticketID, "by", actor)
	s.pub.Publish(t.Requester, fanout.EventTicketClosed, ticketEvent{Ticket: t})
	return t, nil
}

// Rate records post-closure feedback. Requester only, closed tickets only,
// and a ticket can be rated once.
func (s *Service) Rate(ctx context.Context, ticketID, actor string, rating int) (models.Ticket, error) {
	if err := validation.Rating(rating); err != nil {
		return models.Ticket{}, err
	}
	t, err := s.transition(ctx, ticketID, func(t *models.Ticket) error {
		if t.Requester != actor {
			return apperr.Forbidden("only the requester may rate the ticket")
		}
		if t.Status != models.TicketClosed {
			return apperr.InvalidState("ticket is not closed")
		}
		if t.Rating != 0 {
			return apperr.InvalidState("ticket is already rated")
		}
		t.Rating = rating
		return nil
	})
	if err != nil {
		return models.Ticket{}, err
	}
	logger.Info("ticket_rated", "id", ticketID, "rating", rating)
	return t, nil
}

// AppendMessage adds a message to the ticket thread. Only the requester
// and, once assigned, the assigned agent may write; closed tickets take no
// further messages. Attachments are requester-only.
func (s *Service) AppendMessage(ctx context.Context, ticketID, sender, body, attachment string) (models.TicketMessage, error) {
	if err := validation.Body(body); err != nil {
		return models.TicketMessage{}, err
	}
	t, err := s.Get(ctx, ticketID)
	if err != nil {
		return models.TicketMessage{}, err
	}
	role, err := senderRole(t, sender)
	if err != nil {
		return models.TicketMessage{}, err
	}
	if t.Status == models.TicketClosed {
		return models.TicketMessage{}, apperr.InvalidState("ticket is closed")
	}
	if attachment != "" && sender != t.Requester {
		return models.TicketMessage{}, apperr.Forbidden("only the requester may attach files")
	}

	ts := time.Now().UTC().UnixNano()
	seq := atomic.AddUint64(&s.seq, 1)
	m := models.TicketMessage{
		ID:         utils.GenMsgID(),
		Ticket:     ticketID,
		Sender:     sender,
		SenderRole: role,
		Body:       body,
		Attachment: attachment,
		TS:         ts,
	}
	b, err := json.Marshal(m)
	if err != nil {
		return models.TicketMessage{}, apperr.Internal("marshal ticket message", err)
	}
	if err := s.st.Put(ctx, store.TicketMsgKey(ticketID, ts, seq), b); err != nil {
		return models.TicketMessage{}, err
	}
	logger.Info("ticket_message_appended", "ticket", ticketID, "id", m.ID)

	audience := t.Assignee
	if sender == t.Assignee {
		audience = t.Requester
	} else if audience == "" {
		audience = fanout.AudienceAgents
	}
	s.pub.Publish(audience, fanout.EventTicketMessage, ticketEvent{Ticket: t, Message: &m})
	return m, nil
}

// Attach stores a file with the external collaborator and appends a
// message carrying the returned URL. Requester only. The ticket state is
// checked before the blob is written so a rejected attach leaves no
// orphaned file behind.
func (s *Service) Attach(ctx context.Context, ticketID, sender, filename, contentType string, data []byte) (models.TicketMessage, error) {
	t, err := s.Get(ctx, ticketID)
	if err != nil {
		return models.TicketMessage{}, err
	}
	if sender != t.Requester {
		return models.TicketMessage{}, apperr.Forbidden("only the requester may attach files")
	}
	if t.Status == models.TicketClosed {
		return models.TicketMessage{}, apperr.InvalidState("ticket is closed")
	}
	if len(data) == 0 {
		return models.TicketMessage{}, apperr.InvalidArg("empty attachment")
	}
	url, err := s.files.Store(ctx, data, filestore.Metadata{Name: filename, ContentType: contentType, Owner: sender})
	if err != nil {
		return models.TicketMessage{}, apperr.Unavailable("file storage failed", err)
	}
	body := filename
	if strings.TrimSpace(body) == "" {
		body = "attachment"
	}
	return s.AppendMessage(ctx, ticketID, sender, body, url)
}

// ListMessages returns the ticket thread in ascending order. Requester and
// assigned agent only.
func (s *Service) ListMessages(ctx context.Context, ticketID, requester string) ([]models.TicketMessage, error) {
	t, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := senderRole(t, requester); err != nil {
		return nil, err
	}
	kvs, err := s.st.Scan(ctx, store.ScanOptions{Prefix: store.TicketMsgPrefix(ticketID)})
	if err != nil {
		return nil, err
	}
	out := make([]models.TicketMessage, 0, len(kvs))
	for _, kv := range kvs {
		var m models.TicketMessage
		if err := json.Unmarshal(kv.Value, &m); err != nil {
			return nil, apperr.Internal("corrupt ticket message", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// ListForRequester returns the requester's tickets, newest first.
func (s *Service) ListForRequester(ctx context.Context, requester string) ([]models.Ticket, error) {
	if requester == "" {
		return nil, apperr.InvalidArg("requester id is required")
	}
	kvs, err := s.st.Scan(ctx, store.ScanOptions{Prefix: store.TicketByPrefix(requester)})
	if err != nil {
		return nil, err
	}
	out := make([]models.Ticket, 0, len(kvs))
	for _, kv := range kvs {
		t, err := s.Get(ctx, string(kv.Value))
		if err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTS > out[j].CreatedTS })
	return out, nil
}

// ListOpen returns unclaimed tickets for the agents' queue, oldest first.
func (s *Service) ListOpen(ctx context.Context) ([]models.Ticket, error) {
	kvs, err := s.st.Scan(ctx, store.ScanOptions{Prefix: store.TicketMetaScanPrefix()})
	if err != nil {
		return nil, err
	}
	var out []models.Ticket
	for _, kv := range kvs {
		if !strings.HasSuffix(kv.Key, ":meta") {
			continue
		}
		var t models.Ticket
		if err := json.Unmarshal(kv.Value, &t); err != nil {
			continue
		}
		if t.Status == models.TicketOpen {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTS < out[j].CreatedTS })
	return out, nil
}

// Get loads a ticket by id.
func (s *Service) Get(ctx context.Context, ticketID string) (models.Ticket, error) {
	v, ok, err := s.st.Get(ctx, store.TicketMetaKey(ticketID))
	if err != nil {
		return models.Ticket{}, err
	}
	if !ok {
		return models.Ticket{}, apperr.NotFound("ticket not found")
	}
	var t models.Ticket
	if err := json.Unmarshal(v, &t); err != nil {
		return models.Ticket{}, apperr.Internal("corrupt ticket record", err)
	}
	return t, nil
}

// transition applies fn to the ticket under a conditional write: fn sees
// the current record and either mutates it or rejects with a taxonomy
// error, in which case nothing is written.
func (s *Service) transition(ctx context.Context, ticketID string, fn func(*models.Ticket) error) (models.Ticket, error) {
	var out models.Ticket
	_, err := s.st.Swap(ctx, store.TicketMetaKey(ticketID), func(cur []byte, found bool) ([]byte, []store.Op, error) {
		if !found {
			return nil, nil, apperr.NotFound("ticket not found")
		}
		var t models.Ticket
		if err := json.Unmarshal(cur, &t); err != nil {
			return nil, nil, apperr.Internal("corrupt ticket record", err)
		}
		if err := fn(&t); err != nil {
			return nil, nil, err
		}
		b, err := json.Marshal(t)
		if err != nil {
			return nil, nil, apperr.Internal("marshal ticket", err)
		}
		out = t
		return b, nil, nil
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return out, nil
}

// senderRole resolves which side of the ticket the caller is on, or
// Forbidden when they are neither the requester nor the assigned agent.
func senderRole(t models.Ticket, caller string) (models.SenderRole, error) {
	switch caller {
	case "":
		return "", apperr.InvalidArg("caller id is required")
	case t.Requester:
		return models.RoleCustomer, nil
	case t.Assignee:
		if t.Assignee != "" {
			return models.RoleAgent, nil
		}
	}
	return "", apperr.Forbidden("not a party to this ticket")
}
