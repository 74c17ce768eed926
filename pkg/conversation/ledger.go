package conversation

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"parley/pkg/apperr"
	"parley/pkg/fanout"
	"parley/pkg/logger"
	"parley/pkg/models"
	"parley/pkg/store"
	"parley/pkg/utils"
	"parley/pkg/validation"
)

// Ledger appends and reads messages. Message keys embed (timestamp, seq)
// so chronological order is the storage order; appends to one conversation
// are serialized on the conversation lock, which also keeps the preview,
// timestamps and unread counter consistent with the message batch.
type Ledger struct {
	st  *store.Store
	pub *fanout.Publisher
	seq uint64
}

func NewLedger(st *store.Store, pub *fanout.Publisher) *Ledger {
	return &Ledger{st: st, pub: pub}
}

// messageEvent is the fan-out payload for new messages.
type messageEvent struct {
	Conversation string         `json:"conversation"`
	Message      models.Message `json:"message"`
}

// Append persists a message and updates the owning conversation's preview
// and timestamps in the same batch, then notifies the counterpart.
func (l *Ledger) Append(ctx context.Context, convID, sender, body string, kind models.MessageKind) (models.Message, error) {
	if err := validation.Body(body); err != nil {
		return models.Message{}, err
	}
	kind, err := validation.Kind(kind)
	if err != nil {
		return models.Message{}, err
	}

	metaKey := store.ConvMetaKey(convID)
	var msg models.Message
	var counterpart string
	err = l.st.WithLock(metaKey, func() error {
		v, ok, err := l.st.Get(ctx, metaKey)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("conversation not found")
		}
		var conv models.Conversation
		if err := json.Unmarshal(v, &conv); err != nil {
			return apperr.Internal("corrupt conversation record", err)
		}
		if !conv.HasParticipant(sender) {
			return apperr.Forbidden("sender is not a conversation member")
		}
		counterpart = conv.Counterpart(sender)

		ts := time.Now().UTC().UnixNano()
		seq := atomic.AddUint64(&l.seq, 1)
		msg = models.Message{
			ID:           utils.GenMsgID(),
			Conversation: convID,
			Sender:       sender,
			Body:         body,
			Kind:         kind,
			TS:           ts,
		}
		mb, err := json.Marshal(msg)
		if err != nil {
			return apperr.Internal("marshal message", err)
		}
		key := store.ConvMsgKey(convID, ts, seq)

		conv.Preview = validation.Preview(body)
		conv.LastMsgTS = ts
		conv.UpdatedTS = ts
		cb, err := json.Marshal(conv)
		if err != nil {
			return apperr.Internal("marshal conversation", err)
		}

		unread, err := readUnread(ctx, l.st, convID, counterpart)
		if err != nil {
			return err
		}
		ops := []store.Op{
			{Key: key, Value: mb},
			{Key: store.MsgRefKey(msg.ID), Value: []byte(key)},
			{Key: metaKey, Value: cb},
			{Key: store.UnreadKey(convID, counterpart), Value: unreadValue(unread + 1)},
		}
		return l.st.Apply(ctx, ops)
	})
	if err != nil {
		return models.Message{}, err
	}

	logger.Info("message_appended", "conversation", convID, "id", msg.ID)
	l.pub.Publish(counterpart, fanout.EventMessageNew, messageEvent{Conversation: convID, Message: msg})
	return msg, nil
}

// List returns up to limit messages strictly older than the before cursor
// (or the newest page when before is empty), in ascending chronological
// order. The underlying fetch is newest-first and reversed; cursors anchor
// to that fetch direction, so paging backward stays gap-free and
// duplicate-free while new messages land at the head. Soft-deleted
// messages are redacted, not hidden.
func (l *Ledger) List(ctx context.Context, convID, requester string, limit int, before string) (models.MessagePage, error) {
	v, ok, err := l.st.Get(ctx, store.ConvMetaKey(convID))
	if err != nil {
		return models.MessagePage{}, err
	}
	if !ok {
		return models.MessagePage{}, apperr.NotFound("conversation not found")
	}
	var conv models.Conversation
	if err := json.Unmarshal(v, &conv); err != nil {
		return models.MessagePage{}, apperr.Internal("corrupt conversation record", err)
	}
	if !conv.HasParticipant(requester) {
		return models.MessagePage{}, apperr.Forbidden("not a conversation member")
	}

	limit = validation.ClampLimit(limit)
	opts := store.ScanOptions{
		Prefix:  store.ConvMsgPrefix(convID),
		Reverse: true,
		Limit:   limit,
	}
	if before != "" {
		opts.Cursor = store.ConvMsgPrefix(convID) + before
	}
	kvs, err := l.st.Scan(ctx, opts)
	if err != nil {
		return models.MessagePage{}, err
	}

	// kvs is newest-first; reverse into display order
	page := models.MessagePage{Messages: make([]models.Message, 0, len(kvs))}
	for i := len(kvs) - 1; i >= 0; i-- {
		var m models.Message
		if err := json.Unmarshal(kvs[i].Value, &m); err != nil {
			return models.MessagePage{}, apperr.Internal("corrupt message record", err)
		}
		if m.Deleted {
			m.Body = models.DeletedPlaceholder
		}
		page.Messages = append(page.Messages, m)
	}
	if len(kvs) == limit {
		// oldest fetched message anchors the next older page
		page.NextBefore = store.MsgCursor(kvs[len(kvs)-1].Key)
	}
	return page, nil
}

// Edit replaces the body of the requester's own message. Deleted messages
// cannot be edited.
func (l *Ledger) Edit(ctx context.Context, msgID, requester, newBody string) (models.Message, error) {
	if err := validation.Body(newBody); err != nil {
		return models.Message{}, err
	}
	key, err := l.resolve(ctx, msgID)
	if err != nil {
		return models.Message{}, err
	}
	var out models.Message
	_, err = l.st.Swap(ctx, key, func(cur []byte, found bool) ([]byte, []store.Op, error) {
		if !found {
			return nil, nil, apperr.NotFound("message not found")
		}
		var m models.Message
		if err := json.Unmarshal(cur, &m); err != nil {
			return nil, nil, apperr.Internal("corrupt message record", err)
		}
		if m.Sender != requester {
			return nil, nil, apperr.Forbidden("only the sender may edit a message")
		}
		if m.Deleted {
			return nil, nil, apperr.InvalidState("message is deleted")
		}
		m.Body = newBody
		m.Edited = true
		m.EditedTS = time.Now().UTC().UnixNano()
		nb, err := json.Marshal(m)
		if err != nil {
			return nil, nil, apperr.Internal("marshal message", err)
		}
		out = m
		return nb, nil, nil
	})
	if err != nil {
		return models.Message{}, err
	}
	logger.Info("message_edited", "id", msgID)
	return out, nil
}

// SoftDelete redacts the requester's own message. Deleting an already
// deleted message is a no-op, not an error.
func (l *Ledger) SoftDelete(ctx context.Context, msgID, requester string) error {
	key, err := l.resolve(ctx, msgID)
	if err != nil {
		return err
	}
	_, err = l.st.Swap(ctx, key, func(cur []byte, found bool) ([]byte, []store.Op, error) {
		if !found {
			return nil, nil, apperr.NotFound("message not found")
		}
		var m models.Message
		if err := json.Unmarshal(cur, &m); err != nil {
			return nil, nil, apperr.Internal("corrupt message record", err)
		}
		if m.Sender != requester {
			return nil, nil, apperr.Forbidden("only the sender may delete a message")
		}
		if m.Deleted {
			// idempotent: rewrite unchanged
			return cur, nil, nil
		}
		m.Deleted = true
		m.DeletedTS = time.Now().UTC().UnixNano()
		m.Body = models.DeletedPlaceholder
		nb, err := json.Marshal(m)
		if err != nil {
			return nil, nil, apperr.Internal("marshal message", err)
		}
		return nb, nil, nil
	})
	if err != nil {
		return err
	}
	logger.Info("message_deleted", "id", msgID)
	return nil
}

// MarkRead flips the read flag on every unread counterpart message and
// zeroes the unread counter, all in one batch so a failure cannot leave a
// partially-read state.
func (l *Ledger) MarkRead(ctx context.Context, convID, participant string) error {
	metaKey := store.ConvMetaKey(convID)
	return l.st.WithLock(metaKey, func() error {
		v, ok, err := l.st.Get(ctx, metaKey)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("conversation not found")
		}
		var conv models.Conversation
		if err := json.Unmarshal(v, &conv); err != nil {
			return apperr.Internal("corrupt conversation record", err)
		}
		if !conv.HasParticipant(participant) {
			return apperr.Forbidden("not a conversation member")
		}

		kvs, err := l.st.Scan(ctx, store.ScanOptions{Prefix: store.ConvMsgPrefix(convID)})
		if err != nil {
			return err
		}
		var ops []store.Op
		for _, kv := range kvs {
			var m models.Message
			if err := json.Unmarshal(kv.Value, &m); err != nil {
				continue
			}
			if m.Sender == participant || m.Read {
				continue
			}
			m.Read = true
			nb, err := json.Marshal(m)
			if err != nil {
				return apperr.Internal("marshal message", err)
			}
			ops = append(ops, store.Op{Key: kv.Key, Value: nb})
		}
		ops = append(ops, store.Op{Key: store.UnreadKey(convID, participant), Value: unreadValue(0)})
		if err := l.st.Apply(ctx, ops); err != nil {
			return err
		}
		logger.Debug("conversation_marked_read", "conversation", convID, "participant", participant, "messages", len(ops)-1)
		return nil
	})
}

// CountUnread reads the maintained unread counter; no message scan.
func (l *Ledger) CountUnread(ctx context.Context, convID, participant string) (int, error) {
	return readUnread(ctx, l.st, convID, participant)
}

// resolve maps a message id to its ledger key via the msgref index.
func (l *Ledger) resolve(ctx context.Context, msgID string) (string, error) {
	v, ok, err := l.st.Get(ctx, store.MsgRefKey(msgID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.NotFound("message not found")
	}
	return string(v), nil
}
