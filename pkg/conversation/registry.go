package conversation

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"parley/pkg/apperr"
	"parley/pkg/logger"
	"parley/pkg/models"
	"parley/pkg/store"
	"parley/pkg/utils"
	"parley/pkg/validation"
)

// Registry creates, finds and removes conversations. Creation is
// idempotent per (participant pair, subject): the pair index key is the
// storage-level uniqueness guard, so concurrent first contact cannot mint
// duplicates.
type Registry struct {
	st *store.Store
}

func NewRegistry(st *store.Store) *Registry {
	return &Registry{st: st}
}

// GetOrCreate returns the existing conversation for (a, b, subject) or
// creates one. Both participant ids are required and must be distinct.
func (r *Registry) GetOrCreate(ctx context.Context, a, b, subject string) (models.Conversation, error) {
	if err := validation.ParticipantID(a); err != nil {
		return models.Conversation{}, err
	}
	if err := validation.ParticipantID(b); err != nil {
		return models.Conversation{}, err
	}
	if a == b {
		return models.Conversation{}, apperr.InvalidArg("participants must be distinct")
	}

	pairKey := store.PairKey(a, b, subject)
	var out models.Conversation
	err := r.st.WithLock(pairKey, func() error {
		if v, ok, err := r.st.Get(ctx, pairKey); err != nil {
			return err
		} else if ok {
			conv, err := r.load(ctx, string(v))
			if err != nil {
				return err
			}
			out = conv
			return nil
		}

		pair := []string{a, b}
		sort.Strings(pair)
		now := time.Now().UTC().UnixNano()
		conv := models.Conversation{
			ID:           utils.GenConvID(),
			Participants: [2]string{pair[0], pair[1]},
			Subject:      subject,
			CreatedTS:    now,
			UpdatedTS:    now,
		}
		mb, err := json.Marshal(conv)
		if err != nil {
			return apperr.Internal("marshal conversation", err)
		}
		ops := []store.Op{
			{Key: pairKey, Value: []byte(conv.ID)},
			{Key: store.ConvMetaKey(conv.ID), Value: mb},
			{Key: store.MemberKey(pair[0], conv.ID), Value: []byte(conv.ID)},
			{Key: store.MemberKey(pair[1], conv.ID), Value: []byte(conv.ID)},
		}
		if err := r.st.Apply(ctx, ops); err != nil {
			return err
		}
		logger.Info("conversation_created", "id", conv.ID, "subject", subject)
		out = conv
		return nil
	})
	return out, err
}

// ListForParticipant returns the caller's conversations ordered by last
// activity, newest first, capped at the configured page size. Each entry
// carries the counterpart id and the caller's unread count.
func (r *Registry) ListForParticipant(ctx context.Context, participant string, limit int) ([]models.ConversationSummary, error) {
	if participant == "" {
		return nil, apperr.InvalidArg("participant id is required")
	}
	limit = validation.ClampLimit(limit)

	kvs, err := r.st.Scan(ctx, store.ScanOptions{Prefix: store.MemberPrefix(participant)})
	if err != nil {
		return nil, err
	}
	out := make([]models.ConversationSummary, 0, len(kvs))
	for _, kv := range kvs {
		conv, err := r.load(ctx, string(kv.Value))
		if err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				// index entry outlived the record; skip
				continue
			}
			return nil, err
		}
		out = append(out, models.ConversationSummary{
			Conversation: conv,
			Counterpart:  conv.Counterpart(participant),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMsgTS, out[j].LastMsgTS
		if ti == 0 {
			ti = out[i].UpdatedTS
		}
		if tj == 0 {
			tj = out[j].UpdatedTS
		}
		return ti > tj
	})
	if len(out) > limit {
		out = out[:limit]
	}
	// unread counters are resolved for the returned page only
	for i := range out {
		unread, err := readUnread(ctx, r.st, out[i].ID, participant)
		if err != nil {
			return nil, err
		}
		out[i].Unread = unread
	}
	return out, nil
}

// Get returns a conversation the requester is a member of.
func (r *Registry) Get(ctx context.Context, convID, requester string) (models.Conversation, error) {
	conv, err := r.load(ctx, convID)
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.HasParticipant(requester) {
		return models.Conversation{}, apperr.Forbidden("not a conversation member")
	}
	return conv, nil
}

// Delete removes the conversation and every message in it as one
// all-or-nothing batch, and records a tombstone for the retention sweep.
// Only a member may delete.
func (r *Registry) Delete(ctx context.Context, convID, requester string) error {
	metaKey := store.ConvMetaKey(convID)
	return r.st.WithLock(metaKey, func() error {
		conv, err := r.load(ctx, convID)
		if err != nil {
			return err
		}
		if !conv.HasParticipant(requester) {
			return apperr.Forbidden("not a conversation member")
		}

		kvs, err := r.st.Scan(ctx, store.ScanOptions{Prefix: store.ConvPrefix(convID)})
		if err != nil {
			return err
		}
		ops := make([]store.Op, 0, len(kvs)+6)
		for _, kv := range kvs {
			ops = append(ops, store.Op{Key: kv.Key, Delete: true})
			// drop the by-id reference of each message in the cascade
			var m models.Message
			if json.Unmarshal(kv.Value, &m) == nil && m.ID != "" {
				ops = append(ops, store.Op{Key: store.MsgRefKey(m.ID), Delete: true})
			}
		}
		ops = append(ops,
			store.Op{Key: store.MemberKey(conv.Participants[0], convID), Delete: true},
			store.Op{Key: store.MemberKey(conv.Participants[1], convID), Delete: true},
			store.Op{Key: store.PairKey(conv.Participants[0], conv.Participants[1], conv.Subject), Delete: true},
		)
		now := time.Now().UTC().UnixNano()
		tomb, _ := json.Marshal(map[string]interface{}{"conversation": convID, "by": requester, "ts": now})
		ops = append(ops, store.Op{Key: store.TombstoneKey(now, convID), Value: tomb})

		if err := r.st.Apply(ctx, ops); err != nil {
			return err
		}
		logger.Info("conversation_deleted", "id", convID, "by", requester, "records", len(kvs))
		return nil
	})
}

func (r *Registry) load(ctx context.Context, convID string) (models.Conversation, error) {
	v, ok, err := r.st.Get(ctx, store.ConvMetaKey(convID))
	if err != nil {
		return models.Conversation{}, err
	}
	if !ok {
		return models.Conversation{}, apperr.NotFound("conversation not found")
	}
	var conv models.Conversation
	if err := json.Unmarshal(v, &conv); err != nil {
		return models.Conversation{}, apperr.Internal("corrupt conversation record", err)
	}
	return conv, nil
}
