package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"parley/pkg/apperr"
	"parley/pkg/fanout"
	"parley/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(store.OpenMemory())
}

func newTestPublisher(t *testing.T) *fanout.Publisher {
	t.Helper()
	pub := fanout.NewPublisher(fanout.LogGateway{}, 64, time.Second)
	pub.Start()
	t.Cleanup(pub.Close)
	return pub
}

func TestGetOrCreateIdempotent(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry(st)
	ctx := context.Background()

	c1, err := reg.GetOrCreate(ctx, "alice", "bob", "")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	c2, err := reg.GetOrCreate(ctx, "alice", "bob", "")
	if err != nil {
		t.Fatalf("repeat GetOrCreate: %v", err)
	}
	if c1.ID != c2.ID {
		t.Fatalf("repeat created a second conversation: %s vs %s", c1.ID, c2.ID)
	}
	// participant order must not matter
	c3, err := reg.GetOrCreate(ctx, "bob", "alice", "")
	if err != nil {
		t.Fatalf("swapped GetOrCreate: %v", err)
	}
	if c3.ID != c1.ID {
		t.Fatalf("(b,a) minted a new conversation")
	}
}

func TestGetOrCreateSubjectScoped(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry(st)
	ctx := context.Background()

	plain, _ := reg.GetOrCreate(ctx, "alice", "bob", "")
	billing, err := reg.GetOrCreate(ctx, "alice", "bob", "billing")
	if err != nil {
		t.Fatalf("GetOrCreate subject: %v", err)
	}
	if plain.ID == billing.ID {
		t.Fatalf("distinct subjects must be independent conversations")
	}
	again, _ := reg.GetOrCreate(ctx, "bob", "alice", "billing")
	if again.ID != billing.ID {
		t.Fatalf("subject-scoped lookup not idempotent")
	}
}

func TestGetOrCreateValidation(t *testing.T) {
	reg := NewRegistry(newTestStore(t))
	ctx := context.Background()

	if _, err := reg.GetOrCreate(ctx, "alice", "alice", ""); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Fatalf("self-conversation must be INVALID_ARGUMENT, got %v", err)
	}
	if _, err := reg.GetOrCreate(ctx, "", "bob", ""); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Fatalf("empty participant must be INVALID_ARGUMENT, got %v", err)
	}
}

func TestGetOrCreateRejectsReservedCharacters(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry(st)
	ctx := context.Background()

	// a peer id carrying a key delimiter could forge an index entry that
	// matches another participant's membership prefix
	for _, peer := range []string{"alice:zzz", "alice|zzz", ":", "a|b:c"} {
		if _, err := reg.GetOrCreate(ctx, "mallory", peer, ""); !apperr.Is(err, apperr.CodeInvalidArgument) {
			t.Fatalf("peer %q must be INVALID_ARGUMENT, got %v", peer, err)
		}
	}
	if _, err := reg.GetOrCreate(ctx, "mallory:x", "bob", ""); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Fatalf("first participant with delimiter must be INVALID_ARGUMENT")
	}

	// nothing leaked into alice's inbox
	out, err := reg.ListForParticipant(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("ListForParticipant: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("forged peer id reached alice's list: %+v", out)
	}
}

func TestGetOrCreateConcurrentFirstContact(t *testing.T) {
	reg := NewRegistry(newTestStore(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := reg.GetOrCreate(ctx, "alice", "bob", "race")
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			ids <- c.ID
		}()
	}
	wg.Wait()
	close(ids)

	first := ""
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Fatalf("concurrent first contact minted duplicates: %s vs %s", first, id)
		}
	}
}

func TestGetMembershipEnforced(t *testing.T) {
	reg := NewRegistry(newTestStore(t))
	ctx := context.Background()

	c, _ := reg.GetOrCreate(ctx, "alice", "bob", "")
	if _, err := reg.Get(ctx, c.ID, "mallory"); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("non-member access must be FORBIDDEN, got %v", err)
	}
	if _, err := reg.Get(ctx, "conv-missing", "alice"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("unknown conversation must be NOT_FOUND, got %v", err)
	}
}

func TestListForParticipantOrderAndUnread(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry(st)
	led := NewLedger(st, newTestPublisher(t))
	ctx := context.Background()

	withBob, _ := reg.GetOrCreate(ctx, "alice", "bob", "")
	withCarol, _ := reg.GetOrCreate(ctx, "alice", "carol", "")

	if _, err := led.Append(ctx, withBob.ID, "bob", "hi", ""); err != nil {
		t.Fatalf("Append: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := led.Append(ctx, withCarol.ID, "carol", "hello", ""); err != nil {
		t.Fatalf("Append: %v", err)
	}

	out, err := reg.ListForParticipant(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("ListForParticipant: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(out))
	}
	// carol's message is the most recent activity
	if out[0].Counterpart != "carol" || out[1].Counterpart != "bob" {
		t.Fatalf("ordering wrong: %s then %s", out[0].Counterpart, out[1].Counterpart)
	}
	for _, s := range out {
		if s.Unread != 1 {
			t.Fatalf("unread for %s: got %d want 1", s.Counterpart, s.Unread)
		}
		if s.Preview == "" {
			t.Fatalf("preview missing for %s", s.Counterpart)
		}
	}

	// bob only sees his own conversation
	bobOut, _ := reg.ListForParticipant(ctx, "bob", 0)
	if len(bobOut) != 1 || bobOut[0].Counterpart != "alice" {
		t.Fatalf("bob's list wrong: %+v", bobOut)
	}
}

func TestListForParticipantUnreadOnTruncatedPage(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry(st)
	led := NewLedger(st, newTestPublisher(t))
	ctx := context.Background()

	peers := []string{"bob", "carol", "dave", "erin"}
	for i, p := range peers {
		c, err := reg.GetOrCreate(ctx, "alice", p, "")
		if err != nil {
			t.Fatalf("GetOrCreate %s: %v", p, err)
		}
		for j := 0; j <= i; j++ {
			if _, err := led.Append(ctx, c.ID, p, "ping", ""); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
		time.Sleep(2 * time.Millisecond)
	}

	out, err := reg.ListForParticipant(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("ListForParticipant: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected the capped page, got %d entries", len(out))
	}
	// erin wrote last and most; the cap keeps the two most recent
	if out[0].Counterpart != "erin" || out[1].Counterpart != "dave" {
		t.Fatalf("page wrong: %s then %s", out[0].Counterpart, out[1].Counterpart)
	}
	if out[0].Unread != 4 || out[1].Unread != 3 {
		t.Fatalf("unread on capped page: got %d/%d want 4/3", out[0].Unread, out[1].Unread)
	}
}

func TestDeleteCascadesAndAllowsRecreate(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry(st)
	led := NewLedger(st, newTestPublisher(t))
	ctx := context.Background()

	c, _ := reg.GetOrCreate(ctx, "alice", "bob", "")
	msg, _ := led.Append(ctx, c.ID, "alice", "bye", "")

	if err := reg.Delete(ctx, c.ID, "mallory"); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("non-member delete must be FORBIDDEN, got %v", err)
	}
	if err := reg.Delete(ctx, c.ID, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := reg.Get(ctx, c.ID, "alice"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("deleted conversation must be NOT_FOUND, got %v", err)
	}
	if _, err := led.Edit(ctx, msg.ID, "alice", "rewrite"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("messages must go with the conversation, got %v", err)
	}
	out, _ := reg.ListForParticipant(ctx, "alice", 0)
	if len(out) != 0 {
		t.Fatalf("membership index survived the delete: %+v", out)
	}

	// pair is free again: a new first contact mints a fresh conversation
	c2, err := reg.GetOrCreate(ctx, "alice", "bob", "")
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if c2.ID == c.ID {
		t.Fatalf("recreate reused the deleted conversation id")
	}
	page, err := led.List(ctx, c2.ID, "alice", 0, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Messages) != 0 {
		t.Fatalf("recreated conversation must start empty")
	}
}

func TestDeleteWritesTombstone(t *testing.T) {
	st := newTestStore(t)
	reg := NewRegistry(st)
	ctx := context.Background()

	c, _ := reg.GetOrCreate(ctx, "alice", "bob", "")
	if err := reg.Delete(ctx, c.ID, "bob"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	kvs, err := st.Scan(ctx, store.ScanOptions{Prefix: store.TombstonePrefix})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(kvs) != 1 {
		t.Fatalf("expected one tombstone, got %d", len(kvs))
	}
}
