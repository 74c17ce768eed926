package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureGateway struct {
	mu     sync.Mutex
	events []capturedEvent
	fail   bool
}

type capturedEvent struct {
	audience string
	event    string
	payload  []byte
}

func (g *captureGateway) Publish(_ context.Context, audience, event string, payload []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return errors.New("gateway down")
	}
	g.events = append(g.events, capturedEvent{audience, event, append([]byte(nil), payload...)})
	return nil
}

func (g *captureGateway) snapshot() []capturedEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]capturedEvent(nil), g.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestPublishDelivers(t *testing.T) {
	gw := &captureGateway{}
	pub := NewPublisher(gw, 16, time.Second)
	pub.Start()
	defer pub.Close()

	pub.Publish("bob", EventMessageNew, map[string]string{"conversation": "c1"})
	waitFor(t, func() bool { return len(gw.snapshot()) == 1 })

	ev := gw.snapshot()[0]
	if ev.audience != "bob" || ev.event != EventMessageNew {
		t.Fatalf("wrong envelope: %+v", ev)
	}
	var body map[string]string
	if err := json.Unmarshal(ev.payload, &body); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if body["conversation"] != "c1" {
		t.Fatalf("payload lost: %+v", body)
	}
}

func TestPublishNeverBlocksWhenFull(t *testing.T) {
	gw := &captureGateway{}
	pub := NewPublisher(gw, 2, time.Second)
	// worker not started: the queue fills and overflow must drop

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			pub.Publish("bob", EventMessageNew, i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on a full queue")
	}
	if pub.Len() != 2 {
		t.Fatalf("queue should hold its capacity, has %d", pub.Len())
	}
}

func TestGatewayFailureDoesNotPropagate(t *testing.T) {
	gw := &captureGateway{fail: true}
	pub := NewPublisher(gw, 16, 50*time.Millisecond)
	pub.Start()

	// failures are logged and counted; the producer never learns
	pub.Publish("bob", EventTicketCreated, "x")
	pub.Publish(AudienceAgents, EventTicketCreated, "y")
	pub.Close()

	if got := len(gw.snapshot()); got != 0 {
		t.Fatalf("failing gateway recorded %d events", got)
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	gw := &captureGateway{}
	pub := NewPublisher(gw, 64, time.Second)
	for i := 0; i < 10; i++ {
		pub.Publish("bob", EventMessageNew, i)
	}
	pub.Start()
	pub.Close()

	if got := len(gw.snapshot()); got != 10 {
		t.Fatalf("Close must drain queued events, delivered %d of 10", got)
	}
}
