package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"

	"parley/pkg/logger"
)

// Event names emitted by the core. Audiences are either a participant id
// or the named broadcast group AudienceAgents.
const (
	EventMessageNew     = "message:new"
	EventTicketCreated  = "ticket:created"
	EventTicketAssigned = "ticket:assigned"
	EventTicketMessage  = "ticket:message"
	EventTicketClosed   = "ticket:closed"
)

// AudienceAgents is the broadcast group every idle support agent listens
// on; ticket creation is announced there so any agent can claim it.
const AudienceAgents = "agents"

// Gateway is the real-time push collaborator. Publish is fire-and-forget
// from the core's point of view: no acknowledgement is awaited and errors
// are logged, never surfaced to the request that caused the event.
type Gateway interface {
	Publish(ctx context.Context, audience, event string, payload []byte) error
}

// item wraps one pending publish and owns a pooled payload buffer.
// Consumers must call done() exactly once.
type item struct {
	audience string
	event    string
	payload  []byte

	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

// maxPooledBuffer caps buffers returned to the pool so one huge payload
// does not pin memory forever.
const maxPooledBuffer = 256 * 1024

func (it *item) done() {
	it.once.Do(func() {
		if it.buf != nil {
			if cap(it.buf.B) <= maxPooledBuffer {
				bytebufferpool.Put(it.buf)
			}
			it.buf = nil
		}
		it.payload = nil
	})
}

// Publisher drains a bounded queue into the Gateway on a single worker
// with a per-publish timeout. A full queue drops the event (counted and
// logged); enqueue never blocks the request path.
type Publisher struct {
	gw      Gateway
	ch      chan *item
	timeout time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewPublisher(gw Gateway, capacity int, timeout time.Duration) *Publisher {
	if capacity <= 0 {
		capacity = 4096
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{
		gw:      gw,
		ch:      make(chan *item, capacity),
		timeout: timeout,
		stop:    make(chan struct{}),
	}
}

// Start launches the drain worker.
func (p *Publisher) Start() {
	p.wg.Add(1)
	go p.run()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case it := <-p.ch:
			p.deliver(it)
		case <-p.stop:
			// drain what is already queued, then exit
			for {
				select {
				case it := <-p.ch:
					p.deliver(it)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) deliver(it *item) {
	defer it.done()
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.gw.Publish(ctx, it.audience, it.event, it.payload); err != nil {
		obsFailed(it.event)
		logger.Warn("fanout_publish_failed", "audience", it.audience, "event", it.event, "error", err)
		return
	}
	obsPublished(it.event)
}

// Publish marshals v and enqueues the event. It returns immediately; when
// the queue is full the event is dropped.
func (p *Publisher) Publish(audience, event string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("fanout_marshal_failed", "event", event, "error", err)
		return
	}
	bb := bytebufferpool.Get()
	bb.B = append(bb.B[:0], b...)
	it := &item{audience: audience, event: event, payload: bb.B[:len(b)], buf: bb}

	select {
	case p.ch <- it:
	default:
		it.done()
		obsDropped(event)
		logger.Warn("fanout_queue_full", "audience", audience, "event", event)
	}
}

// Close stops the worker after draining queued events.
func (p *Publisher) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// Len reports the number of queued events; used by tests and monitoring.
func (p *Publisher) Len() int { return len(p.ch) }
