package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// SecConfig carries the rate-limit knobs from config.
type SecConfig struct {
	RPS   float64
	Burst int
}

const (
	defaultRPS   = 25
	defaultBurst = 50
)

// limiterPool hands out one token bucket per caller id. Buckets live for
// the process lifetime; the identity space is bounded by the upstream
// gateway's user base.
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newLimiterPool(cfg SecConfig) *limiterPool {
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &limiterPool{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (p *limiterPool) allow(id string) bool {
	p.mu.Lock()
	l, ok := p.limiters[id]
	if !ok {
		l = rate.NewLimiter(p.rps, p.burst)
		p.limiters[id] = l
	}
	p.mu.Unlock()
	return l.Allow()
}
