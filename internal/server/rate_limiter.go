package server

import (
	"math"
	"sync"
	"time"
)

// messageLimiter throttles inbound frames on a single connection. A client
// may burst up to RateLimitBurst messages at once; spent tokens grow back
// continuously so that the full burst is restored after one RateLimitRefill
// interval of silence.
type messageLimiter struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	perSec   float64
	lastSeen time.Time
}

func newMessageLimiter(burst int, refill time.Duration) *messageLimiter {
	if burst <= 0 {
		burst = 1
	}
	if refill <= 0 {
		refill = time.Second
	}

	return &messageLimiter{
		tokens:   float64(burst),
		burst:    float64(burst),
		perSec:   float64(burst) / refill.Seconds(),
		lastSeen: time.Now(),
	}
}

func (l *messageLimiter) allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(l.lastSeen).Seconds(); elapsed > 0 {
		l.tokens = math.Min(l.burst, l.tokens+elapsed*l.perSec)
	}
	l.lastSeen = now

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}
