package client

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket bounding how many provider requests are sent
// per second. A nil *RateLimiter does not limit.
type RateLimiter struct {
	mu     sync.Mutex
	rate   float64 // requests per second
	burst  float64
	tokens float64 // current available tokens
	last   time.Time
	now    func() time.Time
}

// NewRateLimiter allows perSecond requests per second with bursts of the same
// size, and at least one. A non-positive rate returns nil.
func NewRateLimiter(perSecond float64) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	burst := perSecond
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{rate: perSecond, burst: burst, tokens: burst, last: time.Now(), now: time.Now}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	for {
		delay := l.reserve()
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token if one is available and otherwise returns how long
// until the next one is.
func (l *RateLimiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Refill tokens
	now := l.now()
	if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
		l.tokens += elapsed * l.rate
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		l.last = now
	}
	if l.tokens >= 1 {
		l.tokens--
		return 0
	}
	return time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}
