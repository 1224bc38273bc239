package fetcher

import (
	"context"
	"sync"
	"time"
)

// RateLimiter caps concurrent requests and requests per minute for each host. Scheduled
// and on-demand runs share one limiter so they cannot flood the shop's site together.
type RateLimiter struct {
	maxConcurrent  int
	rpm            int
	hostSemaphores map[string]*hostLimiter
	mu             sync.Mutex
	now            func() time.Time
}

type hostLimiter struct {
	sem         chan struct{}
	windowStart time.Time
	requests    int
	mu          sync.Mutex
}

func NewRateLimiter(maxConcurrent, rpm int) *RateLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &RateLimiter{
		maxConcurrent:  maxConcurrent,
		rpm:            rpm,
		hostSemaphores: make(map[string]*hostLimiter),
		now:            time.Now,
	}
}

// Acquire blocks until host has a free slot inside its per-minute budget. The returned
// func releases the concurrency slot and must be called once the request is done.
func (rl *RateLimiter) Acquire(ctx context.Context, host string) (func(), error) {
	limiter := rl.limiterFor(host)

	select {
	case limiter.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release := func() { <-limiter.sem }

	if err := rl.waitBudget(ctx, limiter); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

func (rl *RateLimiter) limiterFor(host string) *hostLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.hostSemaphores[host]
	if !exists {
		limiter = &hostLimiter{sem: make(chan struct{}, rl.maxConcurrent)}
		rl.hostSemaphores[host] = limiter
	}
	return limiter
}

func (rl *RateLimiter) waitBudget(ctx context.Context, limiter *hostLimiter) error {
	if rl.rpm <= 0 {
		return nil
	}

	for {
		limiter.mu.Lock()
		now := rl.now()
		if now.Sub(limiter.windowStart) >= time.Minute {
			limiter.windowStart = now
			limiter.requests = 0
		}
		if limiter.requests < rl.rpm {
			limiter.requests++
			limiter.mu.Unlock()
			return nil
		}
		wait := time.Minute - now.Sub(limiter.windowStart)
		limiter.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
