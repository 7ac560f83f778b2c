// Package ratelimit holds the limiter contract used by the HTTP middleware
// and an in-process implementation for single-replica deployments.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result contains the result of a rate limit check
type Result struct {
	Allowed   bool          // Whether the action is allowed
	Remaining int           // Remaining actions in the window
	ResetIn   time.Duration // Time until the window resets
	Limit     int           // The limit for this action
}

type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Local is a token bucket per key: limit tokens refilled evenly over window.
type Local struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*rate.Limiter
}

func NewLocal(limit int, window time.Duration) *Local {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Local{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *Local) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)
		l.buckets[key] = b
	}
	return b
}

func (l *Local) Allow(_ context.Context, key string) (*Result, error) {
	b := l.bucket(key)
	now := time.Now()
	r := b.ReserveN(now, 1)
	if !r.OK() {
		return &Result{Allowed: false, Limit: l.limit, ResetIn: l.window}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Result{Allowed: false, Remaining: 0, ResetIn: delay, Limit: l.limit}, nil
	}
	remaining := int(b.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return &Result{Allowed: true, Remaining: remaining, Limit: l.limit}, nil
}

// Pacer spaces out repeated work at a fixed rate. A zero or negative rate
// disables pacing.
type Pacer struct {
	limiter *rate.Limiter
}

func NewPacer(perSecond int) *Pacer {
	if perSecond <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
