// Package ratelimit admits or rejects requests per caller key using a fixed
// window counter.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is only set on denial.
	RetryAfter time.Duration
}

// ResetUnix is the window reset as epoch seconds, rounded up.
func (d Decision) ResetUnix() int64 {
	return int64(math.Ceil(float64(d.ResetAt.UnixMilli()) / 1000))
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// Limiter decides whether a request under key may proceed.
type Limiter interface {
	Admit(ctx context.Context, key string, now time.Time) (Decision, error)
}

// Config configures a limiter.
type Config struct {
	Window time.Duration
	Max    int
	// SweepInterval enables periodic removal of expired buckets in the
	// memory limiter. Zero disables it.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.Max <= 0 {
		c.Max = 10
	}
	return c
}

func decide(count int, resetAt, now time.Time, limit int) Decision {
	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(now)
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
	}
	return d
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps buckets in process memory. It is safe for concurrent
// use; the read-check-increment of a key happens under one lock.
type MemoryLimiter struct {
	config Config

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	cfg = cfg.withDefaults()
	l := &MemoryLimiter{
		config:  cfg,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		go l.sweepLoop(cfg.SweepInterval)
	}
	return l
}

// Admit counts the attempt and reports whether it fits in the window.
// Denied attempts are counted too.
func (l *MemoryLimiter) Admit(_ context.Context, key string, now time.Time) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !b.resetAt.After(now) {
		b = &bucket{resetAt: now.Add(l.config.Window)}
		l.buckets[key] = b
	}
	b.count++

	return decide(b.count, b.resetAt, now, l.config.Max), nil
}

// Len returns the number of live buckets.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Sweep drops buckets whose window ended at or before now.
func (l *MemoryLimiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if !b.resetAt.After(now) {
			delete(l.buckets, key)
		}
	}
}

// Close stops the sweep goroutine.
func (l *MemoryLimiter) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	return nil
}

func (l *MemoryLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			l.Sweep(now)
		case <-l.stop:
			return
		}
	}
}
