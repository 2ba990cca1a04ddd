package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter(Config{Window: time.Minute, Max: 10})
	defer l.Close()
	ctx := context.Background()

	prev := 10
	for i := 0; i < 10; i++ {
		d, err := l.Admit(ctx, "1.2.3.4", t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.True(t, d.Allowed, "call %d", i+1)
		assert.Less(t, d.Remaining, prev)
		assert.Zero(t, d.RetryAfter)
		prev = d.Remaining
	}
	assert.Equal(t, 0, prev)

	now := t0.Add(30 * time.Second)
	d, err := l.Admit(ctx, "1.2.3.4", now)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 10, d.Limit)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
	assert.LessOrEqual(t, d.RetryAfterSeconds(), 60)
	assert.Equal(t, t0.Add(time.Minute), d.ResetAt)

	// a new window starts from one, not from the denied total
	d, err = l.Admit(ctx, "1.2.3.4", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 9, d.Remaining)
}

func TestMemoryLimiter_DeniedAttemptsCount(t *testing.T) {
	l := NewMemoryLimiter(Config{Window: time.Minute, Max: 2})
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = l.Admit(ctx, "k", t0)
	}
	l.mu.Lock()
	assert.Equal(t, 5, l.buckets["k"].count)
	l.mu.Unlock()
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(Config{Window: time.Minute, Max: 1})
	defer l.Close()
	ctx := context.Background()

	a, _ := l.Admit(ctx, "a", t0)
	b, _ := l.Admit(ctx, "b", t0)
	a2, _ := l.Admit(ctx, "a", t0)
	assert.True(t, a.Allowed)
	assert.True(t, b.Allowed)
	assert.False(t, a2.Allowed)
}

func TestMemoryLimiter_ConcurrentAdmitsNeverExceedMax(t *testing.T) {
	l := NewMemoryLimiter(Config{Window: time.Minute, Max: 10})
	defer l.Close()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := l.Admit(context.Background(), "shared", t0)
			if d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), allowed.Load())
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	l := NewMemoryLimiter(Config{Window: time.Minute, Max: 5})
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = l.Admit(ctx, fmt.Sprintf("k%d", i), t0.Add(time.Duration(i)*time.Minute))
	}
	require.Equal(t, 3, l.Len())

	l.Sweep(t0.Add(2 * time.Minute))
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLimiter_Defaults(t *testing.T) {
	l := NewMemoryLimiter(Config{})
	defer l.Close()

	d, err := l.Admit(context.Background(), "k", t0)
	require.NoError(t, err)
	assert.Equal(t, 10, d.Limit)
	assert.Equal(t, t0.Add(time.Minute), d.ResetAt)
	assert.NoError(t, l.Close())
}

func TestDecision_ResetUnixRoundsUp(t *testing.T) {
	d := Decision{ResetAt: time.UnixMilli(1_700_000_000_001)}
	assert.Equal(t, int64(1_700_000_001), d.ResetUnix())

	d = Decision{ResetAt: time.UnixMilli(1_700_000_000_000)}
	assert.Equal(t, int64(1_700_000_000), d.ResetUnix())

	d = Decision{RetryAfter: 1500 * time.Millisecond}
	assert.Equal(t, 2, d.RetryAfterSeconds())
}
