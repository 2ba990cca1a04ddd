//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	client := newRedisClient(t)
	l := NewRedisLimiter(client, Config{Window: 2 * time.Second, Max: 3}, "test:rl:")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Admit(ctx, "ip", time.Now())
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Admit(ctx, "ip", time.Now())
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Positive(t, d.RetryAfter)
	assert.LessOrEqual(t, d.RetryAfterSeconds(), 2)

	count, err := client.Get(ctx, "test:rl:ip").Int()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	time.Sleep(2100 * time.Millisecond)
	d, err = l.Admit(ctx, "ip", time.Now())
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestRedisLimiter_SharedAcrossInstances(t *testing.T) {
	client := newRedisClient(t)
	a := NewRedisLimiter(client, Config{Window: time.Minute, Max: 2}, "")
	b := NewRedisLimiter(client, Config{Window: time.Minute, Max: 2}, "")
	ctx := context.Background()

	d1, _ := a.Admit(ctx, "user-1", time.Now())
	d2, _ := b.Admit(ctx, "user-1", time.Now())
	d3, _ := a.Admit(ctx, "user-1", time.Now())
	assert.True(t, d1.Allowed)
	assert.True(t, d2.Allowed)
	assert.False(t, d3.Allowed)
}
