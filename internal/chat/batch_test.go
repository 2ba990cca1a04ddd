package chat

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
)

type upperResponder struct {
	inFlight, peak int32
	delay          time.Duration
}

func (u *upperResponder) Respond(ctx context.Context, message string, caller orders.Caller) string {
	n := atomic.AddInt32(&u.inFlight, 1)
	for {
		p := atomic.LoadInt32(&u.peak)
		if n <= p || atomic.CompareAndSwapInt32(&u.peak, p, n) {
			break
		}
	}
	defer atomic.AddInt32(&u.inFlight, -1)

	select {
	case <-time.After(u.delay):
	case <-ctx.Done():
	}
	return caller.UserID + ":" + strings.ToUpper(message)
}

func TestNewBatchProcessor_Defaults(t *testing.T) {
	bp := NewBatchProcessor(&upperResponder{}, 0, 0)
	assert.Equal(t, 5, bp.maxWorkers)
	assert.Equal(t, 30*time.Second, bp.timeout)

	bp = NewBatchProcessor(&upperResponder{}, 10, time.Minute)
	assert.Equal(t, 10, bp.maxWorkers)
	assert.Equal(t, time.Minute, bp.timeout)
}

func TestBatchProcessor_KeepsOrder(t *testing.T) {
	r := &upperResponder{delay: 5 * time.Millisecond}
	bp := NewBatchProcessor(r, 2, time.Second)

	var done int32
	replies, err := bp.Process(context.Background(), []string{"a", "b", "c", "d", "e"},
		orders.Caller{UserID: "u1"}, func() { atomic.AddInt32(&done, 1) })
	require.NoError(t, err)
	assert.Equal(t, []string{"u1:A", "u1:B", "u1:C", "u1:D", "u1:E"}, replies)
	assert.EqualValues(t, 5, done)
	assert.LessOrEqual(t, atomic.LoadInt32(&r.peak), int32(2))
}

func TestBatchProcessor_Empty(t *testing.T) {
	replies, err := NewBatchProcessor(&upperResponder{}, 1, time.Second).
		Process(context.Background(), nil, orders.Caller{}, nil)
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestBatchProcessor_Timeout(t *testing.T) {
	bp := NewBatchProcessor(&upperResponder{delay: time.Second}, 1, 20*time.Millisecond)

	replies, err := bp.Process(context.Background(), []string{"a", "b", "c"}, orders.Caller{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Len(t, replies, 3)
	assert.Empty(t, replies[2])
}
