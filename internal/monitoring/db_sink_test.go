package monitoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

type memRecords struct {
	mu      sync.Mutex
	batches [][]storage.AuditRecord
}

func (m *memRecords) InsertAuditRecords(_ context.Context, records []storage.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, records)
	return nil
}

func (m *memRecords) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func TestDBSink_BatchesBySize(t *testing.T) {
	store := &memRecords{}
	sink := NewDBSink(nil, store, DBSinkConfig{BatchSize: 3, FlushInterval: time.Hour})
	audit := NewAuditLogger(nil, sink)

	for i := 0; i < 7; i++ {
		audit.Record(context.Background(), AuditEvent{Intent: "smalltalk", Outcome: OutcomeAnswered})
	}
	require.Eventually(t, func() bool { return store.total() == 6 }, time.Second, 5*time.Millisecond)

	// Close drains the remainder
	require.NoError(t, audit.Close())
	assert.Equal(t, 7, store.total())
	assert.Len(t, store.batches, 3)
}

func TestDBSink_FlushesOnInterval(t *testing.T) {
	store := &memRecords{}
	sink := NewDBSink(nil, store, DBSinkConfig{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	defer sink.Close()

	require.NoError(t, sink.Write(context.Background(), AuditEvent{Intent: "order.mine", Outcome: OutcomeEmpty}))
	require.Eventually(t, func() bool { return store.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestDBSink_WritesThroughAfterClose(t *testing.T) {
	store := &memRecords{}
	sink := NewDBSink(nil, store, DBSinkConfig{})
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	require.NoError(t, sink.Write(context.Background(), AuditEvent{Intent: "smalltalk"}))
	assert.Equal(t, 1, store.total())
}

func TestDBSink_SQLite(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := storage.Open(ctx, storage.OpenOptions{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, storage.Migrate(ctx, db))
	store := storage.NewSQLStore(db, dialect)

	audit := NewAuditLogger(nil, NewDBSink(nil, store, DBSinkConfig{}))
	audit.Record(ctx, AuditEvent{
		UserID:      "u-1",
		Intent:      "product.search",
		Strategy:    "loose",
		ResultCount: 3,
		Outcome:     OutcomeAnswered,
		LatencyMs:   12,
	})
	audit.Record(ctx, AuditEvent{Intent: "order.byEmail", Outcome: OutcomeForbidden, OccurredAt: time.Now().Add(time.Second)})
	require.NoError(t, audit.Close())

	records, err := store.RecentAuditRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "order.byEmail", records[0].Intent)
	assert.Equal(t, OutcomeForbidden, records[0].Outcome)
	assert.Empty(t, records[0].UserID)

	assert.Equal(t, "u-1", records[1].UserID)
	assert.Equal(t, "loose", records[1].Strategy)
	assert.Equal(t, 3, records[1].ResultCount)
	assert.EqualValues(t, 12, records[1].LatencyMs)
}
