package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

// RecordStore persists audit records.
type RecordStore interface {
	InsertAuditRecords(ctx context.Context, records []storage.AuditRecord) error
}

// DBSinkConfig configures the database sink.
type DBSinkConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// DBSink buffers events and writes them to the database in batches from a
// single background goroutine. When the buffer is full Write falls back to a
// synchronous insert.
type DBSink struct {
	logger *observability.Logger
	store  RecordStore
	config DBSinkConfig
	buffer chan AuditEvent
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewDBSink creates a database sink and starts its flush loop.
func NewDBSink(logger *observability.Logger, store RecordStore, config DBSinkConfig) *DBSink {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}

	s := &DBSink{
		logger: logger.WithComponent("audit_db"),
		store:  store,
		config: config,
		buffer: make(chan AuditEvent, config.BufferSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.runFlushLoop()
	return s
}

func (s *DBSink) Write(ctx context.Context, event AuditEvent) error {
	select {
	case <-s.stopCh:
		return s.store.InsertAuditRecords(ctx, []storage.AuditRecord{toRecord(event)})
	default:
	}

	select {
	case s.buffer <- event:
		return nil
	default:
		s.logger.Warn().Msg("Audit buffer full, writing synchronously")
		return s.store.InsertAuditRecords(ctx, []storage.AuditRecord{toRecord(event)})
	}
}

// Close stops the flush loop after writing whatever is buffered.
func (s *DBSink) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	<-s.done
	return nil
}

func (s *DBSink) runFlushLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	var batch []AuditEvent
	for {
		select {
		case event := <-s.buffer:
			batch = append(batch, event)
			if len(batch) >= s.config.BatchSize {
				s.flushBatch(batch)
				batch = nil
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = nil
			}
		case <-s.stopCh:
			for {
				select {
				case event := <-s.buffer:
					batch = append(batch, event)
				default:
					if len(batch) > 0 {
						s.flushBatch(batch)
					}
					return
				}
			}
		}
	}
}

func (s *DBSink) flushBatch(batch []AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records := make([]storage.AuditRecord, len(batch))
	for i, event := range batch {
		records[i] = toRecord(event)
	}

	if err := s.store.InsertAuditRecords(ctx, records); err != nil {
		s.logger.Error().Err(err).Int("count", len(batch)).Msg("Failed to flush audit batch")
		return
	}
	s.logger.Debug().Int("count", len(batch)).Msg("Flushed audit batch")
}

func toRecord(event AuditEvent) storage.AuditRecord {
	return storage.AuditRecord{
		ID:          event.ID.String(),
		RequestID:   event.RequestID,
		UserID:      event.UserID,
		Intent:      event.Intent,
		Strategy:    event.Strategy,
		ResultCount: event.ResultCount,
		Degraded:    event.Degraded,
		Outcome:     event.Outcome,
		LatencyMs:   event.LatencyMs,
		OccurredAt:  event.OccurredAt,
	}
}
