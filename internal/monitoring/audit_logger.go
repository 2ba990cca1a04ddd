// Package monitoring records an audit trail of answered assistant queries.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
)

// AuditEvent describes one answered message. The raw message text is never
// recorded.
type AuditEvent struct {
	ID          uuid.UUID `json:"id"`
	RequestID   string    `json:"request_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Intent      string    `json:"intent"`
	Strategy    string    `json:"strategy,omitempty"`
	ResultCount int       `json:"result_count"`
	Degraded    bool      `json:"degraded,omitempty"`
	Outcome     string    `json:"outcome"`
	LatencyMs   int64     `json:"latency_ms"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Outcomes.
const (
	OutcomeAnswered  = "answered"
	OutcomeEmpty     = "empty"
	OutcomeForbidden = "forbidden"
	OutcomeError     = "error"
)

// Sink receives audit events.
type Sink interface {
	Write(ctx context.Context, event AuditEvent) error
	Close() error
}

// AuditLogger fans events out to its sinks. Sink failures are logged and
// never reach the caller.
type AuditLogger struct {
	logger *observability.Logger
	sinks  []Sink
}

// NewAuditLogger creates an audit logger.
func NewAuditLogger(logger *observability.Logger, sinks ...Sink) *AuditLogger {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AuditLogger{logger: logger.WithComponent("audit"), sinks: sinks}
}

// Record stamps the event and hands it to every sink.
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if a == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = observability.RequestIDFromContext(ctx)
	}

	for _, sink := range a.sinks {
		if err := sink.Write(ctx, event); err != nil {
			a.logger.WithContext(ctx).Warn().
				Err(err).
				Str("event_id", event.ID.String()).
				Msg("Audit sink write failed")
		}
	}
}

// Close closes every sink and returns the first error.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	var first error
	for _, sink := range a.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LogSink writes events to the structured logger.
type LogSink struct {
	logger *observability.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger *observability.Logger) *LogSink {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(_ context.Context, event AuditEvent) error {
	s.logger.Info().
		Str("event_id", event.ID.String()).
		Str("request_id", event.RequestID).
		Str("user_id", event.UserID).
		Str("intent", event.Intent).
		Str("strategy", event.Strategy).
		Int("result_count", event.ResultCount).
		Bool("degraded", event.Degraded).
		Str("outcome", event.Outcome).
		Int64("latency_ms", event.LatencyMs).
		Msg("Audit event")
	return nil
}

func (s *LogSink) Close() error { return nil }

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Async   bool
}

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON, keyed by event id.
type KafkaSink struct {
	writer MessageWriter
}

// NewKafkaSink creates a sink backed by a kafka-go writer.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink: topic is required")
	}
	return NewKafkaSinkFrom(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        cfg.Async,
	}), nil
}

// NewKafkaSinkFrom wraps an existing writer.
func NewKafkaSinkFrom(w MessageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

func (s *KafkaSink) Write(ctx context.Context, event AuditEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.ID.String()),
		Value: value,
		Time:  event.OccurredAt,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
