// Package observability carries the shop assistant's structured logging and
// the request id that ties a chat turn's log lines together.
package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const defaultService = "shop-assistant"

// Logger is a zerolog logger that knows about request ids and pipeline
// components. Every line carries the service name and a timestamp.
type Logger struct {
	zl zerolog.Logger
}

// LogConfig selects level, encoding and destination. Format is "json"
// (default) or "console"; Output defaults to stdout.
type LogConfig struct {
	Level       string
	Format      string
	Output      io.Writer
	ServiceName string
}

func NewLogger(cfg LogConfig) *Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	service := cfg.ServiceName
	if service == "" {
		service = defaultService
	}

	// level lives on the logger, not the zerolog global, so tests can run
	// several loggers side by side
	zl := zerolog.New(out).Level(parseLevel(cfg.Level)).With().
		Timestamp().
		Str("service", service).
		Logger()
	return &Logger{zl: zl}
}

// NopLogger discards everything. Tests and library callers without a logger
// use it.
func NopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Debug() *LogEvent { return l.event(l.zl.Debug()) }
func (l *Logger) Info() *LogEvent  { return l.event(l.zl.Info()) }
func (l *Logger) Warn() *LogEvent  { return l.event(l.zl.Warn()) }
func (l *Logger) Error() *LogEvent { return l.event(l.zl.Error()) }

// Fatal exits the process once the event is sent. Only the entry points
// use it.
func (l *Logger) Fatal() *LogEvent { return l.event(l.zl.Fatal()) }

func (l *Logger) event(evt *zerolog.Event) *LogEvent {
	return &LogEvent{evt: evt}
}

// WithContext tags lines with the chat turn's request id when ctx has one.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	id := RequestIDFromContext(ctx)
	if id == "" {
		return l
	}
	return l.with("request_id", id)
}

// WithComponent tags lines with the pipeline stage that wrote them
// ("chat", "retrieval", "orders", "audit").
func (l *Logger) WithComponent(name string) *Logger {
	return l.with("component", name)
}

func (l *Logger) with(key, val string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, val).Logger()}
}

// LogEvent is a line being built. Only the field kinds the assistant logs
// are exposed.
type LogEvent struct {
	evt *zerolog.Event
}

func (e *LogEvent) Str(key, val string) *LogEvent {
	e.evt = e.evt.Str(key, val)
	return e
}

func (e *LogEvent) Int(key string, val int) *LogEvent {
	e.evt = e.evt.Int(key, val)
	return e
}

func (e *LogEvent) Int64(key string, val int64) *LogEvent {
	e.evt = e.evt.Int64(key, val)
	return e
}

func (e *LogEvent) Bool(key string, val bool) *LogEvent {
	e.evt = e.evt.Bool(key, val)
	return e
}

func (e *LogEvent) Dur(key string, val time.Duration) *LogEvent {
	e.evt = e.evt.Dur(key, val)
	return e
}

func (e *LogEvent) Err(err error) *LogEvent {
	e.evt = e.evt.Err(err)
	return e
}

// Interface logs val as JSON; used for criteria and other structured values.
func (e *LogEvent) Interface(key string, val interface{}) *LogEvent {
	e.evt = e.evt.Interface(key, val)
	return e
}

func (e *LogEvent) Msg(msg string) {
	e.evt.Msg(msg)
}

// parseLevel accepts zerolog's level names plus "warning" and "off"; anything
// else logs at info.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "warning":
		return zerolog.WarnLevel
	case "off":
		return zerolog.Disabled
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

type requestIDKey struct{}

// ContextWithRequestID stores the request id the API assigns to a chat turn.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the stored request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
