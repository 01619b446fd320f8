package testutil

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured slog record with its attributes flattened.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type logBuffer struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogRecorder is a slog.Handler that keeps every record in memory.
// Loggers derived with With share the recorder's buffer.
type LogRecorder struct {
	buf   *logBuffer
	attrs []slog.Attr
}

// NewTestLogger returns a logger whose output can be inspected by the test.
func NewTestLogger(t testing.TB) (*slog.Logger, *LogRecorder) {
	t.Helper()
	rec := &LogRecorder{buf: &logBuffer{}}
	return slog.New(rec), rec
}

func (h *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.buf.mu.Lock()
	h.buf.records = append(h.buf.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.buf.mu.Unlock()
	return nil
}

func (h *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogRecorder{buf: h.buf, attrs: append(slices.Clip(h.attrs), attrs...)}
}

// WithGroup flattens groups into the top level.
func (h *LogRecorder) WithGroup(string) slog.Handler { return h }

// GetRecords returns a snapshot of the captured records.
func (h *LogRecorder) GetRecords() []LogRecord {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	return slices.Clone(h.buf.records)
}

func (h *LogRecorder) Count() int {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	return len(h.buf.records)
}

// ContainsMessage reports whether any record message contains substr.
func (h *LogRecorder) ContainsMessage(substr string) bool {
	return slices.ContainsFunc(h.GetRecords(), func(r LogRecord) bool {
		return strings.Contains(r.Message, substr)
	})
}

// ContainsAttr reports whether any record carries key=value.
func (h *LogRecorder) ContainsAttr(key string, value any) bool {
	return slices.ContainsFunc(h.GetRecords(), func(r LogRecord) bool {
		v, ok := r.Attrs[key]
		return ok && v == value
	})
}
