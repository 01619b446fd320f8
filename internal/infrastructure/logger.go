package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"qajalicense/internal/config"
)

type traceKey struct{}

// process-wide logger installed by InitializeLogger
var logState struct {
	sync.Mutex
	logger *slog.Logger
	file   *os.File
}

// InitializeLogger builds the JSON logger described by cfg and installs it
// as the slog default. Later calls return the logger from the first one.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	logState.Lock()
	defer logState.Unlock()
	if logState.logger != nil {
		return logState.logger, nil
	}

	var out io.Writer = os.Stdout
	switch mode := strings.ToLower(cfg.Output); mode {
	case "file", "both":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		logState.file = f
		out = f
		if mode == "both" {
			out = io.MultiWriter(os.Stdout, f)
		}
	}

	logState.logger = NewLogger(out, cfg.Level)
	slog.SetDefault(logState.logger)
	return logState.logger, nil
}

// NewLogger returns a JSON logger that stamps trace_id from the record context.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(traceHandler{slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLogLevel(level),
	})})
}

// GetLogger returns the installed logger or slog.Default before initialization.
func GetLogger() *slog.Logger {
	logState.Lock()
	defer logState.Unlock()
	if logState.logger == nil {
		return slog.Default()
	}
	return logState.logger
}

// CloseLogFile flushes and closes the log file, if logging to one.
func CloseLogFile() error {
	logState.Lock()
	defer logState.Unlock()
	if logState.file == nil {
		return nil
	}
	err := logState.file.Close()
	logState.file = nil
	return err
}

// ResetLoggerForTesting forgets the installed logger.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	logState.Lock()
	logState.logger = nil
	logState.Unlock()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := GetTraceID(ctx); id != "" {
			r.AddAttrs(slog.String("trace_id", id))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithTraceID stores the request or job id logged as trace_id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// GetTraceID returns the id stored by WithTraceID, else the active span's trace id.
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceKey{}).(string); ok && id != "" {
		return id
	}
	return TraceIDFromContext(ctx)
}

// EnsureTraceID gives background jobs such as scheduled backups their own id.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, uuid.NewString())
}
