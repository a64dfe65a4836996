package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
)

// Default log level if not specified or invalid.
const defaultLevel = slog.LevelInfo

// ParseLevel converts common log level strings (case-insensitive) to slog.Level values.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// defaultLogger implements sklog.Logger on top of slog.
type defaultLogger struct {
	*slog.Logger
}

var _ sklog.Logger = (*defaultLogger)(nil)

// NewLogger creates a Logger with the given level, output format ("text" or
// "json") and writer (os.Stderr when nil).
func NewLogger(levelStr string, formatStr string, writer io.Writer) sklog.Logger {
	if writer == nil {
		writer = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(levelStr),
		ReplaceAttr: replaceLevelAttribute,
	}

	var baseHandler slog.Handler
	switch strings.ToLower(formatStr) {
	case "json":
		baseHandler = slog.NewJSONHandler(writer, opts)
	default:
		baseHandler = slog.NewTextHandler(writer, opts)
	}

	return &defaultLogger{Logger: slog.New(NewOtelHandler(baseHandler))}
}

// NewDefaultLogger returns a text logger writing to Stderr.
func NewDefaultLogger(levelStr string) sklog.Logger {
	return NewLogger(levelStr, "text", os.Stderr)
}

// NewDiscardLogger returns a logger that drops every entry.
func NewDiscardLogger() sklog.Logger {
	return NewLogger("error", "text", io.Discard)
}

var levelStringMap = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

// replaceLevelAttribute renders the level attribute as an uppercase string.
func replaceLevelAttribute(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	levelStr, exists := levelStringMap[level]
	if !exists {
		levelStr = level.String()
	}
	a.Value = slog.StringValue(levelStr)
	return a
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.logf(slog.LevelDebug, format, args...)
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.logf(slog.LevelInfo, format, args...)
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.logf(slog.LevelWarn, format, args...)
}

// Errorf logs at ERROR. When the last argument is an error, its statekit
// details (action, subscription, query, name kind) are added as attributes.
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.logf(slog.LevelError, format, args...)
}

func (l *defaultLogger) logf(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !l.Logger.Enabled(ctx, level) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	var attrs []any
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			attrs = ErrorAttrs(err)
		}
	}
	l.Logger.Log(ctx, level, msg, attrs...)
}

// ErrorAttrs returns structured slog attributes describing err.
func ErrorAttrs(err error) []any {
	if err == nil {
		return nil
	}
	var (
		attrs     []any
		actionErr *skerrors.ActionError
		subErr    *skerrors.SubscriberError
		queryErr  *skerrors.QueryError
		nameErr   *skerrors.UnknownNameError
	)
	switch {
	case errors.As(err, &actionErr):
		attrs = append(attrs, slog.String("error_type", "ActionError"), slog.String("action", actionErr.Action))
	case errors.As(err, &subErr):
		attrs = append(attrs,
			slog.String("error_type", "SubscriberError"),
			slog.String("subscription_id", subErr.SubscriptionID),
			slog.String("field", subErr.Field))
	case errors.As(err, &queryErr):
		attrs = append(attrs, slog.String("error_type", "QueryError"), slog.String("query", queryErr.Query))
	case errors.As(err, &nameErr):
		attrs = append(attrs, slog.String("error_type", "UnknownNameError"), slog.String("kind", nameErr.Kind), slog.String("name", nameErr.Name))
	}
	return append(attrs, slog.String("error", err.Error()))
}

func (l *defaultLogger) Log(level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(context.Background(), level, msg, args...)
}

// LogCtx logs with ctx so the OtelHandler can attach trace and span IDs.
func (l *defaultLogger) LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(ctx, level, msg, args...)
}

func (l *defaultLogger) With(args ...interface{}) sklog.Logger {
	return &defaultLogger{Logger: l.Logger.With(args...)}
}

func (l *defaultLogger) IsEnabled(level slog.Level) bool {
	return l.Logger.Enabled(context.Background(), level)
}

// --- OtelHandler for Trace/Span ID Injection ---

// OtelHandler is a slog.Handler middleware that adds trace_id and span_id
// attributes when the logging context carries a valid span.
type OtelHandler struct {
	next slog.Handler
}

// NewOtelHandler creates a new OtelHandler wrapping the provided handler.
func NewOtelHandler(next slog.Handler) *OtelHandler {
	return &OtelHandler{next: next}
}

func (h *OtelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *OtelHandler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		record.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h *OtelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewOtelHandler(h.next.WithAttrs(attrs))
}

func (h *OtelHandler) WithGroup(name string) slog.Handler {
	return NewOtelHandler(h.next.WithGroup(name))
}
