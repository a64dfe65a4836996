package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("Warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", "json", &buf)

	log.Infof("hidden %d", 1)
	assert.Zero(t, buf.Len())
	assert.False(t, log.IsEnabled(slog.LevelInfo))

	log.Warnf("shown %d", 2)
	entry := decodeLine(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "shown 2", entry["msg"])
}

func TestLogger_ErrorfAddsActionAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "json", &buf).With("store", "counter")

	err := skerrors.NewActionError("increment", errors.New("boom"))
	log.Errorf("invocation failed: %v", err)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "counter", entry["store"])
	assert.Equal(t, "ActionError", entry["error_type"])
	assert.Equal(t, "increment", entry["action"])
	assert.Equal(t, err.Error(), entry["error"])
}

func TestLogger_ErrorfSubscriberAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "json", &buf)

	log.Errorf("subscriber failed: %v", skerrors.NewSubscriberError("sub-1", "count", errors.New("x")))
	entry := decodeLine(t, &buf)
	assert.Equal(t, "SubscriberError", entry["error_type"])
	assert.Equal(t, "sub-1", entry["subscription_id"])
	assert.Equal(t, "count", entry["field"])
}

func TestOtelHandler_InjectsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "json", &buf)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	log.LogCtx(ctx, slog.LevelInfo, "traced")
	entry := decodeLine(t, &buf)
	assert.Equal(t, traceID.String(), entry["trace_id"])
	assert.Equal(t, spanID.String(), entry["span_id"])
}
