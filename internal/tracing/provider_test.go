package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/gxo-labs/statekit/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "two"}, parseHeaders(" a=1, b = two ,broken,=x"))
	assert.Empty(t, parseHeaders(""))
}

func TestParseTimeout(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, parseTimeout("1500", time.Second))
	assert.Equal(t, 3*time.Second, parseTimeout("3s", time.Second))
	assert.Equal(t, time.Second, parseTimeout("-5", time.Second))
	assert.Equal(t, time.Second, parseTimeout("soon", time.Second))
}

func TestNewProviderFromEnv_DisabledFallsBackToNoOp(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")
	p, err := NewProviderFromEnv(context.Background(), logger.NewDiscardLogger())
	require.NoError(t, err)
	assert.True(t, p.IsEffectivelyNoOp())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderFromEnv_UnconfiguredIsNoOp(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")
	p, err := NewProviderFromEnv(context.Background(), logger.NewDiscardLogger())
	require.NoError(t, err)
	assert.True(t, p.IsEffectivelyNoOp())
}

func TestRecordError_MarksSpanFailed(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	p := NewSDKProvider(tp)
	assert.False(t, p.IsEffectivelyNoOp())

	_, span := p.GetTracer(TracerName).Start(context.Background(), SpanActionInvoke)
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestGlobalProvider_FollowsInstalledProvider(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	p := NewGlobalProvider()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	assert.False(t, p.IsEffectivelyNoOp())

	_, span := p.GetTracer(TracerName).Start(context.Background(), SpanActionInvoke)
	span.End()
	require.Len(t, exporter.GetSpans(), 1)
	require.NoError(t, tp.Shutdown(context.Background()))
}
