package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of every statekit span.
const TracerName = "github.com/gxo-labs/statekit"

// Span and event names.
const (
	SpanActionInvoke = "statekit.action.invoke"
	EventDispatch    = "statekit.dispatch"
)

// Attribute keys shared by spans and events.
const (
	AttrStore    = attribute.Key("statekit.store")
	AttrStoreID  = attribute.Key("statekit.store_id")
	AttrAction   = attribute.Key("statekit.action")
	AttrArgCount = attribute.Key("statekit.action.arg_count")
	AttrField    = attribute.Key("statekit.field")
	AttrVersion  = attribute.Key("statekit.version")
)

// ActionAttributes describes one invocation.
func ActionAttributes(store, storeID, action string, argCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrStore.String(store),
		AttrStoreID.String(storeID),
		AttrAction.String(action),
		AttrArgCount.Int(argCount),
	}
}

// DispatchAttributes describes one committed dispatch. Field values are
// never recorded.
func DispatchAttributes(field string, version uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrField.String(field),
		AttrVersion.Int64(int64(version)),
	}
}

// RecordError records err on span and marks the span as failed. It does
// nothing when err is nil or the span is not recording.
func RecordError(span oteltrace.Span, err error) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err, oteltrace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
}
