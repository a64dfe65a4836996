package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TracerProvider defines the interface for accessing the tracer used by stores.
// It lets embedding applications integrate store spans with their existing
// OpenTelemetry setup.
type TracerProvider interface {
	// GetTracer returns a Tracer with the given name and options.
	GetTracer(name string, opts ...trace.TracerOption) trace.Tracer

	// Shutdown flushes buffered spans and releases exporter resources.
	// It is a no-op for providers that do not export.
	Shutdown(ctx context.Context) error
}
