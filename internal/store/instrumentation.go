package store

import (
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/gxo-labs/statekit/internal/logger"
	"github.com/gxo-labs/statekit/internal/tracing"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	"github.com/gxo-labs/statekit/pkg/statekit/v1/events"
)

var now = time.Now

// instrumentation is the first hook of every store. It opens the invocation
// span, and reports logs, metrics and events for each invocation.
type instrumentation struct {
	store    *Store
	inflight sync.Map // *sk.Context -> *invocation
}

type invocation struct {
	start time.Time
	span  trace.Span
}

func (h *instrumentation) BeforeAction(c *sk.Context, args []interface{}) error {
	s := h.store
	ctx, span := s.tracer.Start(c.Context, tracing.SpanActionInvoke,
		trace.WithAttributes(tracing.ActionAttributes(s.name, s.id, c.Action, len(args))...))
	c.Context = ctx
	h.inflight.Store(c, &invocation{start: now(), span: span})

	s.emit(events.Event{Type: events.ActionStarted, Action: c.Action, Payload: map[string]interface{}{
		"version": c.State.Version(),
	}})
	if s.log.IsEnabled(slog.LevelDebug) {
		s.log.LogCtx(ctx, slog.LevelDebug, "Action started", "action", c.Action, "args", len(args))
	}
	return nil
}

func (h *instrumentation) AfterAction(c *sk.Context, err error) {
	s := h.store
	v, ok := h.inflight.LoadAndDelete(c)
	if !ok {
		return
	}
	inv := v.(*invocation)
	elapsed := now().Sub(inv.start)
	defer inv.span.End()

	s.collectors.ObserveAction(s.name, c.Action, elapsed, err != nil)
	if err != nil {
		tracing.RecordError(inv.span, err)
		s.emit(events.Event{Type: events.ActionFailed, Action: c.Action, Payload: map[string]interface{}{
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		}})
		attrs := append([]any{"duration", elapsed}, logger.ErrorAttrs(err)...)
		s.log.LogCtx(c, slog.LevelWarn, "Action failed", attrs...)
		return
	}
	s.emit(events.Event{Type: events.ActionCompleted, Action: c.Action, Payload: map[string]interface{}{
		"duration_ms": elapsed.Milliseconds(),
	}})
	if s.log.IsEnabled(slog.LevelDebug) {
		s.log.LogCtx(c, slog.LevelDebug, "Action completed", "action", c.Action, "duration", elapsed)
	}
}
