// Package store composes the state holder, query evaluator, action executor
// and subscription registry into a StoreV1 implementation.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/gxo-labs/statekit/internal/action"
	internalevents "github.com/gxo-labs/statekit/internal/events"
	"github.com/gxo-labs/statekit/internal/logger"
	"github.com/gxo-labs/statekit/internal/metrics"
	"github.com/gxo-labs/statekit/internal/query"
	"github.com/gxo-labs/statekit/internal/state"
	"github.com/gxo-labs/statekit/internal/subscription"
	"github.com/gxo-labs/statekit/internal/tracing"
	"github.com/gxo-labs/statekit/internal/util"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
	"github.com/gxo-labs/statekit/pkg/statekit/v1/events"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
	skmetrics "github.com/gxo-labs/statekit/pkg/statekit/v1/metrics"
	sktracing "github.com/gxo-labs/statekit/pkg/statekit/v1/tracing"
)

// Store implements sk.StoreV1.
type Store struct {
	id   string
	name string
	def  sk.Definition

	// Set through options before build.
	log             sklog.Logger
	bus             events.Bus
	metricsProvider skmetrics.RegistryProvider
	tracerProvider  sktracing.TracerProvider
	accessMode      sk.AccessMode
	memoize         bool
	overrides       map[string]interface{}
	hooks           []sk.ActionHook
	built           bool

	holder     *state.Holder
	queries    *query.Evaluator
	actions    *action.Executor
	subs       *subscription.Registry
	collectors *metrics.StoreCollectors
	tracer     trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc

	// closeMu is held for reading across each commit, so no commit lands
	// after Close returns.
	closeMu sync.RWMutex
	closed  atomic.Bool
}

var _ sk.StoreV1 = (*Store)(nil)

// New validates def, applies opts and builds the store.
func New(log sklog.Logger, def sk.Definition, opts ...sk.StoreOption) (*Store, error) {
	if log == nil {
		return nil, skerrors.NewConfigError("store requires a non-nil logger", nil)
	}
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}

	s := &Store{
		id:         uuid.NewString(),
		name:       def.Name,
		def:        def,
		accessMode: sk.AccessDeepCopy,
	}
	if s.name == "" {
		s.name = defaultStoreName
	}
	s.log = log

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) build() error {
	s.log = s.log.With("component", "Store", "store", s.name, "store_id", s.id)
	if s.bus == nil {
		s.bus = internalevents.NewNoOpEventBus()
	}
	if s.metricsProvider == nil {
		s.metricsProvider = metrics.NewPrometheusRegistryProvider()
	}
	if s.tracerProvider == nil {
		s.tracerProvider = tracing.NewGlobalProvider()
	}

	fields, err := s.initialFields()
	if err != nil {
		return err
	}
	if s.holder, err = state.New(fields); err != nil {
		return err
	}
	if s.collectors, err = metrics.NewStoreCollectors(s.metricsProvider.Registry()); err != nil {
		return skerrors.NewConfigError("registering store metrics", err)
	}
	s.tracer = s.tracerProvider.GetTracer(tracing.TracerName)

	s.queries = query.New(s.name, s.def.Queries)
	s.queries.SetMemoize(s.memoize)
	s.queries.SetObserver(func(name string, cached bool) {
		s.collectors.ObserveQuery(s.name, name, cached)
	})

	s.subs = subscription.NewRegistry(s.onSubscriberFailure)

	s.actions = action.New(s.name, source{s}, s.def.Actions)
	s.actions.AddHook(&instrumentation{store: s})
	for _, h := range s.hooks {
		s.actions.AddHook(h)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.built = true

	s.emit(events.Event{Type: events.StoreCreated, Payload: map[string]interface{}{
		"fields":  s.holder.Snapshot().Len(),
		"queries": len(s.def.Queries),
		"actions": len(s.def.Actions),
	}})
	s.log.Debugf("Store created with %d fields, %d queries, %d actions",
		s.holder.Snapshot().Len(), len(s.def.Queries), len(s.def.Actions))
	return nil
}

// initialFields applies initial-state overrides to the declared fields.
func (s *Store) initialFields() ([]sk.Field, error) {
	fields := make([]sk.Field, len(s.def.State))
	copy(fields, s.def.State)
	if len(s.overrides) == 0 {
		return fields, nil
	}

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	for _, name := range sortedKeys(s.overrides) {
		i, ok := index[name]
		if !ok {
			return nil, skerrors.NewUnknownNameError(skerrors.KindField, name, s.name)
		}
		v, err := coerce(name, fields[i].Value, s.overrides[name])
		if err != nil {
			return nil, err
		}
		fields[i].Value = v
	}
	return fields, nil
}

// --- Identity & Introspection ---

func (s *Store) ID() string   { return s.id }
func (s *Store) Name() string { return s.name }

func (s *Store) Fields() []string      { return s.holder.Snapshot().Names() }
func (s *Store) QueryNames() []string  { return s.queries.Names() }
func (s *Store) ActionNames() []string { return s.actions.Names() }

// --- Read Accessors ---

// State returns the current snapshot, deep-copied unless the store uses
// unsafe direct references.
func (s *Store) State() sk.Snapshot {
	snap := s.holder.Snapshot()
	if s.accessMode == sk.AccessDirectReference {
		return snap
	}
	return snap.Transform(func(_ string, v interface{}) interface{} {
		return util.DeepCopy(v)
	})
}

// Get returns the current value of field.
func (s *Store) Get(field string) (interface{}, error) {
	v, ok := s.holder.Snapshot().Get(field)
	if !ok {
		return nil, skerrors.NewUnknownNameError(skerrors.KindField, field, s.name)
	}
	return s.out(v), nil
}

// Query evaluates the named query against the current snapshot.
func (s *Store) Query(name string) (interface{}, error) {
	v, err := s.queries.Evaluate(name, s.holder.Snapshot())
	if err != nil {
		return nil, err
	}
	return s.out(v), nil
}

func (s *Store) out(v interface{}) interface{} {
	if s.accessMode == sk.AccessDirectReference {
		return v
	}
	return util.DeepCopy(v)
}

// --- Actions ---

// Invoke runs the named action on the calling goroutine. The action context
// is cancelled when ctx is done or when the store is closed.
func (s *Store) Invoke(ctx context.Context, name string, args ...interface{}) error {
	if s.closed.Load() {
		return skerrors.ErrStoreClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	return s.actions.Invoke(ctx, name, args...)
}

// InvokeAsync runs Invoke on a new goroutine.
func (s *Store) InvokeAsync(ctx context.Context, name string, args ...interface{}) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- s.Invoke(ctx, name, args...)
	}()
	return result
}

// dispatch commits one field change and runs the notification pass.
func (s *Store) dispatch(ctx context.Context, field string, value interface{}) error {
	s.closeMu.RLock()
	if s.closed.Load() {
		s.closeMu.RUnlock()
		return skerrors.ErrStoreClosed
	}
	_, next, err := s.holder.ReplaceFunc(field, value, func(prev, next sk.Snapshot) {
		old, _ := prev.Get(field)
		s.subs.Enqueue(sk.Change{
			Store:    s.name,
			Field:    field,
			Value:    value,
			Previous: old,
			Version:  next.Version(),
			State:    next,
		})
	})
	s.closeMu.RUnlock()
	if err != nil {
		return skerrors.NewUnknownNameError(skerrors.KindField, field, s.name)
	}

	s.collectors.Dispatches.WithLabelValues(s.name, field).Inc()
	trace.SpanFromContext(ctx).AddEvent(tracing.EventDispatch,
		trace.WithAttributes(tracing.DispatchAttributes(field, next.Version())...))
	s.emit(events.Event{Type: events.StateDispatched, Field: field, Payload: map[string]interface{}{
		"version": next.Version(),
	}})
	if s.log.IsEnabled(slog.LevelDebug) {
		s.log.LogCtx(ctx, slog.LevelDebug, "State dispatched", "field", field, "version", next.Version())
	}

	s.subs.Drain()
	return nil
}

// --- Subscriptions ---

// Subscribe registers fn for every dispatch. A nil fn, or a closed store,
// yields an inert subscription.
func (s *Store) Subscribe(fn sk.Subscriber) sk.Unsubscribe {
	if fn == nil {
		return func() {}
	}
	return s.subscribe(fn)
}

// SubscribeFields registers fn for dispatches to the given fields only.
func (s *Store) SubscribeFields(fn sk.Subscriber, fields ...string) (sk.Unsubscribe, error) {
	if fn == nil {
		return nil, skerrors.NewValidationError("subscriber cannot be nil", nil)
	}
	snap := s.holder.Snapshot()
	if err := subscription.ValidateFields(fields, snap.Has, s.name); err != nil {
		return nil, err
	}
	return s.subscribe(fn, fields...), nil
}

func (s *Store) subscribe(fn sk.Subscriber, fields ...string) sk.Unsubscribe {
	id, unsub := s.subs.Subscribe(fn, fields...)
	s.updateSubscriberGauge()
	s.log.Debugf("Subscription %s added", id)
	return func() {
		unsub()
		s.updateSubscriberGauge()
	}
}

func (s *Store) updateSubscriberGauge() {
	s.collectors.Subscribers.WithLabelValues(s.name).Set(float64(s.subs.Count()))
}

func (s *Store) onSubscriberFailure(err *skerrors.SubscriberError) {
	s.collectors.SubscriberFailures.WithLabelValues(s.name).Inc()
	s.emit(events.Event{Type: events.SubscriberFailed, Field: err.Field, Payload: map[string]interface{}{
		"subscription_id": err.SubscriptionID,
		"error":           err.Cause.Error(),
	}})
	s.log.Errorf("Subscriber failed during notification: %v", err)
}

// --- Lifecycle ---

// Close cancels action contexts, drops subscribers and rejects later
// dispatches and invocations. It is idempotent.
func (s *Store) Close() error {
	s.closeMu.Lock()
	if s.closed.Load() {
		s.closeMu.Unlock()
		return nil
	}
	s.closed.Store(true)
	s.closeMu.Unlock()

	s.cancel()
	s.subs.Close()
	s.updateSubscriberGauge()
	s.emit(events.Event{Type: events.StoreClosed})
	s.log.Debugf("Store closed")
	return nil
}

func (s *Store) emit(e events.Event) {
	e.StoreName = s.name
	e.StoreID = s.id
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}
	s.bus.Emit(e)
}

// --- Option setters ---

func (s *Store) checkUnbuilt(what string) error {
	if s.built {
		return skerrors.NewConfigError(fmt.Sprintf("%s can only be set while the store is being created", what), nil)
	}
	return nil
}

func (s *Store) SetLogger(log sklog.Logger) error {
	if err := s.checkUnbuilt("logger"); err != nil {
		return err
	}
	if log == nil {
		return skerrors.NewConfigError("logger cannot be nil", nil)
	}
	s.log = log
	return nil
}

func (s *Store) SetEventBus(bus events.Bus) error {
	if err := s.checkUnbuilt("event bus"); err != nil {
		return err
	}
	s.bus = bus
	return nil
}

func (s *Store) SetMetricsRegistryProvider(provider skmetrics.RegistryProvider) error {
	if err := s.checkUnbuilt("metrics registry provider"); err != nil {
		return err
	}
	s.metricsProvider = provider
	return nil
}

func (s *Store) SetTracerProvider(provider sktracing.TracerProvider) error {
	if err := s.checkUnbuilt("tracer provider"); err != nil {
		return err
	}
	s.tracerProvider = provider
	return nil
}

func (s *Store) SetAccessMode(mode sk.AccessMode) error {
	if err := s.checkUnbuilt("access mode"); err != nil {
		return err
	}
	if !mode.Valid() {
		return skerrors.NewConfigError(fmt.Sprintf("invalid access mode '%s'", mode), nil)
	}
	s.accessMode = mode
	return nil
}

func (s *Store) SetQueryMemoization(enabled bool) error {
	if err := s.checkUnbuilt("query memoization"); err != nil {
		return err
	}
	s.memoize = enabled
	return nil
}

// SetInitialState merges values into the pending initial-state overrides.
// They are checked against the declared fields when the store is built.
func (s *Store) SetInitialState(values map[string]interface{}) error {
	if err := s.checkUnbuilt("initial state"); err != nil {
		return err
	}
	if s.overrides == nil {
		s.overrides = make(map[string]interface{}, len(values))
	}
	for k, v := range values {
		s.overrides[k] = v
	}
	return nil
}

func (s *Store) AddActionHook(hook sk.ActionHook) error {
	if err := s.checkUnbuilt("action hooks"); err != nil {
		return err
	}
	s.hooks = append(s.hooks, hook)
	return nil
}

// source is the view of the store the action executor works against. Values
// it hands out are not copied.
type source struct{ s *Store }

func (src source) Snapshot() sk.Snapshot { return src.s.holder.Snapshot() }

func (src source) Bind(snap sk.Snapshot) sk.QueryResults { return src.s.queries.Bind(snap) }

func (src source) Dispatch(ctx context.Context, field string, value interface{}) error {
	return src.s.dispatch(ctx, field, value)
}

// DefaultLogger returns the logger used by stores built without WithLogger.
func DefaultLogger() sklog.Logger {
	return logger.NewDefaultLogger("warn")
}
