package v1

import (
	"context"
	"errors"

	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
	"github.com/gxo-labs/statekit/pkg/statekit/v1/events"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
	"github.com/gxo-labs/statekit/pkg/statekit/v1/metrics"
	"github.com/gxo-labs/statekit/pkg/statekit/v1/tracing"
)

var (
	// ErrNoDispatcher is returned by Context.Dispatch on a Context built without one.
	ErrNoDispatcher = errors.New("context has no dispatcher")
	// ErrNoQueries is returned by Context.Query on a Context built without query results.
	ErrNoQueries = errors.New("context has no query results")
)

// Definition declares a store: its initial state, its queries and its actions.
// Query and action names must not collide with state field names or with each other.
type Definition struct {
	// Name identifies the store in logs, metrics and events.
	Name string
	// State lists the fields in record order with their initial values.
	State []Field
	// Queries maps query names to derivation functions.
	Queries map[string]QueryFunc
	// Actions maps action names to operations.
	Actions map[string]ActionFunc
}

// Change describes one applied dispatch as seen by subscribers.
type Change struct {
	Store    string
	Field    string
	Value    interface{}
	Previous interface{}
	// Version is the version of State.
	Version uint64
	// State is the full snapshot produced by this dispatch. Later dispatches
	// may already have been committed by the time a subscriber runs.
	State Snapshot
}

// Subscriber is notified after each dispatch. A returned error or a panic is
// isolated: it is reported but never affects the dispatch or other subscribers.
type Subscriber func(change Change) error

// Unsubscribe removes a subscription. It is idempotent and safe to call from
// inside a subscriber.
type Unsubscribe func()

// ActionHook runs around every action invocation.
type ActionHook interface {
	// BeforeAction runs after the Context is built and before the action.
	// A non-nil error aborts the invocation.
	BeforeAction(c *Context, args []interface{}) error
	// AfterAction runs once the action (or an aborting hook) has finished.
	AfterAction(c *Context, err error)
}

// AccessMode controls how read accessors hand out state values.
type AccessMode string

const (
	// AccessDeepCopy (default) returns deep copies from Get, State and Query,
	// so callers cannot mutate values held by the store.
	AccessDeepCopy AccessMode = "deep_copy"
	// AccessDirectReference returns stored values directly. Callers MUST NOT
	// mutate them.
	AccessDirectReference AccessMode = "unsafe_direct_reference"
)

// Valid reports whether m is a known access mode.
func (m AccessMode) Valid() bool {
	return m == AccessDeepCopy || m == AccessDirectReference
}

// StoreV1 defines the public interface of a store instance.
type StoreV1 interface {
	// ID is a unique identifier of this instance.
	ID() string
	// Name is the definition name.
	Name() string

	// State returns the current snapshot.
	State() Snapshot
	// Get returns the current value of a field.
	Get(field string) (interface{}, error)
	// Query evaluates a query against the current snapshot.
	Query(name string) (interface{}, error)

	// Invoke runs an action synchronously and returns its error, if any.
	Invoke(ctx context.Context, action string, args ...interface{}) error
	// InvokeAsync runs an action on its own goroutine. The returned channel
	// receives exactly one value (nil on success) and is then closed.
	InvokeAsync(ctx context.Context, action string, args ...interface{}) <-chan error

	// Subscribe registers fn for every dispatch.
	Subscribe(fn Subscriber) Unsubscribe
	// SubscribeFields registers fn for dispatches to the given fields only.
	SubscribeFields(fn Subscriber, fields ...string) (Unsubscribe, error)

	Fields() []string
	QueryNames() []string
	ActionNames() []string

	// Close cancels in-flight action contexts, drops all subscribers and
	// rejects every later dispatch and invocation with ErrStoreClosed.
	Close() error

	// Setter methods used by StoreOption values during construction.
	SetLogger(log sklog.Logger) error
	SetEventBus(bus events.Bus) error
	SetMetricsRegistryProvider(provider metrics.RegistryProvider) error
	SetTracerProvider(provider tracing.TracerProvider) error
	SetAccessMode(mode AccessMode) error
	SetQueryMemoization(enabled bool) error
	SetInitialState(values map[string]interface{}) error
	AddActionHook(hook ActionHook) error
}

// StoreOption configures a store at creation.
type StoreOption func(StoreV1) error

// WithLogger replaces the logger given to the store constructor.
func WithLogger(log sklog.Logger) StoreOption {
	return func(s StoreV1) error {
		if log == nil {
			return skerrors.NewConfigError("logger cannot be nil", nil)
		}
		return s.SetLogger(log)
	}
}

// WithEventBus is a store option to publish lifecycle events to bus.
func WithEventBus(bus events.Bus) StoreOption {
	return func(s StoreV1) error {
		if bus == nil {
			return skerrors.NewConfigError("event bus cannot be nil", nil)
		}
		return s.SetEventBus(bus)
	}
}

// WithMetricsRegistryProvider is a store option to register metrics with a custom provider.
func WithMetricsRegistryProvider(provider metrics.RegistryProvider) StoreOption {
	return func(s StoreV1) error {
		if provider == nil {
			return skerrors.NewConfigError("metrics registry provider cannot be nil", nil)
		}
		return s.SetMetricsRegistryProvider(provider)
	}
}

// WithTracerProvider is a store option to trace action invocations.
func WithTracerProvider(provider tracing.TracerProvider) StoreOption {
	return func(s StoreV1) error {
		if provider == nil {
			return skerrors.NewConfigError("tracer provider cannot be nil", nil)
		}
		return s.SetTracerProvider(provider)
	}
}

// WithAccessMode selects how read accessors hand out values.
func WithAccessMode(mode AccessMode) StoreOption {
	return func(s StoreV1) error {
		if !mode.Valid() {
			return skerrors.NewConfigError("invalid access mode '"+string(mode)+"'", nil)
		}
		return s.SetAccessMode(mode)
	}
}

// WithQueryMemoization caches query results per state version.
func WithQueryMemoization(enabled bool) StoreOption {
	return func(s StoreV1) error {
		return s.SetQueryMemoization(enabled)
	}
}

// WithInitialState overrides initial values of declared fields.
func WithInitialState(values map[string]interface{}) StoreOption {
	return func(s StoreV1) error {
		return s.SetInitialState(values)
	}
}

// WithActionHook adds a hook run around every action invocation.
func WithActionHook(hook ActionHook) StoreOption {
	return func(s StoreV1) error {
		if hook == nil {
			return skerrors.NewConfigError("action hook cannot be nil", nil)
		}
		return s.AddActionHook(hook)
	}
}

// ContainerStatus names the lifecycle states of a Container.
type ContainerStatus string

const (
	ContainerUninitialized ContainerStatus = "uninitialized"
	ContainerCreated       ContainerStatus = "created"
	ContainerReleased      ContainerStatus = "released"
)

// Container owns at most one store for a caller-defined scope. It replaces a
// process-wide, lazily assigned store variable with explicit states.
type Container interface {
	// Create builds the store. It fails with ErrAlreadyCreated or ErrReleased.
	Create(ctx context.Context) (StoreV1, error)
	// Get returns the store. It fails with ErrNotCreated or ErrReleased.
	Get() (StoreV1, error)
	// GetOrCreate returns the store, building it on first use.
	GetOrCreate(ctx context.Context) (StoreV1, error)
	// Release closes the store and retires the container.
	Release(ctx context.Context) error
	// Status reports the current lifecycle state.
	Status() ContainerStatus
}
