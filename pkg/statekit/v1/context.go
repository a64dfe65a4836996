package v1

import (
	"context"
)

// QueryFunc derives a value from a state snapshot. It must not mutate the
// snapshot and must return the same result for the same snapshot.
type QueryFunc func(state Snapshot) interface{}

// ActionFunc is a named operation that reads its Context and issues zero or
// more dispatches. It may block (for example on network I/O) between
// dispatches; it should honour c.Done() while doing so.
type ActionFunc func(c *Context, args ...interface{}) error

// QueryResults exposes query values computed from one snapshot.
type QueryResults interface {
	// Query evaluates the named query. Unknown names yield an UnknownNameError.
	Query(name string) (interface{}, error)
	// Names lists the registered query names in sorted order.
	Names() []string
}

// DispatchFunc replaces the value of one state field.
type DispatchFunc func(field string, value interface{}) error

// Context is handed to every action invocation. It embeds the invocation's
// context.Context, which is cancelled when the caller's context is or when
// the store is closed.
type Context struct {
	context.Context

	// Action is the name the action was invoked under.
	Action string
	// State is the snapshot current when the action was invoked. It does not
	// change while the action runs; read the store again for fresher values.
	State Snapshot
	// Queries is bound to State.
	Queries QueryResults

	dispatch DispatchFunc
}

// NewContext assembles an action Context. It is used by the action executor;
// tests may use it to call action functions directly.
func NewContext(ctx context.Context, action string, state Snapshot, queries QueryResults, dispatch DispatchFunc) *Context {
	return &Context{
		Context:  ctx,
		Action:   action,
		State:    state,
		Queries:  queries,
		dispatch: dispatch,
	}
}

// Dispatch replaces one state field. The change is committed and subscribers
// notified before Dispatch returns, unless a notification pass is already
// running (a dispatch from a subscriber, or a concurrent one). That pass then
// delivers the change after the ones queued before it. Each call is
// independent; nothing is rolled back if the action later fails.
func (c *Context) Dispatch(field string, value interface{}) error {
	if c.dispatch == nil {
		return ErrNoDispatcher
	}
	return c.dispatch(field, value)
}

// Query evaluates a query against the invocation snapshot.
func (c *Context) Query(name string) (interface{}, error) {
	if c.Queries == nil {
		return nil, ErrNoQueries
	}
	return c.Queries.Query(name)
}
