// Package action runs the named operations of a store.
package action

import (
	"context"
	"sort"
	"sync"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// Source is the store side of an invocation: where the starting snapshot,
// its query bindings and dispatches come from.
type Source interface {
	Snapshot() sk.Snapshot
	Bind(snap sk.Snapshot) sk.QueryResults
	// Dispatch commits one field change on behalf of the invocation ctx.
	Dispatch(ctx context.Context, field string, value interface{}) error
}

// Executor resolves action names and runs them with hooks around each call.
type Executor struct {
	store   string
	source  Source
	actions map[string]sk.ActionFunc
	names   []string

	mu    sync.RWMutex
	hooks []sk.ActionHook
}

// New creates an Executor over actions. The map is copied.
func New(store string, source Source, actions map[string]sk.ActionFunc) *Executor {
	e := &Executor{
		store:   store,
		source:  source,
		actions: make(map[string]sk.ActionFunc, len(actions)),
	}
	for name, fn := range actions {
		e.actions[name] = fn
		e.names = append(e.names, name)
	}
	sort.Strings(e.names)
	return e
}

// AddHook appends a hook. Hooks run BeforeAction in insertion order and
// AfterAction in reverse order.
func (e *Executor) AddHook(hook sk.ActionHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, hook)
}

// Names returns the registered action names, sorted.
func (e *Executor) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Invoke runs the named action. An unknown name is returned as an
// UnknownNameError without running any hook. Every other failure, including
// a panic or a rejecting hook, is returned as an ActionError. Dispatches the
// action made before failing are kept.
func (e *Executor) Invoke(ctx context.Context, name string, args ...interface{}) error {
	fn, ok := e.actions[name]
	if !ok {
		return skerrors.NewUnknownNameError(skerrors.KindAction, name, e.store)
	}

	snap := e.source.Snapshot()
	var c *sk.Context
	c = sk.NewContext(ctx, name, snap, e.source.Bind(snap), func(field string, value interface{}) error {
		return e.source.Dispatch(c, field, value)
	})

	e.mu.RLock()
	hooks := make([]sk.ActionHook, len(e.hooks))
	copy(hooks, e.hooks)
	e.mu.RUnlock()

	ran := 0
	var err error
	for _, h := range hooks {
		if err = h.BeforeAction(c, args); err != nil {
			break
		}
		ran++
	}
	if err == nil {
		err = call(fn, c, args)
	}
	if err != nil {
		err = skerrors.NewActionError(name, err)
	}
	// A hook that rejected the call still gets its AfterAction.
	if ran < len(hooks) {
		ran++
	}
	for i := ran - 1; i >= 0; i-- {
		hooks[i].AfterAction(c, err)
	}
	return err
}

func call(fn sk.ActionFunc, c *sk.Context, args []interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &skerrors.PanicError{Value: r}
		}
	}()
	return fn(c, args...)
}
