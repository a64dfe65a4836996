// Package container holds at most one store for an explicit scope and walks
// it through the uninitialized, created and released states.
package container

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
)

const (
	eventCreate  = "create"
	eventRelease = "release"
)

// Factory builds the contained store.
type Factory func(ctx context.Context) (sk.StoreV1, error)

// Container implements sk.Container.
type Container struct {
	mu      sync.Mutex
	machine *fsm.FSM
	factory Factory
	store   sk.StoreV1
	log     sklog.Logger
}

var _ sk.Container = (*Container)(nil)

// New returns a container in the uninitialized state.
func New(log sklog.Logger, factory Factory) (*Container, error) {
	if log == nil {
		return nil, skerrors.NewConfigError("container requires a non-nil logger", nil)
	}
	if factory == nil {
		return nil, skerrors.NewConfigError("container requires a non-nil store factory", nil)
	}
	c := &Container{factory: factory, log: log.With("component", "container")}
	c.machine = fsm.NewFSM(
		string(sk.ContainerUninitialized),
		fsm.Events{
			{Name: eventCreate, Src: []string{string(sk.ContainerUninitialized)}, Dst: string(sk.ContainerCreated)},
			{Name: eventRelease, Src: []string{string(sk.ContainerUninitialized), string(sk.ContainerCreated)}, Dst: string(sk.ContainerReleased)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.log.Debugf("Container transition '%s': %s -> %s", e.Event, e.Src, e.Dst)
			},
		},
	)
	return c, nil
}

// Status reports the current lifecycle state.
func (c *Container) Status() sk.ContainerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sk.ContainerStatus(c.machine.Current())
}

// Create builds the store. A factory error leaves the container uninitialized.
func (c *Container) Create(ctx context.Context) (sk.StoreV1, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createLocked(ctx)
}

func (c *Container) createLocked(ctx context.Context) (sk.StoreV1, error) {
	switch sk.ContainerStatus(c.machine.Current()) {
	case sk.ContainerCreated:
		return nil, skerrors.ErrAlreadyCreated
	case sk.ContainerReleased:
		return nil, skerrors.ErrReleased
	}

	s, err := c.factory(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, skerrors.NewConfigError("store factory returned a nil store", nil)
	}
	if err := c.transition(ctx, eventCreate); err != nil {
		_ = s.Close()
		return nil, err
	}
	c.store = s
	return s, nil
}

// Get returns the store.
func (c *Container) Get() (sk.StoreV1, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch sk.ContainerStatus(c.machine.Current()) {
	case sk.ContainerUninitialized:
		return nil, skerrors.ErrNotCreated
	case sk.ContainerReleased:
		return nil, skerrors.ErrReleased
	}
	return c.store, nil
}

// GetOrCreate returns the store, building it on first use.
func (c *Container) GetOrCreate(ctx context.Context) (sk.StoreV1, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sk.ContainerStatus(c.machine.Current()) == sk.ContainerCreated {
		return c.store, nil
	}
	return c.createLocked(ctx)
}

// Release closes the store, if any, and retires the container. Releasing
// twice returns ErrReleased.
func (c *Container) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sk.ContainerStatus(c.machine.Current()) == sk.ContainerReleased {
		return skerrors.ErrReleased
	}
	var closeErr error
	if c.store != nil {
		closeErr = c.store.Close()
		c.store = nil
	}
	if err := c.transition(ctx, eventRelease); err != nil {
		return err
	}
	return closeErr
}

// transition fires an event. Cancellation of ctx must not leave the machine
// mid-transition, so the event runs on a context without cancellation.
func (c *Container) transition(ctx context.Context, event string) error {
	if err := c.machine.Event(context.WithoutCancel(ctx), event); err != nil {
		return fmt.Errorf("container transition '%s' from '%s': %w", event, c.machine.Current(), err)
	}
	return nil
}
