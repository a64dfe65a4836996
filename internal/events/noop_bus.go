package events

import "github.com/gxo-labs/statekit/pkg/statekit/v1/events"

// NoOpEventBus discards every event. Stores use it when no bus is configured.
type NoOpEventBus struct{}

// NewNoOpEventBus creates a new instance of the NoOpEventBus.
func NewNoOpEventBus() events.Bus {
	return &NoOpEventBus{}
}

func (n *NoOpEventBus) Emit(event events.Event) {}

var _ events.Bus = (*NoOpEventBus)(nil)
