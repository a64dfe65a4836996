package events

import (
	"sync"
	"sync/atomic"

	"github.com/gxo-labs/statekit/pkg/statekit/v1/events"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
)

const defaultBufferSize = 100

// ChannelEventBus implements events.Bus with a buffered channel. Emit never
// blocks: when the buffer is full the event is dropped and counted.
type ChannelEventBus struct {
	channel chan events.Event
	log     sklog.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ events.Bus = (*ChannelEventBus)(nil)

// NewChannelEventBus creates a bus with the given buffer size, or a default
// size when bufferSize is not positive. It panics on a nil logger.
func NewChannelEventBus(bufferSize int, log sklog.Logger) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelEventBus requires a non-nil logger")
	}
	bus := &ChannelEventBus{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelEventBus"),
	}
	bus.log.Debugf("ChannelEventBus initialized with buffer size %d", bufferSize)
	return bus
}

// Emit queues event for consumers. Events emitted after Close are ignored.
func (c *ChannelEventBus) Emit(event events.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.channel <- event:
	default:
		c.dropped.Add(1)
		c.log.Warnf("Event channel buffer full, dropping event type '%s'", event.Type)
	}
}

// GetChannel returns the channel consumers read events from. It is closed
// by Close.
func (c *ChannelEventBus) GetChannel() <-chan events.Event {
	return c.channel
}

// Dropped returns the number of events discarded because the buffer was full.
func (c *ChannelEventBus) Dropped() uint64 {
	return c.dropped.Load()
}

// Close closes the channel. It is safe to call more than once.
func (c *ChannelEventBus) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.channel)
	c.log.Debugf("ChannelEventBus closed")
}
