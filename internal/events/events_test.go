package events

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/statekit/internal/logger"
	"github.com/gxo-labs/statekit/pkg/statekit/v1/events"
)

func TestChannelEventBus_DropsWhenFull(t *testing.T) {
	bus := NewChannelEventBus(1, logger.NewDiscardLogger())
	bus.Emit(events.Event{Type: events.StoreCreated})
	bus.Emit(events.Event{Type: events.StoreClosed})

	assert.Equal(t, uint64(1), bus.Dropped())
	got := <-bus.GetChannel()
	assert.Equal(t, events.StoreCreated, got.Type)

	bus.Close()
	bus.Close()
	bus.Emit(events.Event{Type: events.StoreCreated})
	_, open := <-bus.GetChannel()
	assert.False(t, open)
}

func TestChannelEventBus_RequiresLogger(t *testing.T) {
	assert.Panics(t, func() { NewChannelEventBus(1, nil) })
}

func TestNoOpEventBus(t *testing.T) {
	assert.NotPanics(t, func() { NewNoOpEventBus().Emit(events.Event{Type: events.StoreCreated}) })
}

func TestMetricsEventListener_CountsAndForwards(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := NewChannelEventBus(10, logger.NewDiscardLogger())

	var forwarded []events.EventType
	listener, err := NewMetricsEventListener(bus, reg, logger.NewDiscardLogger(), func(e events.Event) {
		forwarded = append(forwarded, e.Type)
	})
	require.NoError(t, err)

	bus.Emit(events.Event{Type: events.ActionStarted})
	bus.Emit(events.Event{Type: events.ActionCompleted})
	bus.Emit(events.Event{Type: events.ActionStarted})
	bus.Close()

	done := make(chan struct{})
	go func() {
		listener.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after bus close")
	}

	assert.Equal(t, []events.EventType{events.ActionStarted, events.ActionCompleted, events.ActionStarted}, forwarded)
	assert.Equal(t, 2.0, testutil.ToFloat64(listener.counter.WithLabelValues(string(events.ActionStarted))))

	// A second listener on the same registry reuses the counter.
	second, err := NewMetricsEventListener(NewChannelEventBus(1, logger.NewDiscardLogger()), reg, logger.NewDiscardLogger(), nil)
	require.NoError(t, err)
	assert.Same(t, listener.counter, second.counter)
}
