package events

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gxo-labs/statekit/pkg/statekit/v1/events"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
)

// MetricsEventListener consumes a ChannelEventBus and counts events by type
// in statekit_events_total. An optional forward function sees every event
// after it is counted.
type MetricsEventListener struct {
	bus     *ChannelEventBus
	log     sklog.Logger
	counter *prometheus.CounterVec
	forward func(events.Event)
}

// NewMetricsEventListener registers the event counter with reg and returns a
// listener for bus. forward may be nil.
func NewMetricsEventListener(bus *ChannelEventBus, reg prometheus.Registerer, log sklog.Logger, forward func(events.Event)) (*MetricsEventListener, error) {
	if bus == nil || reg == nil || log == nil {
		panic("MetricsEventListener requires a non-nil ChannelEventBus, Registerer and Logger")
	}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "statekit_events_total",
		Help: "Number of store events observed, by type.",
	}, []string{"type"})
	if err := reg.Register(counter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		counter = existing
	}
	return &MetricsEventListener{
		bus:     bus,
		log:     log.With("component", "MetricsEventListener"),
		counter: counter,
		forward: forward,
	}, nil
}

// Start consumes events until the bus is closed or ctx is done. It blocks;
// run it on its own goroutine.
func (l *MetricsEventListener) Start(ctx context.Context) {
	l.log.Debugf("Starting metrics event listener")
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener")
				return
			}
			l.handleEvent(event)
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping metrics event listener")
			return
		}
	}
}

func (l *MetricsEventListener) handleEvent(event events.Event) {
	l.counter.WithLabelValues(string(event.Type)).Inc()
	if l.forward != nil {
		l.forward(event)
	}
}
