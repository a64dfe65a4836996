package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreCollectors holds the metric vectors every store reports to. Stores
// sharing a registry share the same vectors and are told apart by the
// "store" label.
type StoreCollectors struct {
	Dispatches         *prometheus.CounterVec
	Actions            *prometheus.CounterVec
	ActionDuration     *prometheus.HistogramVec
	SubscriberFailures *prometheus.CounterVec
	Subscribers        *prometheus.GaugeVec
	QueryEvaluations   *prometheus.CounterVec
}

// Action outcome label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// NewStoreCollectors creates the store vectors and registers them with reg.
// Vectors already registered by an earlier store are reused.
func NewStoreCollectors(reg prometheus.Registerer) (*StoreCollectors, error) {
	c := &StoreCollectors{
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statekit_dispatches_total",
			Help: "Number of committed state dispatches.",
		}, []string{"store", "field"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statekit_actions_total",
			Help: "Number of action invocations by outcome.",
		}, []string{"store", "action", "status"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statekit_action_duration_seconds",
			Help:    "Duration of action invocations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"store", "action"}),
		SubscriberFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statekit_subscriber_failures_total",
			Help: "Number of subscriber callbacks that returned an error or panicked.",
		}, []string{"store"}),
		Subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statekit_subscribers",
			Help: "Current number of subscriptions.",
		}, []string{"store"}),
		QueryEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statekit_query_evaluations_total",
			Help: "Number of query evaluation requests, by whether a memoized result was used.",
		}, []string{"store", "query", "cached"}),
	}

	var err error
	if c.Dispatches, err = register(reg, c.Dispatches); err != nil {
		return nil, err
	}
	if c.Actions, err = register(reg, c.Actions); err != nil {
		return nil, err
	}
	if c.ActionDuration, err = register(reg, c.ActionDuration); err != nil {
		return nil, err
	}
	if c.SubscriberFailures, err = register(reg, c.SubscriberFailures); err != nil {
		return nil, err
	}
	if c.Subscribers, err = register(reg, c.Subscribers); err != nil {
		return nil, err
	}
	if c.QueryEvaluations, err = register(reg, c.QueryEvaluations); err != nil {
		return nil, err
	}
	return c, nil
}

// register registers c, returning the existing collector when an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveAction records one finished invocation.
func (c *StoreCollectors) ObserveAction(store, action string, elapsed time.Duration, failed bool) {
	status := StatusSuccess
	if failed {
		status = StatusFailure
	}
	c.Actions.WithLabelValues(store, action, status).Inc()
	c.ActionDuration.WithLabelValues(store, action).Observe(elapsed.Seconds())
}

// ObserveQuery records one query evaluation request.
func (c *StoreCollectors) ObserveQuery(store, query string, cached bool) {
	label := "false"
	if cached {
		label = "true"
	}
	c.QueryEvaluations.WithLabelValues(store, query, label).Inc()
}
