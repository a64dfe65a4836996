package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	skmetrics "github.com/gxo-labs/statekit/pkg/statekit/v1/metrics"
)

// PrometheusRegistryProvider implements skmetrics.RegistryProvider with a
// dedicated Prometheus registry.
type PrometheusRegistryProvider struct {
	registry *prometheus.Registry
}

// NewPrometheusRegistryProvider creates a provider with an empty registry.
func NewPrometheusRegistryProvider() *PrometheusRegistryProvider {
	return &PrometheusRegistryProvider{
		registry: prometheus.NewRegistry(),
	}
}

// NewProcessRegistryProvider creates a provider whose registry also carries
// the Go runtime and process collectors. The CLI uses it.
func NewProcessRegistryProvider() *PrometheusRegistryProvider {
	p := NewPrometheusRegistryProvider()
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Registry returns the underlying Prometheus registry.
func (p *PrometheusRegistryProvider) Registry() *prometheus.Registry {
	return p.registry
}

var _ skmetrics.RegistryProvider = (*PrometheusRegistryProvider)(nil)
