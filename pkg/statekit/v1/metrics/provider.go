package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider gives access to the registry holding store metrics, so
// embedding applications can expose them however they like.
type RegistryProvider interface {
	// Registry returns the Prometheus registry store collectors register with.
	Registry() *prometheus.Registry
}
