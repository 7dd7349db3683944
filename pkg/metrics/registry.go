// Package metrics defines the metrics surfaces plockd records against,
// as interfaces so the engine and daemon never import Prometheus
// directly (see pkg/metrics/prometheus for the concrete backend). This
// mirrors the teacher's pkg/metrics/{cache,s3}.go split between an
// interface package and its prometheus implementation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var registry *prometheus.Registry

// InitRegistry installs the process-wide Prometheus registry. Call it
// once at startup before constructing any metrics implementation; until
// it is called, IsEnabled reports false and every New*Metrics
// constructor returns nil, giving zero-overhead no-op metrics.
func InitRegistry(reg *prometheus.Registry) {
	registry = reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return registry != nil
}

// GetRegistry returns the process-wide registry. Callers must only
// invoke this after confirming IsEnabled.
func GetRegistry() *prometheus.Registry {
	return registry
}
