package metrics

// LockMetrics records the lock engine's operational counters: request
// throughput by verdict, waiter queue depth, and checkpoint latency.
// The nil implementation (when metrics are disabled) must be safe to
// call every method on, matching the teacher's nil-safe Record* pattern
// in pkg/metrics/prometheus/badger.go.
type LockMetrics interface {
	ObserveLockRequest(op, verdict string)
	SetWaiterQueueDepth(group string, depth int)
	ObserveCheckpointDuration(group string, seconds float64)
	ObserveClusterRoundTrip(seconds float64)
}

// NewLockMetrics returns the Prometheus-backed LockMetrics, or nil if
// metrics are disabled (InitRegistry not called).
func NewLockMetrics() LockMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusLockMetrics()
}

// newPrometheusLockMetrics is implemented in
// pkg/metrics/prometheus/lock.go; this indirection mirrors the
// teacher's import-cycle avoidance in pkg/metrics/cache.go.
var newPrometheusLockMetrics func() LockMetrics

// RegisterLockMetricsConstructor is called by
// pkg/metrics/prometheus/lock.go's init to wire the concrete
// implementation into this package without an import cycle.
func RegisterLockMetricsConstructor(constructor func() LockMetrics) {
	newPrometheusLockMetrics = constructor
}
