package prometheus

import (
	"github.com/clusterfs/plockd/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterLockMetricsConstructor(func() metrics.LockMetrics {
		return newLockMetrics()
	})
}

// lockMetrics is the Prometheus implementation of metrics.LockMetrics.
type lockMetrics struct {
	requests           *prometheus.CounterVec
	waiterQueueDepth   *prometheus.GaugeVec
	checkpointDuration *prometheus.HistogramVec
	clusterRoundTrip   prometheus.Histogram
}

func newLockMetrics() *lockMetrics {
	reg := metrics.GetRegistry()

	return &lockMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "plockd_lock_requests_total",
				Help: "Total lock engine requests by operation and verdict",
			},
			[]string{"op", "verdict"}, // op: lock, unlock, get; verdict: granted, conflict, queued, error
		),
		waiterQueueDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plockd_waiter_queue_depth",
				Help: "Number of queued waiters per mount group",
			},
			[]string{"group"},
		),
		checkpointDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plockd_checkpoint_duration_seconds",
				Help:    "Time taken to store a checkpoint snapshot",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"group"},
		),
		clusterRoundTrip: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "plockd_cluster_round_trip_seconds",
				Help:    "Time from local Submit to the matching reply being delivered",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *lockMetrics) ObserveLockRequest(op, verdict string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, verdict).Inc()
}

func (m *lockMetrics) SetWaiterQueueDepth(group string, depth int) {
	if m == nil {
		return
	}
	m.waiterQueueDepth.WithLabelValues(group).Set(float64(depth))
}

func (m *lockMetrics) ObserveCheckpointDuration(group string, seconds float64) {
	if m == nil {
		return
	}
	m.checkpointDuration.WithLabelValues(group).Observe(seconds)
}

func (m *lockMetrics) ObserveClusterRoundTrip(seconds float64) {
	if m == nil {
		return
	}
	m.clusterRoundTrip.Observe(seconds)
}
