package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Count of Store repository operations.",
	}, []string{"operation", "status"})
	storeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "p2ms",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of Store repository operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// Store tracks metrics for repository-layer calls against the embedded database.
type Store struct{}

// NewStore constructs a Store metrics collector.
func NewStore() Store { return Store{} }

// Observe records a single repository call outcome and duration.
func (Store) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	storeRequestsTotal.WithLabelValues(operation, status).Inc()
	storeRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
