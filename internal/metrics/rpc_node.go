package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	nodeClientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "node_client",
		Name:      "operations_total",
		Help:      "Count of Node Client RPC operations.",
	}, []string{"operation", "status"})
	nodeClientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "p2ms",
		Subsystem: "node_client",
		Name:      "operation_duration_seconds",
		Help:      "Duration of Node Client RPC operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
	nodeClientRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "node_client",
		Name:      "retries_total",
		Help:      "Count of Node Client retry attempts, by operation.",
	}, []string{"operation"})
	nodeCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "node_client",
		Name:      "transaction_cache_hits_total",
		Help:      "Count of transaction cache lookups, by outcome.",
	}, []string{"outcome"})
)

// NodeClient tracks metrics for RPC calls made to the Bitcoin node.
type NodeClient struct{}

// NewNodeClient constructs a Node Client metrics collector.
func NewNodeClient() NodeClient {
	return NodeClient{}
}

// Observe records a single RPC call outcome and duration.
func (NodeClient) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	nodeClientRequestsTotal.WithLabelValues(operation, status).Inc()
	nodeClientRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// ObserveRetry records a single retry attempt for an RPC operation.
func (NodeClient) ObserveRetry(operation string) {
	nodeClientRetriesTotal.WithLabelValues(operation).Inc()
}

// ObserveCacheLookup records a transaction-cache hit or miss.
func (NodeClient) ObserveCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	nodeCacheHitsTotal.WithLabelValues(outcome).Inc()
}
