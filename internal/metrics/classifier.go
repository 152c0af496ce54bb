package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classifierTxClassifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "classifier",
		Name:      "transactions_classified_total",
		Help:      "Count of txids classified, by protocol.",
	}, []string{"protocol"})
	classifierTxFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "classifier",
		Name:      "transactions_failed_total",
		Help:      "Count of txids skipped during classification, by reason.",
	}, []string{"reason"})
)

// Classifier tracks per-transaction outcomes for Stage 3.
type Classifier struct{}

// NewClassifier constructs a Stage 3 metrics collector.
func NewClassifier() Classifier { return Classifier{} }

// ObserveTxClassified records a txid classified under the given protocol.
func (Classifier) ObserveTxClassified(protocol string) {
	classifierTxClassifiedTotal.WithLabelValues(protocol).Inc()
}

// ObserveTxFailed records a txid skipped for the given reason (e.g.
// "missing_enriched_transaction").
func (Classifier) ObserveTxFailed(reason string) {
	classifierTxFailedTotal.WithLabelValues(reason).Inc()
}
