package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractorRowsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "extractor",
		Name:      "rows_accepted_total",
		Help:      "Count of CSV rows that decoded as a P2MS output and were persisted.",
	})
	extractorRowsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "extractor",
		Name:      "rows_rejected_total",
		Help:      "Count of CSV rows rejected, by reason.",
	}, []string{"reason"})
)

// Extractor tracks per-row outcomes for Stage 1.
type Extractor struct{}

// NewExtractor constructs a Stage 1 metrics collector.
func NewExtractor() Extractor { return Extractor{} }

// ObserveRowAccepted records a row that decoded as P2MS and was persisted.
func (Extractor) ObserveRowAccepted() { extractorRowsAcceptedTotal.Inc() }

// ObserveRowRejected records a row rejected for the given reason
// ("malformed" or "not_p2ms").
func (Extractor) ObserveRowRejected(reason string) {
	extractorRowsRejectedTotal.WithLabelValues(reason).Inc()
}
