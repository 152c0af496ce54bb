package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enricherTxEnrichedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "enricher",
		Name:      "transactions_enriched_total",
		Help:      "Count of txids successfully enriched and persisted.",
	})
	enricherTxFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2ms",
		Subsystem: "enricher",
		Name:      "transactions_failed_total",
		Help:      "Count of txids skipped after a Node Client or decode failure, by reason.",
	}, []string{"reason"})
)

// Enricher tracks per-transaction outcomes for Stage 2.
type Enricher struct{}

// NewEnricher constructs a Stage 2 metrics collector.
func NewEnricher() Enricher { return Enricher{} }

// ObserveTxEnriched records a txid that was fetched, scored, and persisted.
func (Enricher) ObserveTxEnriched() { enricherTxEnrichedTotal.Inc() }

// ObserveTxFailed records a txid skipped for the given reason
// ("fetch_transaction", "sum_output_values", "resolve_input_value").
func (Enricher) ObserveTxFailed(reason string) {
	enricherTxFailedTotal.WithLabelValues(reason).Inc()
}
