package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func delta(t *testing.T, collector prometheus.Collector, observe func()) float64 {
	t.Helper()

	before := testutil.ToFloat64(collector)
	observe()
	after := testutil.ToFloat64(collector)
	return after - before
}

func TestExtractorRecords(t *testing.T) {
	m := NewExtractor()

	if inc := delta(t, extractorRowsAcceptedTotal, func() {
		m.ObserveRowAccepted()
	}); inc != 1 {
		t.Fatalf("expected rows accepted counter increment, got %v", inc)
	}

	if inc := delta(t, extractorRowsRejectedTotal.WithLabelValues("not_p2ms"), func() {
		m.ObserveRowRejected("not_p2ms")
	}); inc != 1 {
		t.Fatalf("expected rows rejected counter increment, got %v", inc)
	}
}

func TestEnricherRecords(t *testing.T) {
	m := NewEnricher()

	if inc := delta(t, enricherTxEnrichedTotal, func() {
		m.ObserveTxEnriched()
	}); inc != 1 {
		t.Fatalf("expected transactions enriched counter increment, got %v", inc)
	}

	if inc := delta(t, enricherTxFailedTotal.WithLabelValues("fetch_transaction"), func() {
		m.ObserveTxFailed("fetch_transaction")
	}); inc != 1 {
		t.Fatalf("expected transactions failed counter increment, got %v", inc)
	}
}

func TestClassifierRecords(t *testing.T) {
	m := NewClassifier()

	if inc := delta(t, classifierTxClassifiedTotal.WithLabelValues("BitcoinStamps"), func() {
		m.ObserveTxClassified("BitcoinStamps")
	}); inc != 1 {
		t.Fatalf("expected transactions classified counter increment, got %v", inc)
	}

	if inc := delta(t, classifierTxFailedTotal.WithLabelValues("missing_enriched_transaction"), func() {
		m.ObserveTxFailed("missing_enriched_transaction")
	}); inc != 1 {
		t.Fatalf("expected transactions failed counter increment, got %v", inc)
	}
}

func TestStoreRecords(t *testing.T) {
	m := NewStore()
	start := time.Now().Add(-time.Millisecond)

	if inc := delta(t, storeRequestsTotal.WithLabelValues("upsert_output", "success"), func() {
		m.Observe("upsert_output", nil, start)
	}); inc != 1 {
		t.Fatalf("expected store success counter increment, got %v", inc)
	}

	if inc := delta(t, storeRequestsTotal.WithLabelValues("upsert_output", "error"), func() {
		m.Observe("upsert_output", errors.New("boom"), start)
	}); inc != 1 {
		t.Fatalf("expected store error counter increment, got %v", inc)
	}
}

func TestNodeClientRecords(t *testing.T) {
	m := NewNodeClient()
	start := time.Now().Add(-time.Millisecond)

	if inc := delta(t, nodeClientRequestsTotal.WithLabelValues("get_raw_transaction", "success"), func() {
		m.Observe("get_raw_transaction", nil, start)
	}); inc != 1 {
		t.Fatalf("expected node client success counter increment, got %v", inc)
	}

	if inc := delta(t, nodeClientRetriesTotal.WithLabelValues("get_raw_transaction"), func() {
		m.ObserveRetry("get_raw_transaction")
	}); inc != 1 {
		t.Fatalf("expected retry counter increment, got %v", inc)
	}

	if inc := delta(t, nodeCacheHitsTotal.WithLabelValues("hit"), func() {
		m.ObserveCacheLookup(true)
	}); inc != 1 {
		t.Fatalf("expected cache hit counter increment, got %v", inc)
	}
}
