// Package observability holds the Prometheus collectors shared by the ledger and
// settlement components. Registries are created lazily and registered once with
// the default registerer.
package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics

	settlementMetricsOnce sync.Once
	settlementRegistry    *SettlementMetrics
)

// LedgerMetrics tracks ledger operation outcomes and latency.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	retries    *prometheus.CounterVec
}

// Ledger exposes the metrics registry for ledger operations.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bounty",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "bounty",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for ledger operations including the storage transaction.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			retries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bounty",
				Subsystem: "ledger",
				Name:      "tx_retries_total",
				Help:      "Storage transactions retried after a serialization failure or deadlock.",
			}, []string{"store"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.latency,
			ledgerRegistry.retries,
		)
	})
	return ledgerRegistry
}

// RecordOperation counts one ledger operation and observes its latency.
func (m *LedgerMetrics) RecordOperation(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, label(outcome)).Inc()
	m.latency.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordTxRetry counts a retried storage transaction.
func (m *LedgerMetrics) RecordTxRetry(store string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(label(store)).Inc()
}

// SettlementMetrics tracks on-chain submission attempts per endpoint.
type SettlementMetrics struct {
	attempts *prometheus.CounterVec
	results  *prometheus.CounterVec
	latency  prometheus.Histogram
}

// Settlement exposes the metrics registry for the transaction submitter.
func Settlement() *SettlementMetrics {
	settlementMetricsOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bounty",
				Subsystem: "settlement",
				Name:      "endpoint_attempts_total",
				Help:      "Submit and confirm sequences started per RPC endpoint.",
			}, []string{"endpoint"}),
			results: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bounty",
				Subsystem: "settlement",
				Name:      "results_total",
				Help:      "Settlement outcomes segmented by endpoint and result.",
			}, []string{"endpoint", "result"}),
			latency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "bounty",
				Subsystem: "settlement",
				Name:      "submit_duration_seconds",
				Help:      "End-to-end latency of a settlement call across all endpoints.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
			}),
		}
		prometheus.MustRegister(
			settlementRegistry.attempts,
			settlementRegistry.results,
			settlementRegistry.latency,
		)
	})
	return settlementRegistry
}

// RecordAttempt counts one endpoint attempt.
func (m *SettlementMetrics) RecordAttempt(endpoint string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(label(endpoint)).Inc()
}

// RecordResult counts the outcome of one endpoint attempt.
func (m *SettlementMetrics) RecordResult(endpoint, result string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(label(endpoint), label(result)).Inc()
}

// ObserveSubmit records the duration of a whole settlement call.
func (m *SettlementMetrics) ObserveSubmit(d time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
}

func label(value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return "unspecified"
	}
	return value
}
