// Package metrics exposes the Prometheus collectors of the economy engine.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EconomyMetrics groups the collectors updated by the services.
type EconomyMetrics struct {
	operations      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	coinsMoved      *prometheus.CounterVec
	partialFailures *prometheus.CounterVec
	riskEvents      *prometheus.CounterVec
	freezes         prometheus.Counter
	frozenCheckErrs prometheus.Counter
}

var (
	economyOnce     sync.Once
	economyRegistry *EconomyMetrics
)

// Economy returns the lazily registered economy metrics.
func Economy() *EconomyMetrics {
	economyOnce.Do(func() {
		economyRegistry = &EconomyMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "economy",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Economy operations segmented by operation and outcome code.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "economy",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for economy operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			coinsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "economy",
				Subsystem: "ledger",
				Name:      "coins_total",
				Help:      "Absolute coins moved through the ledger by coin type, kind and direction.",
			}, []string{"coin_type", "kind", "direction"}),
			partialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "economy",
				Subsystem: "engine",
				Name:      "partial_failures_total",
				Help:      "Failures after money already moved, segmented by operation and step.",
			}, []string{"operation", "step"}),
			riskEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "economy",
				Subsystem: "risk",
				Name:      "events_total",
				Help:      "Risk events recorded by event type.",
			}, []string{"event_type"}),
			freezes: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "economy",
				Subsystem: "risk",
				Name:      "freezes_total",
				Help:      "Accounts frozen after crossing the risk threshold.",
			}),
			frozenCheckErrs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "economy",
				Subsystem: "risk",
				Name:      "frozen_check_errors_total",
				Help:      "Freeze lookups that failed and fell back to the configured policy.",
			}),
		}
		prometheus.MustRegister(
			economyRegistry.operations,
			economyRegistry.latency,
			economyRegistry.coinsMoved,
			economyRegistry.partialFailures,
			economyRegistry.riskEvents,
			economyRegistry.freezes,
			economyRegistry.frozenCheckErrs,
		)
	})
	return economyRegistry
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

// Observe records the outcome and latency of one operation. outcome is the
// error code, or "ok".
func (m *EconomyMetrics) Observe(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.operations.WithLabelValues(label(operation), outcome).Inc()
	m.latency.WithLabelValues(label(operation)).Observe(duration.Seconds())
}

// RecordCoins adds a ledger movement to the coin counters.
func (m *EconomyMetrics) RecordCoins(coinType, kind string, amount int64) {
	if m == nil || amount == 0 {
		return
	}
	direction := "credit"
	if amount < 0 {
		direction = "debit"
		amount = -amount
	}
	m.coinsMoved.WithLabelValues(label(coinType), label(kind), direction).Add(float64(amount))
}

// RecordPartialFailure counts a failed step that ran after money moved.
func (m *EconomyMetrics) RecordPartialFailure(operation, step string) {
	if m == nil {
		return
	}
	m.partialFailures.WithLabelValues(label(operation), label(step)).Inc()
}

// RecordRiskEvent counts a risk event and, when it froze the account, a freeze.
func (m *EconomyMetrics) RecordRiskEvent(eventType string, froze bool) {
	if m == nil {
		return
	}
	m.riskEvents.WithLabelValues(label(eventType)).Inc()
	if froze {
		m.freezes.Inc()
	}
}

// RecordFrozenCheckError counts a failed freeze lookup.
func (m *EconomyMetrics) RecordFrozenCheckError() {
	if m == nil {
		return
	}
	m.frozenCheckErrs.Inc()
}
