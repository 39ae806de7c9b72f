// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for LedgerOperations.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tresorerie",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Ledger write operations by operation and result.",
}, []string{"operation", "result"})

var BalanceRowsRewritten = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tresorerie",
	Subsystem: "ledger",
	Name:      "balance_rows_rewritten_total",
	Help:      "Transactions whose balance_after was corrected by a recalculation.",
})

var StatsAnomalies = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tresorerie",
	Subsystem: "stats",
	Name:      "anomalies_total",
	Help:      "Stats computations that exceeded the sanity threshold and were recomputed.",
})

var StatsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tresorerie",
	Subsystem: "stats",
	Name:      "cache_lookups_total",
	Help:      "Stats cache lookups by result (hit, miss).",
}, []string{"result"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tresorerie",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the rate limiter.",
})

// ObserveOperation counts one ledger operation outcome.
func ObserveOperation(operation string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	LedgerOperations.WithLabelValues(operation, result).Inc()
}
