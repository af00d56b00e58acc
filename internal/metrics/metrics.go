// Package metrics wraps the Prometheus client with the small counters and
// gauges the execution core exposes: transaction throughput, gas
// consumption, and writer-lease contention.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric the engine and RPC dispatcher update.
// Constructed once at startup and threaded through by reference, the way
// the teacher's cl/phase1/core/state/lru.Cache wraps a named counter
// around cache hits/misses rather than reaching for a package global.
type Registry struct {
	TxSubmitted      prometheus.Counter
	TxCommitted      prometheus.Counter
	TxFailed         prometheus.Counter
	GasConsumedTotal prometheus.Counter
	WriterLeaseWait  prometheus.Histogram
	ApplyDuration    prometheus.Histogram
}

// New registers and returns a fresh Registry against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		TxSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kanari", Subsystem: "engine", Name: "tx_submitted_total",
			Help: "Transactions submitted to the engine.",
		}),
		TxCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kanari", Subsystem: "engine", Name: "tx_committed_total",
			Help: "Transactions whose ChangeSet applied successfully.",
		}),
		TxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kanari", Subsystem: "engine", Name: "tx_failed_total",
			Help: "Transactions that produced a failed receipt.",
		}),
		GasConsumedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kanari", Subsystem: "engine", Name: "gas_consumed_total",
			Help: "Cumulative gas consumed across all committed transactions.",
		}),
		WriterLeaseWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kanari", Subsystem: "engine", Name: "writer_lease_wait_seconds",
			Help:    "Time spent waiting to acquire the exclusive writer lease.",
			Buckets: prometheus.DefBuckets,
		}),
		ApplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kanari", Subsystem: "statestore", Name: "apply_duration_seconds",
			Help:    "Duration of StateStore.Apply, including journal fsync.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.TxSubmitted, m.TxCommitted, m.TxFailed, m.GasConsumedTotal, m.WriterLeaseWait, m.ApplyDuration)
	return m
}
