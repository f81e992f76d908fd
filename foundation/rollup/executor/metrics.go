package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "rollup"
	subsystem = "executor"
)

// Metrics are the executor's prometheus collectors.
type Metrics struct {
	BlocksExecuted   prometheus.Counter
	TxsApplied       prometheus.Counter
	TxsRejected      prometheus.Counter
	EventsSkipped    prometheus.Counter
	BatchesSubmitted prometheus.Counter
	SubmitRetries    prometheus.Counter
	UpdatesDropped   prometheus.Counter
	CurrentBlock     prometheus.Gauge
}

// NewMetrics constructs the collectors and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	counter := func(name string, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
	}

	return &Metrics{
		BlocksExecuted:   counter("blocks_executed_total", "Number of blocks applied to the ledger"),
		TxsApplied:       counter("transactions_applied_total", "Number of transactions that changed the ledger"),
		TxsRejected:      counter("transactions_rejected_total", "Number of malformed or invalid transactions skipped"),
		EventsSkipped:    counter("events_skipped_total", "Number of malformed or empty range events skipped"),
		BatchesSubmitted: counter("batches_submitted_total", "Number of batch proofs the settlement contract accepted"),
		SubmitRetries:    counter("submit_retries_total", "Number of failed batch submissions that were retried"),
		UpdatesDropped:   counter("updates_dropped_total", "Number of updates not delivered to a full subscriber"),
		CurrentBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_block",
			Help:      "Height of the last block applied to the ledger",
		}),
	}
}
