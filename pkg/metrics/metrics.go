package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Reconciliation metrics
	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentctl_reconcile_total",
			Help: "Total number of reconciliations by kind and action",
		},
		[]string{"kind", "action"},
	)

	ReconcileErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentctl_reconcile_errors_total",
			Help: "Total number of failed reconciliations by kind and phase",
		},
		[]string{"kind", "phase"},
	)

	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentctl_reconcile_duration_seconds",
			Help:    "Time taken by one reconciliation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Authority API metrics
	AuthorityRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentctl_authority_requests_total",
			Help: "Total number of authority API requests by method and status",
		},
		[]string{"method", "status"},
	)

	AuthorityRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentctl_authority_request_duration_seconds",
			Help:    "Authority API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Journal metrics
	JournalEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentctl_journal_entries",
			Help: "Number of entries in the run journal after the last write",
		},
	)
)

func init() {
	prometheus.MustRegister(ReconcileTotal)
	prometheus.MustRegister(ReconcileErrors)
	prometheus.MustRegister(ReconcileDuration)
	prometheus.MustRegister(AuthorityRequestsTotal)
	prometheus.MustRegister(AuthorityRequestDuration)
	prometheus.MustRegister(JournalEntries)
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for pickup by the node exporter textfile collector
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
