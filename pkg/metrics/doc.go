/*
Package metrics provides Prometheus metrics for agentctl.

All metrics are package-level collectors registered with the default
registry at init. agentctl is a short-lived process, so nothing is scraped:
when a textfile path is configured, the command layer calls WriteTextfile
once before exiting and the node exporter textfile collector picks the file
up.

# Metrics Catalog

agentctl_reconcile_total{kind, action}:
  - Type: Counter
  - Description: Reconciliations by resource kind and decided action
    (create, update, delete, noop, already-absent)
  - Example: agentctl_reconcile_total{kind="Workload",action="noop"} 12

agentctl_reconcile_errors_total{kind, phase}:
  - Type: Counter
  - Description: Failed reconciliations by kind and the phase that failed
  - Example: agentctl_reconcile_errors_total{kind="Collection",phase="create"} 1

agentctl_reconcile_duration_seconds{kind}:
  - Type: Histogram
  - Description: Wall time of one reconciliation, fetch to re-fetch

agentctl_authority_requests_total{method, status}:
  - Type: Counter
  - Description: Authority API requests by HTTP method and status code;
    transport errors use status "error"

agentctl_authority_request_duration_seconds{method}:
  - Type: Histogram
  - Description: Authority API request latency

agentctl_journal_entries:
  - Type: Gauge
  - Description: Entries in the run journal after the last append

# Timer Helper

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, string(kind))
*/
package metrics
