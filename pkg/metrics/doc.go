/*
Package metrics provides Prometheus instrumentation for the transaction
coordinator, resource adapters, and file-backed store.

	┌──────────────────── METRICS SYSTEM ───────────────────┐
	│  Coordinator   ledger_sessions_active (gauge)          │
	│                ledger_sessions_total{outcome} (ctr)    │
	│                ledger_commit_duration_seconds (hist)   │
	│                ledger_prepare_failures_total{resource} │
	│                ledger_partially_committed_total        │
	│  Resource      ledger_resources_enrolled (gauge)       │
	│                ledger_staged_ops_pending{resource}     │
	│  Filestore     ledger_filestore_flush_duration_seconds │
	└────────────────────┬───────────────────────────────────┘
	                     │
	              promhttp.Handler() at /metrics

Metrics are package-level prometheus collectors registered at init via
MustRegister; callers never construct their own registry. pkg/txn and
pkg/resource call the Instrumentation helpers in collector.go directly
from their hot paths, Session.Commit observes CommitDuration, and
filestore's Commit observes FileStoreFlushDuration, instead of being polled, since there is no
long-lived manager process to poll here — each session's lifecycle is
itself the event.

See https://prometheus.io/docs/practices/histograms/ for the bucket
layout rationale behind CommitDuration and FileStoreFlushDuration.
*/
package metrics
