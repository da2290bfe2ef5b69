package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_sessions_active",
			Help: "Number of transaction sessions currently Active, Preparing, or Committing",
		},
	)

	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sessions_total",
			Help: "Total number of sessions that reached a terminal outcome, by outcome",
		},
		[]string{"outcome"},
	)

	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_commit_duration_seconds",
			Help:    "Time taken to run a session's full prepare+commit sequence",
			Buckets: prometheus.DefBuckets,
		},
	)

	PrepareFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_prepare_failures_total",
			Help: "Total number of resources whose prepare vote was false or errored, by resource name",
		},
		[]string{"resource"},
	)

	PartiallyCommittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_partially_committed_total",
			Help: "Total number of sessions that reached the PartiallyCommitted outcome",
		},
	)

	ResourcesEnrolled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_resources_enrolled",
			Help: "Number of resource adapters currently enrolled across all active sessions",
		},
	)

	StagedOpsPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_staged_ops_pending",
			Help: "Number of staged save/delete operations buffered in a resource adapter, by resource name",
		},
		[]string{"resource"},
	)

	FileStoreFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_filestore_flush_duration_seconds",
			Help:    "Time taken to atomically rewrite a file-backed store's snapshot to disk",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsActive,
		SessionsTotal,
		CommitDuration,
		PrepareFailuresTotal,
		PartiallyCommittedTotal,
		ResourcesEnrolled,
		StagedOpsPending,
		FileStoreFlushDuration,
	)
}

// Handler returns the Prometheus scrape handler, mounted at /metrics by
// cmd/ledgerctl's serve subcommand.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a small helper for timing an operation and observing its
// duration into a histogram once it completes.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time into histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time into a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
