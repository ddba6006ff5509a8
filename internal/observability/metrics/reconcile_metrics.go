package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for processed playback events.
const (
	ReconcileOutcomeCounted        = "counted"
	ReconcileOutcomeSkipped        = "skipped"
	ReconcileOutcomeUnregistered   = "unregistered_file"
	ReconcileOutcomeNoContract     = "no_active_contract"
	ReconcileOutcomeAmbiguous      = "ambiguous_contract"
	ReconcileOutcomeNoQuotaLine    = "no_matching_quota_line"
	ReconcileOutcomeLockContention = "lock_contention"
	ReconcileOutcomeTransientError = "transient_error"
)

// ReconcileMetrics captures reconciliation engine health signals.
type ReconcileMetrics struct {
	runs           prometheus.Counter
	runDuration    prometheus.Histogram
	eventsByResult *prometheus.CounterVec
	lockRetries    prometheus.Counter
}

var (
	reconcileMetricsOnce sync.Once
	reconcileMetrics     *ReconcileMetrics
)

// NewReconcileMetrics returns the singleton reconcile metrics registry.
func NewReconcileMetrics(cfg Config) *ReconcileMetrics {
	reconcileMetricsOnce.Do(func() {
		reconcileMetrics = newReconcileMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcileMetrics
}

// ResetReconcileMetricsForTest resets the reconcile metrics singleton for tests.
func ResetReconcileMetricsForTest() {
	reconcileMetricsOnce = sync.Once{}
	reconcileMetrics = nil
}

func newReconcileMetrics(registerer prometheus.Registerer, cfg Config) *ReconcileMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "airtrack"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &ReconcileMetrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "airtrack_reconcile_runs_total",
			Help:        "Total reconciliation batch runs.",
			ConstLabels: constLabels,
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "airtrack_reconcile_run_duration_seconds",
			Help:        "Duration of reconciliation batch runs.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}),
		eventsByResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "airtrack_reconcile_events_total",
			Help:        "Processed playback events by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		lockRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "airtrack_reconcile_lock_retries_total",
			Help:        "Retries while acquiring a per-contract lock.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(m.runs, m.runDuration, m.eventsByResult, m.lockRetries)
	return m
}

// ObserveRun records a completed batch run.
func (m *ReconcileMetrics) ObserveRun(seconds float64) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.runDuration.Observe(seconds)
}

// RecordEvent records the terminal outcome of one playback event.
func (m *ReconcileMetrics) RecordEvent(outcome string) {
	if m == nil {
		return
	}
	m.eventsByResult.WithLabelValues(outcome).Inc()
}

// RecordLockRetry counts a lock acquisition retry.
func (m *ReconcileMetrics) RecordLockRetry() {
	if m == nil {
		return
	}
	m.lockRetries.Inc()
}
