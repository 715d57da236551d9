// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Holder analysis metrics
	HolderAnalysesTotal    *prometheus.CounterVec
	HolderAnalysisDuration prometheus.Histogram
	HolderSourceFailures   *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Migration detector metrics
	MigrationCandidatesTotal prometheus.Counter
	MigrationEventsTotal     prometheus.Counter
	MigrationDecodeFailures  prometheus.Counter
	SubscriberDropsTotal     prometheus.Counter

	// Bundle monitor metrics
	BundleDetectionsTotal *prometheus.CounterVec
	BundlesTracked        prometheus.Gauge
	BundlesSweptTotal     prometheus.Counter

	// Lock detector metrics
	LockChecksTotal *prometheus.CounterVec

	// Storage metrics
	SnapshotWritesTotal *prometheus.CounterVec
	JournalWritesTotal  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mint_intel"
	}

	return &Metrics{
		HolderAnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "analyses_total",
			Help:      "Total holder analyses, labeled by the source that produced the result",
		}, []string{"source"}),
		HolderAnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of uncached holder analyses",
			Buckets:   prometheus.DefBuckets,
		}),
		HolderSourceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "source_failures_total",
			Help:      "Fallback-chain sources that failed or returned nothing",
		}, []string{"source"}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits per component cache",
		}, []string{"cache"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses per component cache",
		}, []string{"cache"}),
		MigrationCandidatesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "candidates_total",
			Help:      "Log notifications that mentioned the migrator and had no error",
		}),
		MigrationEventsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "events_total",
			Help:      "Migration events decoded and cached",
		}),
		MigrationDecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "decode_failures_total",
			Help:      "Candidate transactions that could not be decoded",
		}),
		SubscriberDropsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "subscriber_drops_total",
			Help:      "Events dropped because a subscriber buffer was full",
		}),
		BundleDetectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bundle",
			Name:      "detections_total",
			Help:      "Bundle detections, labeled by confidence",
		}, []string{"confidence"}),
		BundlesTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bundle",
			Name:      "tracked",
			Help:      "Bundles currently tracked in the lifecycle cache",
		}),
		BundlesSweptTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bundle",
			Name:      "swept_total",
			Help:      "Idle bundles removed by the sweeper",
		}),
		LockChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locks",
			Name:      "checks_total",
			Help:      "Lock checks, labeled by outcome",
		}, []string{"outcome"}),
		SnapshotWritesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshot_writes_total",
			Help:      "Holder snapshot writes, labeled by status",
		}, []string{"status"}),
		JournalWritesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "journal_writes_total",
			Help:      "Migration journal writes, labeled by status",
		}, []string{"status"}),
	}
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordHolderAnalysis records a completed uncached holder analysis.
func RecordHolderAnalysis(source string, seconds float64) {
	DefaultMetrics.HolderAnalysesTotal.WithLabelValues(source).Inc()
	DefaultMetrics.HolderAnalysisDuration.Observe(seconds)
}

// RecordHolderSourceFailure records a fallback source that yielded nothing.
func RecordHolderSourceFailure(source string) {
	DefaultMetrics.HolderSourceFailures.WithLabelValues(source).Inc()
}

// RecordCacheHit increments the hit counter for a component cache.
func RecordCacheHit(cache string) {
	DefaultMetrics.CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss increments the miss counter for a component cache.
func RecordCacheMiss(cache string) {
	DefaultMetrics.CacheMisses.WithLabelValues(cache).Inc()
}

// RecordMigrationCandidate counts a migrator-mentioning log notification.
func RecordMigrationCandidate() {
	DefaultMetrics.MigrationCandidatesTotal.Inc()
}

// RecordMigrationEvent counts a decoded migration event.
func RecordMigrationEvent() {
	DefaultMetrics.MigrationEventsTotal.Inc()
}

// RecordMigrationDecodeFailure counts a candidate that failed decoding.
func RecordMigrationDecodeFailure() {
	DefaultMetrics.MigrationDecodeFailures.Inc()
}

// RecordSubscriberDrop counts an event dropped at a full subscriber buffer.
func RecordSubscriberDrop() {
	DefaultMetrics.SubscriberDropsTotal.Inc()
}

// RecordBundleDetection counts a bundle detection by confidence.
func RecordBundleDetection(confidence string) {
	DefaultMetrics.BundleDetectionsTotal.WithLabelValues(confidence).Inc()
}

// SetBundlesTracked updates the tracked-bundle gauge.
func SetBundlesTracked(n int) {
	DefaultMetrics.BundlesTracked.Set(float64(n))
}

// RecordBundlesSwept counts bundles removed by the sweeper.
func RecordBundlesSwept(n int) {
	DefaultMetrics.BundlesSweptTotal.Add(float64(n))
}

// RecordLockCheck counts a lock check outcome ("locked", "unlocked",
// "error").
func RecordLockCheck(outcome string) {
	DefaultMetrics.LockChecksTotal.WithLabelValues(outcome).Inc()
}

// RecordSnapshotWrite records a holder snapshot write attempt.
func RecordSnapshotWrite(err error) {
	if err != nil {
		DefaultMetrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.SnapshotWritesTotal.WithLabelValues("ok").Inc()
}

// RecordJournalWrite records a migration journal write attempt.
func RecordJournalWrite(err error) {
	if err != nil {
		DefaultMetrics.JournalWritesTotal.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.JournalWritesTotal.WithLabelValues("ok").Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
