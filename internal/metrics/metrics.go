package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection metrics
	DetectionCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisoc_detection_cycles_total",
			Help: "Total number of detection cycles by outcome",
		},
		[]string{"outcome"},
	)

	DetectionCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "minisoc_detection_cycle_duration_seconds",
			Help:    "Duration of detection cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisoc_detection_alerts_created_total",
			Help: "Total number of alerts created",
		},
		[]string{"alert_type"},
	)

	DedupSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisoc_detection_dedup_skips_total",
			Help: "Total number of candidates skipped because an open alert already existed",
		},
		[]string{"alert_type"},
	)

	CandidateErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minisoc_detection_candidate_errors_total",
			Help: "Total number of per-candidate alert creation failures",
		},
	)

	SkippedTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minisoc_detection_skipped_ticks_total",
			Help: "Total number of scheduler ticks skipped because a cycle was still running",
		},
	)

	// Ingestion metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisoc_ingest_events_total",
			Help: "Total number of events received by status",
		},
		[]string{"status"},
	)
)
