package ingestion_engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_jobs_total",
		Help: "Processing jobs by outcome.",
	}, []string{"outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Time spent in each pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"stage"})

	pollAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_poll_attempts_total",
		Help: "External job polls by job kind and observed status.",
	}, []string{"kind", "status"})

	summaryFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_summary_fallbacks_total",
		Help: "Summaries replaced by the placeholder after a generation failure.",
	})
)
