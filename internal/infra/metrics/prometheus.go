package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GuidesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwise_guides_processed_total",
		Help: "Total number of processing runs, by outcome (frames, mock, failed, dlq)",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stepwise_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stepwise_frames_sampled_total",
		Help: "Total number of keyframes decoded and encoded across all runs",
	})

	FallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwise_fallback_total",
		Help: "Runs that fell back to duration-only mock steps, by failure reason",
	}, []string{"reason"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stepwise_active_workers",
		Help: "Number of runs currently being processed",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwise_retry_total",
		Help: "Total number of queued job retries",
	}, []string{"attempt"})

	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwise_callbacks_total",
		Help: "Webhook deliveries, by result",
	}, []string{"result"})
)
