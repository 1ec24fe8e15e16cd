package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ClaimedTotal counts submissions claimed by the dispatcher, per tick.
	ClaimedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "judge_engine_claimed_submissions_total",
		Help: "Total submissions claimed from the store by the dispatcher.",
	})

	PoolActiveSlots = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "judge_engine_pool_active_slots",
		Help: "Number of worker pool slots currently occupied by a running pipeline.",
	})

	PoolCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "judge_engine_pool_capacity",
		Help: "Configured maximum concurrency of the worker pool.",
	})

	CaseVerdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "judge_engine_case_verdicts_total",
		Help: "Per-case verdicts recorded by the pipeline, by verdict and phase.",
	}, []string{"phase", "verdict"})

	PipelineDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "judge_engine_pipeline_duration_seconds",
		Help:    "Wall-clock duration of a full submission pipeline run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"final_verdict"})
)

func init() {
	prometheus.MustRegister(ClaimedTotal, PoolActiveSlots, PoolCapacity, CaseVerdictsTotal, PipelineDurationSeconds)
}
