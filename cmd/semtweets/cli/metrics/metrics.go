// Package metrics provides Prometheus metrics for ingestion and clustering.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "semtweets"

var (
	// TweetsIngested counts tweets appended to the store, per source.
	TweetsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tweets_ingested_total",
			Help:      "Total tweets appended to the store",
		},
		[]string{"source"}, // source: collector/import
	)

	// TweetsDuplicate counts tweets skipped because their text was already stored.
	TweetsDuplicate = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tweets_duplicate_total",
			Help:      "Total tweets skipped as duplicates",
		},
		[]string{"source"},
	)

	// TweetsRejected counts request bodies or lines that could not be decoded.
	TweetsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tweets_rejected_total",
			Help:      "Total tweet payloads rejected as malformed",
		},
	)

	// PipelineRuns counts clustering runs.
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total clustering pipeline runs",
		},
		[]string{"status"}, // success/error
	)

	// PipelineDuration tracks end-to-end pipeline latency.
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Clustering pipeline duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	// KMeansIterations tracks refinement passes per run.
	KMeansIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kmeans_iterations",
			Help:      "K-Means refinement passes per run",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		},
	)
)

// ObserveIngest records the outcome of one tweet append.
func ObserveIngest(source string, inserted bool) {
	if inserted {
		TweetsIngested.WithLabelValues(source).Inc()
		return
	}
	TweetsDuplicate.WithLabelValues(source).Inc()
}

// ObservePipeline records a pipeline run.
func ObservePipeline(seconds float64, iterations int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PipelineRuns.WithLabelValues(status).Inc()
	PipelineDuration.Observe(seconds)
	if err == nil {
		KMeansIterations.Observe(float64(iterations))
	}
}
