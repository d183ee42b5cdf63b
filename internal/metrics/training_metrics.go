// Package metrics defines training-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Training counter vectors
var (
	TrainingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_oracle",
		Name:      "training_runs_total",
		Help:      "Total number of training runs by market and status",
	}, []string{"market", "status"})
)

// Training histogram vectors
var (
	TrainingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "match_oracle",
		Name:      "training_duration_seconds",
		Help:      "Duration of one market training run in seconds",
		Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 300, 600},
	}, []string{"market"})
)

// Training gauge vectors
var (
	TrainingSampleCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "match_oracle",
		Name:      "training_sample_count",
		Help:      "Sample count used by the most recent training run per market",
	}, []string{"market"})
)

// RecordTrainingRun records a training run event.
// status should be one of: "success", "skipped", "failure"
func RecordTrainingRun(market, status string, durationSeconds float64) {
	TrainingRunsTotal.WithLabelValues(market, status).Inc()
	TrainingDuration.WithLabelValues(market).Observe(durationSeconds)
}

// UpdateTrainingSamples updates the sample count gauge for a market.
func UpdateTrainingSamples(market string, count float64) {
	TrainingSampleCount.WithLabelValues(market).Set(count)
}

// UpdateModelAccuracy updates the active model accuracy gauge for a market.
func UpdateModelAccuracy(market string, accuracy float64) {
	ActiveModelAccuracy.WithLabelValues(market).Set(accuracy)
}
