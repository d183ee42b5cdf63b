// Package metrics provides the centralized Prometheus metrics registry for the
// prediction engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PredictionsIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_oracle",
		Name:      "predictions_issued_total",
		Help:      "Total number of predictions issued by market",
	}, []string{"market"})
	ValueBetsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_oracle",
		Name:      "value_bets_total",
		Help:      "Total number of predictions flagged as value bets by market",
	}, []string{"market"})
	PredictionsVerifiedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_oracle",
		Name:      "predictions_verified_total",
		Help:      "Total number of verified predictions by market and outcome",
	}, []string{"market", "result"})
	RatingUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "match_oracle",
		Name:      "rating_updates_total",
		Help:      "Total number of Elo rating updates applied",
	})
	LoopFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_oracle",
		Name:      "loop_failures_total",
		Help:      "Total number of caught background loop failures by loop",
	}, []string{"loop"})
	DriftDetectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "match_oracle",
		Name:      "drift_detections_total",
		Help:      "Total number of accuracy drift detections by market",
	}, []string{"market"})
)

// Gauge metrics
var (
	ActiveModelAccuracy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "match_oracle",
		Name:      "active_model_accuracy",
		Help:      "Holdout accuracy of the active model per market",
	}, []string{"market"})
	VerifiedSampleCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "match_oracle",
		Name:      "verified_sample_count",
		Help:      "Verified prediction count per market",
	}, []string{"market"})
	TrailingAccuracyGap = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "match_oracle",
		Name:      "trailing_accuracy_gap_points",
		Help:      "Lifetime minus trailing-window accuracy in percentage points",
	}, []string{"market"})
)

// Histogram metrics
var (
	PredictionConfidence = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "match_oracle",
		Name:      "prediction_confidence",
		Help:      "Final calibrated confidence of issued predictions",
		Buckets:   []float64{30, 40, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95},
	}, []string{"market"})
	PredictionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "match_oracle",
		Name:      "prediction_latency_seconds",
		Help:      "Latency of one full inference call in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(PredictionsIssuedTotal)
		registry.MustRegister(ValueBetsTotal)
		registry.MustRegister(PredictionsVerifiedTotal)
		registry.MustRegister(RatingUpdatesTotal)
		registry.MustRegister(LoopFailuresTotal)
		registry.MustRegister(DriftDetectionsTotal)

		// Register gauge metrics
		registry.MustRegister(ActiveModelAccuracy)
		registry.MustRegister(VerifiedSampleCount)
		registry.MustRegister(TrailingAccuracyGap)

		// Register histogram metrics
		registry.MustRegister(PredictionConfidence)
		registry.MustRegister(PredictionLatency)

		// Register training metrics
		registry.MustRegister(TrainingRunsTotal)
		registry.MustRegister(TrainingDuration)
		registry.MustRegister(TrainingSampleCount)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPrediction records one issued prediction.
func RecordPrediction(market string, confidence float64, valueBet bool) {
	PredictionsIssuedTotal.WithLabelValues(market).Inc()
	PredictionConfidence.WithLabelValues(market).Observe(confidence)
	if valueBet {
		ValueBetsTotal.WithLabelValues(market).Inc()
	}
}

// RecordPredictionLatency records latency of one inference call.
func RecordPredictionLatency(durationSeconds float64) {
	PredictionLatency.Observe(durationSeconds)
}

// RecordVerification records one graded prediction.
func RecordVerification(market string, correct bool) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	PredictionsVerifiedTotal.WithLabelValues(market, result).Inc()
}

// RecordRatingUpdate records one applied Elo update.
func RecordRatingUpdate() {
	RatingUpdatesTotal.Inc()
}

// RecordLoopFailure records a caught background loop failure.
func RecordLoopFailure(loop string) {
	LoopFailuresTotal.WithLabelValues(loop).Inc()
}

// RecordDrift records a drift detection and the observed gap.
func RecordDrift(market string, gapPoints float64) {
	DriftDetectionsTotal.WithLabelValues(market).Inc()
	TrailingAccuracyGap.WithLabelValues(market).Set(gapPoints)
}
