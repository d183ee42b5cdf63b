// Package logger provides engine-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// EngineLogger provides dedicated logging for the prediction engine loops.
type EngineLogger struct {
	*logrus.Entry
}

// NewEngineLogger creates a new engine logger.
func NewEngineLogger(baseLogger *logrus.Logger) *EngineLogger {
	return &EngineLogger{
		Entry: baseLogger.WithField("component", "engine"),
	}
}

// LogRatingUpdate logs a rating change for one side of a verified match.
func (e *EngineLogger) LogRatingUpdate(team, competition string, before, after float64, streak int) {
	e.WithFields(logrus.Fields{
		"team":        team,
		"competition": competition,
		"before":      before,
		"after":       after,
		"delta":       after - before,
		"streak":      streak,
	}).Info("Team rating updated")
}

// LogTraining logs a completed training run for one market.
func (e *EngineLogger) LogTraining(market, version string, samples int, accuracy, logLoss float64, durationMs float64) {
	e.WithFields(logrus.Fields{
		"market":      market,
		"version":     version,
		"samples":     samples,
		"accuracy":    accuracy,
		"log_loss":    logLoss,
		"duration_ms": durationMs,
	}).Info("Market model trained")
}

// LogPrediction logs an inference call outcome.
func (e *EngineLogger) LogPrediction(market string, predicted string, confidence, agreement float64, valueBet bool) {
	e.WithFields(logrus.Fields{
		"market":     market,
		"predicted":  predicted,
		"confidence": confidence,
		"agreement":  agreement,
		"value_bet":  valueBet,
	}).Info("Prediction issued")
}

// LogDrift logs a detected accuracy drift for a market.
func (e *EngineLogger) LogDrift(market string, lifetime, trailing float64, samples int) {
	e.WithFields(logrus.Fields{
		"market":            market,
		"lifetime_accuracy": lifetime,
		"trailing_accuracy": trailing,
		"trailing_samples":  samples,
	}).Warn("Accuracy drift detected")
}

// LogVerification logs one verification pass.
func (e *EngineLogger) LogVerification(verified, pending, mismatched int) {
	e.WithFields(logrus.Fields{
		"verified":   verified,
		"pending":    pending,
		"mismatched": mismatched,
	}).Info("Verification pass completed")
}

// LogLoopError logs a caught background-loop failure. The loop continues.
func (e *EngineLogger) LogLoopError(loop string, err error) {
	e.WithFields(logrus.Fields{
		"loop": loop,
	}).WithError(err).Error("Background loop iteration failed")
}
