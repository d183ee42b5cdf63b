// Package drift watches verified prediction accuracy for degradation and
// decides when markets need retraining.
package drift

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/metrics"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
)

// Report is one market's drift check result. Accuracies are percentages.
type Report struct {
	Market           string  `json:"market"`
	LifetimeAccuracy float64 `json:"lifetime_accuracy"`
	TrailingAccuracy float64 `json:"trailing_accuracy"`
	TrailingSamples  int     `json:"trailing_samples"`
	GapPoints        float64 `json:"gap_points"`
	Drifted          bool    `json:"drifted"`
}

// Monitor compares lifetime accuracy against a trailing window per market.
// It only flags and recommends; retraining is the scheduler's call.
type Monitor struct {
	cfg       config.DriftConfig
	predRepo  repository.PredictionRepository
	eventRepo repository.EventRepository
	log       *logger.EngineLogger
}

// NewMonitor creates a drift monitor.
func NewMonitor(cfg config.DriftConfig, predRepo repository.PredictionRepository, eventRepo repository.EventRepository, log *logger.EngineLogger) *Monitor {
	return &Monitor{cfg: cfg, predRepo: predRepo, eventRepo: eventRepo, log: log}
}

// CheckMarket runs one drift check. A window under the sample minimum never
// flags, whatever the gap.
func (m *Monitor) CheckMarket(ctx context.Context, market string) (*Report, error) {
	lifetimeCorrect, lifetimeTotal, err := m.predRepo.AccuracySince(ctx, market, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load lifetime accuracy: %w", err)
	}

	since := time.Now().Add(-time.Duration(m.cfg.WindowDays) * 24 * time.Hour)
	trailingCorrect, trailingTotal, err := m.predRepo.AccuracySince(ctx, market, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load trailing accuracy: %w", err)
	}

	report := &Report{Market: market, TrailingSamples: trailingTotal}
	if lifetimeTotal > 0 {
		report.LifetimeAccuracy = float64(lifetimeCorrect) / float64(lifetimeTotal) * 100
	}
	if trailingTotal > 0 {
		report.TrailingAccuracy = float64(trailingCorrect) / float64(trailingTotal) * 100
	}
	report.GapPoints = report.LifetimeAccuracy - report.TrailingAccuracy

	if trailingTotal >= m.cfg.MinSamples && report.GapPoints > m.cfg.ThresholdPoints {
		report.Drifted = true
		metrics.RecordDrift(market, report.GapPoints)
		m.log.LogDrift(market, report.LifetimeAccuracy, report.TrailingAccuracy, trailingTotal)

		event := models.NewEngineEvent(models.EventDriftDetected, market, report)
		if err := m.eventRepo.Append(ctx, event); err != nil {
			m.log.LogLoopError("drift", err)
		}
	}
	return report, nil
}

// CheckAll runs the drift check across every supported market.
func (m *Monitor) CheckAll(ctx context.Context) ([]*Report, error) {
	reports := make([]*Report, 0, len(models.AllMarkets))
	for _, market := range models.AllMarkets {
		report, err := m.CheckMarket(ctx, market)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
