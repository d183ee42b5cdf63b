package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
)

// MarketStats is the operational snapshot for one market.
type MarketStats struct {
	Market           string     `json:"market"`
	ModelVersion     string     `json:"model_version,omitempty"`
	ModelAccuracy    float64    `json:"model_accuracy"`
	ModelSamples     int        `json:"model_samples"`
	TrainedAt        *time.Time `json:"trained_at,omitempty"`
	VerifiedCount    int        `json:"verified_count"`
	LifetimeAccuracy float64    `json:"lifetime_accuracy"`
	OverallROI       float64    `json:"overall_roi"`
	OverallBets      int        `json:"overall_bets"`
}

// EngineStats is the full operational snapshot served by the status surface.
type EngineStats struct {
	GeneratedAt     time.Time      `json:"generated_at"`
	MatchesByStatus map[string]int `json:"matches_by_status"`
	Markets         []MarketStats  `json:"markets"`
}

// StatsCollector aggregates the read-only snapshot across repositories.
type StatsCollector struct {
	matchRepo repository.MatchRepository
	predRepo  repository.PredictionRepository
	modelRepo repository.ModelRepository
	roiRepo   repository.ROIRepository
}

// NewStatsCollector creates a collector over the given repositories.
func NewStatsCollector(
	matchRepo repository.MatchRepository,
	predRepo repository.PredictionRepository,
	modelRepo repository.ModelRepository,
	roiRepo repository.ROIRepository,
) *StatsCollector {
	return &StatsCollector{
		matchRepo: matchRepo,
		predRepo:  predRepo,
		modelRepo: modelRepo,
		roiRepo:   roiRepo,
	}
}

// Collect assembles the current snapshot. A market without an active model or
// ROI history reports zero values rather than an error.
func (s *StatsCollector) Collect(ctx context.Context) (*EngineStats, error) {
	stats := &EngineStats{
		GeneratedAt:     time.Now().UTC(),
		MatchesByStatus: map[string]int{},
	}

	for _, status := range []string{models.MatchScheduled, models.MatchInProgress, models.MatchFinished, models.MatchVerified} {
		count, err := s.matchRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to count matches: %w", err)
		}
		stats.MatchesByStatus[status] = count
	}

	for _, market := range models.AllMarkets {
		snapshot, err := s.collectMarket(ctx, market)
		if err != nil {
			return nil, err
		}
		stats.Markets = append(stats.Markets, *snapshot)
	}
	return stats, nil
}

func (s *StatsCollector) collectMarket(ctx context.Context, market string) (*MarketStats, error) {
	out := &MarketStats{Market: market}

	model, err := s.modelRepo.GetActive(ctx, market)
	if err != nil && err != models.ErrNoActiveModel {
		return nil, fmt.Errorf("failed to load active model: %w", err)
	}
	if model != nil {
		trainedAt := model.TrainedAt
		out.ModelVersion = model.Version
		out.ModelAccuracy = model.Accuracy
		out.ModelSamples = model.SampleCount
		out.TrainedAt = &trainedAt
	}

	correct, total, err := s.predRepo.AccuracySince(ctx, market, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load prediction accuracy: %w", err)
	}
	out.VerifiedCount = total
	if total > 0 {
		out.LifetimeAccuracy = float64(correct) / float64(total) * 100
	}

	record, err := s.roiRepo.Get(ctx, market, models.ConditionOverall)
	if err != nil && err != models.ErrNotFound {
		return nil, fmt.Errorf("failed to load roi record: %w", err)
	}
	if record != nil {
		out.OverallROI = record.ROIPercent
		out.OverallBets = record.Bets
	}
	return out, nil
}
