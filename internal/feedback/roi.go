package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
)

// ROITracker accumulates betting performance per (market, condition) and maps
// it onto additive confidence adjustments.
type ROITracker struct {
	cfg  config.ROIConfig
	repo repository.ROIRepository
}

// NewROITracker creates a tracker over the ROI record store.
func NewROITracker(cfg config.ROIConfig, repo repository.ROIRepository) *ROITracker {
	return &ROITracker{cfg: cfg, repo: repo}
}

// Record folds one settled odds-bearing prediction into the overall record
// plus every condition tag the fixture carried. Stake and return accumulate
// as decimals.
func (r *ROITracker) Record(ctx context.Context, market string, conditions []string, won bool, odds, stakePercent float64) error {
	stake := decimal.NewFromFloat(stakePercent)
	ret := decimal.Zero
	if won {
		ret = stake.Mul(decimal.NewFromFloat(odds))
	}

	keys := append([]string{models.ConditionOverall}, conditions...)
	for _, key := range keys {
		record, err := r.repo.Get(ctx, market, key)
		if err == models.ErrNotFound {
			record = &models.ROIRecord{
				ID:          uuid.New(),
				Market:      market,
				Condition:   key,
				TotalStake:  decimal.Zero,
				TotalReturn: decimal.Zero,
			}
		} else if err != nil {
			return fmt.Errorf("failed to load roi record: %w", err)
		}

		record.Bets++
		record.TotalStake = record.TotalStake.Add(stake)
		record.TotalReturn = record.TotalReturn.Add(ret)
		record.RecalculateROI()
		record.UpdatedAt = time.Now().UTC()

		if err := r.repo.Upsert(ctx, record); err != nil {
			return fmt.Errorf("failed to upsert roi record: %w", err)
		}
	}
	return nil
}

// Adjustment returns the additive confidence step for a prediction carrying
// the given condition tags. When several records apply, the most pessimistic
// step wins; a record under the bet minimum is ignored.
func (r *ROITracker) Adjustment(ctx context.Context, market string, conditions []string) (float64, error) {
	keys := append([]string{models.ConditionOverall}, conditions...)
	adjustment := 0.0
	applied := false
	for _, key := range keys {
		record, err := r.repo.Get(ctx, market, key)
		if err == models.ErrNotFound {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to load roi record: %w", err)
		}
		if record.Bets < r.cfg.MinBets {
			continue
		}
		step := roiStep(record.ROIPercent)
		if !applied || step < adjustment {
			adjustment = step
			applied = true
		}
	}
	return adjustment, nil
}

// roiStep maps an ROI percentage onto a confidence step.
func roiStep(roiPercent float64) float64 {
	switch {
	case roiPercent < -20:
		return -12
	case roiPercent < -10:
		return -8
	case roiPercent < 0:
		return -3
	case roiPercent <= 10:
		return 0
	case roiPercent <= 25:
		return 4
	default:
		return 8
	}
}
