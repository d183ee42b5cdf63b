// Package feedback maintains the self-correcting state the verified loop
// feeds: per-band confidence calibration and per-condition ROI records.
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
)

// Confidence bands cover [30,100] in width-10 steps; the top band absorbs 100.
const (
	bandFloor   = 30
	bandCeiling = 100
)

// Calibrator adjusts confidence using observed win rates per band.
type Calibrator struct {
	cfg  config.CalibrationConfig
	repo repository.CalibrationRepository
}

// NewCalibrator creates a calibrator over the band store.
func NewCalibrator(cfg config.CalibrationConfig, repo repository.CalibrationRepository) *Calibrator {
	return &Calibrator{cfg: cfg, repo: repo}
}

// bandFor returns the [low, high] band containing the confidence value.
func (c *Calibrator) bandFor(confidence float64) (int, int) {
	value := int(confidence)
	if value < bandFloor {
		value = bandFloor
	}
	if value >= bandCeiling {
		value = bandCeiling - 1
	}
	low := bandFloor + (value-bandFloor)/c.cfg.BandWidth*c.cfg.BandWidth
	high := low + c.cfg.BandWidth
	if high >= bandCeiling {
		high = bandCeiling
	}
	return low, high
}

// Factor returns the multiplicative calibration factor for a confidence value.
// A band under the sample minimum is neutral.
func (c *Calibrator) Factor(ctx context.Context, market string, confidence float64) (float64, error) {
	low, _ := c.bandFor(confidence)
	band, err := c.repo.Get(ctx, market, low)
	if err == models.ErrNotFound {
		return 1.0, nil
	}
	if err != nil {
		return 1.0, fmt.Errorf("failed to load calibration band: %w", err)
	}
	if band.Predictions < c.cfg.MinSamples {
		return 1.0, nil
	}
	return clampFactor(band.Factor), nil
}

// Record folds one verified prediction into its band and refreshes the factor.
// Counts only grow, so a prediction graded once can never be graded again
// upstream of this call.
func (c *Calibrator) Record(ctx context.Context, market string, confidence float64, correct bool) error {
	low, high := c.bandFor(confidence)
	band, err := c.repo.Get(ctx, market, low)
	if err == models.ErrNotFound {
		band = &models.CalibrationBand{
			ID:       uuid.New(),
			Market:   market,
			BandLow:  low,
			BandHigh: high,
			Factor:   1.0,
		}
	} else if err != nil {
		return fmt.Errorf("failed to load calibration band: %w", err)
	}

	band.Predictions++
	if correct {
		band.Correct++
	}
	if band.Predictions >= c.cfg.MinSamples {
		band.Factor = clampFactor(band.WinRate() / band.Midpoint())
	}
	band.UpdatedAt = time.Now().UTC()

	return c.repo.Upsert(ctx, band)
}

func clampFactor(factor float64) float64 {
	if factor < models.MinCalibrationFactor {
		return models.MinCalibrationFactor
	}
	if factor > models.MaxCalibrationFactor {
		return models.MaxCalibrationFactor
	}
	return factor
}
