package feedback

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/models"
)

type fakeCalibrationRepo struct {
	mu    sync.Mutex
	bands map[string]*models.CalibrationBand
}

func newFakeCalibrationRepo() *fakeCalibrationRepo {
	return &fakeCalibrationRepo{bands: map[string]*models.CalibrationBand{}}
}

func calibrationKey(market string, bandLow int) string {
	return fmt.Sprintf("%s|%d", market, bandLow)
}

func (f *fakeCalibrationRepo) Get(_ context.Context, market string, bandLow int) (*models.CalibrationBand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	band, ok := f.bands[calibrationKey(market, bandLow)]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *band
	return &clone, nil
}

func (f *fakeCalibrationRepo) GetByMarket(_ context.Context, market string) ([]*models.CalibrationBand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.CalibrationBand
	for _, band := range f.bands {
		if band.Market == market {
			clone := *band
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (f *fakeCalibrationRepo) Upsert(_ context.Context, band *models.CalibrationBand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *band
	f.bands[calibrationKey(band.Market, band.BandLow)] = &clone
	return nil
}

type fakeROIRepo struct {
	mu      sync.Mutex
	records map[string]*models.ROIRecord
}

func newFakeROIRepo() *fakeROIRepo {
	return &fakeROIRepo{records: map[string]*models.ROIRecord{}}
}

func (f *fakeROIRepo) Get(_ context.Context, market, condition string) (*models.ROIRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[market+"|"+condition]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeROIRepo) GetByMarket(_ context.Context, market string) ([]*models.ROIRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.ROIRecord
	for _, record := range f.records {
		if record.Market == market {
			clone := *record
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (f *fakeROIRepo) Upsert(_ context.Context, record *models.ROIRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *record
	f.records[record.Market+"|"+record.Condition] = &clone
	return nil
}

func calibrationConfig() config.CalibrationConfig {
	return config.CalibrationConfig{BandWidth: 10, MinSamples: 20}
}

func TestCalibratorNeutralUnderMinimum(t *testing.T) {
	repo := newFakeCalibrationRepo()
	calibrator := NewCalibrator(calibrationConfig(), repo)
	ctx := context.Background()

	for i := 0; i < 19; i++ {
		require.NoError(t, calibrator.Record(ctx, models.MarketMatchResult, 72, i%2 == 0))
	}

	factor, err := calibrator.Factor(ctx, models.MarketMatchResult, 72)
	require.NoError(t, err)
	assert.Equal(t, 1.0, factor)
}

func TestCalibratorFactorFromWinRate(t *testing.T) {
	repo := newFakeCalibrationRepo()
	calibrator := NewCalibrator(calibrationConfig(), repo)
	ctx := context.Background()

	// 15 of 25 correct in the 70-80 band: win rate 0.60 vs midpoint 0.75.
	for i := 0; i < 25; i++ {
		require.NoError(t, calibrator.Record(ctx, models.MarketMatchResult, 74, i < 15))
	}

	factor, err := calibrator.Factor(ctx, models.MarketMatchResult, 74)
	require.NoError(t, err)
	assert.InDelta(t, 0.60/0.75, factor, 1e-9)
}

func TestCalibratorFactorStaysInBounds(t *testing.T) {
	ctx := context.Background()

	// All-loss high band would compute near zero; it must clamp at the floor.
	repo := newFakeCalibrationRepo()
	calibrator := NewCalibrator(calibrationConfig(), repo)
	for i := 0; i < 30; i++ {
		require.NoError(t, calibrator.Record(ctx, models.MarketBTTS, 92, false))
	}
	factor, err := calibrator.Factor(ctx, models.MarketBTTS, 92)
	require.NoError(t, err)
	assert.Equal(t, models.MinCalibrationFactor, factor)

	// All-win low band would compute near three; it must clamp at the cap.
	for i := 0; i < 30; i++ {
		require.NoError(t, calibrator.Record(ctx, models.MarketBTTS, 33, true))
	}
	factor, err = calibrator.Factor(ctx, models.MarketBTTS, 33)
	require.NoError(t, err)
	assert.Equal(t, models.MaxCalibrationFactor, factor)
}

func TestCalibratorBandEdges(t *testing.T) {
	calibrator := NewCalibrator(calibrationConfig(), newFakeCalibrationRepo())

	tests := []struct {
		confidence float64
		low, high  int
	}{
		{confidence: 30, low: 30, high: 40},
		{confidence: 39.9, low: 30, high: 40},
		{confidence: 40, low: 40, high: 50},
		{confidence: 89.9, low: 80, high: 90},
		{confidence: 95, low: 90, high: 100},
		{confidence: 100, low: 90, high: 100},
	}
	for _, tt := range tests {
		low, high := calibrator.bandFor(tt.confidence)
		assert.Equal(t, tt.low, low, "confidence %.1f", tt.confidence)
		assert.Equal(t, tt.high, high, "confidence %.1f", tt.confidence)
	}
}

func TestROIRecordAccumulates(t *testing.T) {
	repo := newFakeROIRepo()
	tracker := NewROITracker(config.ROIConfig{MinBets: 20}, repo)
	ctx := context.Background()

	require.NoError(t, tracker.Record(ctx, models.MarketMatchResult, []string{models.ConditionDerby}, true, 2.0, 1.5))
	require.NoError(t, tracker.Record(ctx, models.MarketMatchResult, []string{models.ConditionDerby}, false, 3.0, 1.5))

	overall, err := repo.Get(ctx, models.MarketMatchResult, models.ConditionOverall)
	require.NoError(t, err)
	assert.Equal(t, 2, overall.Bets)
	assert.True(t, overall.TotalStake.Equal(decimal.NewFromFloat(3.0)))
	assert.True(t, overall.TotalReturn.Equal(decimal.NewFromFloat(3.0)))
	assert.InDelta(t, 0.0, overall.ROIPercent, 1e-9)

	derby, err := repo.Get(ctx, models.MarketMatchResult, models.ConditionDerby)
	require.NoError(t, err)
	assert.Equal(t, 2, derby.Bets)
}

func TestROIStepMapping(t *testing.T) {
	tests := []struct {
		roi  float64
		step float64
	}{
		{roi: -35, step: -12},
		{roi: -15, step: -8},
		{roi: -5, step: -3},
		{roi: 0, step: 0},
		{roi: 8, step: 0},
		{roi: 18, step: 4},
		{roi: 40, step: 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.step, roiStep(tt.roi), "roi %.0f", tt.roi)
	}
}

func TestROIAdjustmentIgnoresThinRecords(t *testing.T) {
	repo := newFakeROIRepo()
	tracker := NewROITracker(config.ROIConfig{MinBets: 20}, repo)
	ctx := context.Background()

	// 5 losing bets is under the minimum, so no adjustment applies yet.
	for i := 0; i < 5; i++ {
		require.NoError(t, tracker.Record(ctx, models.MarketMatchResult, nil, false, 2.0, 1.0))
	}

	adjustment, err := tracker.Adjustment(ctx, models.MarketMatchResult, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, adjustment)
}

func TestROIAdjustmentMostPessimisticWins(t *testing.T) {
	repo := newFakeROIRepo()
	tracker := NewROITracker(config.ROIConfig{MinBets: 20}, repo)
	ctx := context.Background()

	// Overall profitable, derby condition deeply negative.
	seed := func(condition string, roiPercent float64) {
		record := &models.ROIRecord{
			Market:      models.MarketMatchResult,
			Condition:   condition,
			Bets:        25,
			TotalStake:  decimal.NewFromInt(100),
			TotalReturn: decimal.NewFromFloat(100 * (1 + roiPercent/100)),
		}
		record.RecalculateROI()
		require.NoError(t, repo.Upsert(ctx, record))
	}
	seed(models.ConditionOverall, 15)
	seed(models.ConditionDerby, -25)

	adjustment, err := tracker.Adjustment(ctx, models.MarketMatchResult, []string{models.ConditionDerby})
	require.NoError(t, err)
	assert.Equal(t, -12.0, adjustment)

	// Without the derby tag the profitable overall record applies.
	adjustment, err = tracker.Adjustment(ctx, models.MarketMatchResult, nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, adjustment)
}
