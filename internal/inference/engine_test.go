package inference

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/match-oracle/internal/cache"
	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/ensemble"
	"github.com/yourusername/match-oracle/internal/features"
	"github.com/yourusername/match-oracle/internal/feedback"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/rating"
)

// stubClassifier returns a fixed distribution regardless of input.
type stubClassifier struct {
	probs []float64
}

func (s *stubClassifier) Fit(_ [][]float64, _ []int) error   { return nil }
func (s *stubClassifier) PredictProba(_ []float64) []float64 { return s.probs }
func (s *stubClassifier) FeatureImportances() []float64      { return nil }

type fakeMatchRepo struct{}

func (fakeMatchRepo) Create(_ context.Context, _ *models.Match) error { return nil }
func (fakeMatchRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.Match, error) {
	return nil, models.ErrNotFound
}
func (fakeMatchRepo) GetByExternalID(_ context.Context, _ string) (*models.Match, error) {
	return nil, models.ErrNotFound
}
func (fakeMatchRepo) GetUpcoming(_ context.Context, _ int) ([]*models.Match, error) {
	return nil, nil
}
func (fakeMatchRepo) GetFinishedUnverified(_ context.Context, _ int) ([]*models.Match, error) {
	return nil, nil
}
func (fakeMatchRepo) GetVerified(_ context.Context, _ int) ([]*models.Match, error) {
	return nil, nil
}
func (fakeMatchRepo) GetVerifiedBefore(_ context.Context, _, _ string, _ time.Time, _ int) ([]*models.Match, error) {
	return nil, nil
}
func (fakeMatchRepo) GetHeadToHeadBefore(_ context.Context, _, _ string, _ time.Time, _ int) ([]*models.Match, error) {
	return nil, nil
}
func (fakeMatchRepo) Update(_ context.Context, _ *models.Match) error { return nil }
func (fakeMatchRepo) CountByStatus(_ context.Context, _ string) (int, error) {
	return 0, nil
}

type fakeRatingRepo struct{}

func (fakeRatingRepo) Get(_ context.Context, _, _ string) (*models.TeamRating, error) {
	return nil, models.ErrNotFound
}
func (fakeRatingRepo) Upsert(_ context.Context, _ *models.TeamRating) error        { return nil }
func (fakeRatingRepo) UpsertPair(_ context.Context, _, _ *models.TeamRating) error { return nil }
func (fakeRatingRepo) GetByCompetition(_ context.Context, _ string) ([]*models.TeamRating, error) {
	return nil, nil
}

type fakeEventRepo struct{}

func (fakeEventRepo) Append(_ context.Context, _ *models.EngineEvent) error { return nil }
func (fakeEventRepo) GetRecent(_ context.Context, _ string, _ int) ([]*models.EngineEvent, error) {
	return nil, nil
}

type fakeModelRepo struct {
	mu     sync.Mutex
	active map[string]*models.TrainedModel
}

func (f *fakeModelRepo) Create(_ context.Context, _ *models.TrainedModel) error { return nil }
func (f *fakeModelRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.TrainedModel, error) {
	return nil, models.ErrNotFound
}
func (f *fakeModelRepo) GetActive(_ context.Context, market string) (*models.TrainedModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	model, ok := f.active[market]
	if !ok {
		return nil, models.ErrNoActiveModel
	}
	return model, nil
}
func (f *fakeModelRepo) GetAllActive(_ context.Context) ([]*models.TrainedModel, error) {
	return nil, nil
}
func (f *fakeModelRepo) Activate(_ context.Context, _ uuid.UUID) error { return nil }

type fakePredictionRepo struct {
	mu      sync.Mutex
	created []*models.Prediction
}

func (f *fakePredictionRepo) Create(_ context.Context, prediction *models.Prediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, prediction)
	return nil
}
func (f *fakePredictionRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.Prediction, error) {
	return nil, models.ErrNotFound
}
func (f *fakePredictionRepo) GetByMatchID(_ context.Context, _ uuid.UUID) ([]*models.Prediction, error) {
	return nil, nil
}
func (f *fakePredictionRepo) GetPendingForMatch(_ context.Context, _ uuid.UUID) ([]*models.Prediction, error) {
	return nil, nil
}
func (f *fakePredictionRepo) GetVerifiedSince(_ context.Context, _ string, _ time.Time) ([]*models.Prediction, error) {
	return nil, nil
}
func (f *fakePredictionRepo) CountVerified(_ context.Context, _ string) (int, error) { return 0, nil }
func (f *fakePredictionRepo) AccuracySince(_ context.Context, _ string, _ time.Time) (int, int, error) {
	return 0, 0, nil
}
func (f *fakePredictionRepo) MarkVerified(_ context.Context, _ uuid.UUID, _ string, _ bool) error {
	return nil
}

type fakeCalibrationRepo struct {
	mu    sync.Mutex
	bands map[string]*models.CalibrationBand
}

func (f *fakeCalibrationRepo) Get(_ context.Context, market string, bandLow int) (*models.CalibrationBand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	band, ok := f.bands[key(market, bandLow)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return band, nil
}
func (f *fakeCalibrationRepo) GetByMarket(_ context.Context, _ string) ([]*models.CalibrationBand, error) {
	return nil, nil
}
func (f *fakeCalibrationRepo) Upsert(_ context.Context, band *models.CalibrationBand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bands == nil {
		f.bands = map[string]*models.CalibrationBand{}
	}
	f.bands[key(band.Market, band.BandLow)] = band
	return nil
}

func key(market string, bandLow int) string {
	return fmt.Sprintf("%s|%d", market, bandLow)
}

type fakeROIRepo struct {
	mu      sync.Mutex
	records map[string]*models.ROIRecord
}

func (f *fakeROIRepo) Get(_ context.Context, market, condition string) (*models.ROIRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[market+"|"+condition]
	if !ok {
		return nil, models.ErrNotFound
	}
	return record, nil
}
func (f *fakeROIRepo) GetByMarket(_ context.Context, _ string) ([]*models.ROIRecord, error) {
	return nil, nil
}
func (f *fakeROIRepo) Upsert(_ context.Context, record *models.ROIRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		f.records = map[string]*models.ROIRecord{}
	}
	f.records[record.Market+"|"+record.Condition] = record
	return nil
}

type testHarness struct {
	engine    *Engine
	modelRepo *fakeModelRepo
	predRepo  *fakePredictionRepo
	calibRepo *fakeCalibrationRepo
	roiRepo   *fakeROIRepo
	cache     *cache.Cache
}

func newTestEngine(t *testing.T) *testHarness {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	engineLog := logger.NewEngineLogger(log)

	ratings := rating.NewEngine(config.RatingConfig{
		HomeAdvantage: 100, KFactorNew: 40, KFactorEstablished: 20, ExperienceThreshold: 10,
	}, fakeRatingRepo{}, fakeEventRepo{}, engineLog)
	builder := features.NewBuilder(fakeMatchRepo{}, ratings)

	modelRepo := &fakeModelRepo{active: map[string]*models.TrainedModel{}}
	predRepo := &fakePredictionRepo{}
	calibRepo := &fakeCalibrationRepo{}
	roiRepo := &fakeROIRepo{}
	modelCache := cache.New(cache.Config{TTLs: map[cache.Type]time.Duration{cache.TypeModel: time.Hour}})

	cfg := config.InferenceConfig{
		MinConfidence:      30,
		MaxConfidence:      95,
		MinValueConfidence: 55,
		MinEdge:            5,
		KellyFraction:      0.25,
		MinStakePercent:    0.5,
		MaxStakePercent:    5.0,
	}
	engine := NewEngine(cfg, modelRepo, predRepo, builder,
		feedback.NewCalibrator(config.CalibrationConfig{BandWidth: 10, MinSamples: 20}, calibRepo),
		feedback.NewROITracker(config.ROIConfig{MinBets: 20}, roiRepo),
		modelCache, engineLog)

	return &testHarness{
		engine:    engine,
		modelRepo: modelRepo,
		predRepo:  predRepo,
		calibRepo: calibRepo,
		roiRepo:   roiRepo,
		cache:     modelCache,
	}
}

// seedStubModel places a cached artifact of stub members for the market.
func (h *testHarness) seedStubModel(market string, members []*ensemble.Member) *models.TrainedModel {
	model := &models.TrainedModel{ID: uuid.New(), Market: market, Version: "test", Active: true}
	h.cache.Set(cache.TypeModel, market, &cachedModel{model: model, artifact: &ensemble.Artifact{Members: members}})
	return model
}

func upcomingFixture() *models.Match {
	return &models.Match{
		ID:          uuid.New(),
		ExternalID:  "fixture-1",
		Competition: "premier_league",
		HomeTeam:    "arsenal",
		AwayTeam:    "spurs",
		KickoffAt:   time.Now().Add(24 * time.Hour),
		Status:      models.MatchScheduled,
	}
}

// Three members agreeing on home win with probabilities 0.70, 0.75, 0.80 and
// vote weights 1.0, 1.2, 0.8.
func unanimousMembers() []*ensemble.Member {
	return []*ensemble.Member{
		{Kind: ensemble.KindForest, Weight: 1.0, Classifier: &stubClassifier{probs: []float64{0.70, 0.20, 0.10}}},
		{Kind: ensemble.KindBoost, Weight: 1.2, Classifier: &stubClassifier{probs: []float64{0.75, 0.15, 0.10}}},
		{Kind: ensemble.KindLogistic, Weight: 0.8, Classifier: &stubClassifier{probs: []float64{0.80, 0.12, 0.08}}},
	}
}

func TestPredictUnanimousConsensus(t *testing.T) {
	h := newTestEngine(t)
	h.seedStubModel(models.MarketMatchResult, unanimousMembers())

	result, err := h.engine.Predict(context.Background(), upcomingFixture(), models.MarketMatchResult)
	require.NoError(t, err)
	require.True(t, result.Available)

	p := result.Prediction
	assert.Equal(t, models.OutcomeHomeWin, p.Predicted)
	assert.Equal(t, 1.0, p.Agreement)
	// Weighted mean (0.70+0.75*1.2+0.80*0.8)/3.0 = 0.74667, plus unanimity 15.
	assert.InDelta(t, 74.667, p.RawConfidence, 0.01)
	assert.InDelta(t, 89.667, p.Confidence, 0.01)
	assert.Equal(t, 1.0, p.CalibrationApplied)
	assert.Equal(t, 0.0, p.ROIAdjustment)

	require.Len(t, h.predRepo.created, 1)
	assert.Equal(t, p.ID, h.predRepo.created[0].ID)
}

func TestPredictMinorityWinnerPenalty(t *testing.T) {
	h := newTestEngine(t)
	// One heavy member carries the weighted vote; the other two disagree.
	h.seedStubModel(models.MarketBTTS, []*ensemble.Member{
		{Kind: ensemble.KindForest, Weight: 3.0, Classifier: &stubClassifier{probs: []float64{0.90, 0.10}}},
		{Kind: ensemble.KindBoost, Weight: 0.5, Classifier: &stubClassifier{probs: []float64{0.20, 0.80}}},
		{Kind: ensemble.KindLogistic, Weight: 0.5, Classifier: &stubClassifier{probs: []float64{0.30, 0.70}}},
	})

	result, err := h.engine.Predict(context.Background(), upcomingFixture(), models.MarketBTTS)
	require.NoError(t, err)
	require.True(t, result.Available)

	p := result.Prediction
	assert.Equal(t, models.OutcomeYes, p.Predicted)
	assert.InDelta(t, 1.0/3.0, p.Agreement, 1e-9)
	// Weighted winner probability 0.7375, minus the minority penalty 10.
	assert.InDelta(t, 73.75, p.RawConfidence, 0.01)
	assert.InDelta(t, 63.75, p.Confidence, 0.01)
}

func TestPredictAppliesCalibrationThenROI(t *testing.T) {
	h := newTestEngine(t)
	h.seedStubModel(models.MarketMatchResult, unanimousMembers())

	// Confidence after consensus is 89.67, landing in the 80-90 band.
	require.NoError(t, h.calibRepo.Upsert(context.Background(), &models.CalibrationBand{
		Market: models.MarketMatchResult, BandLow: 80, BandHigh: 90,
		Predictions: 25, Correct: 17, Factor: 0.8,
	}))
	record := &models.ROIRecord{
		Market: models.MarketMatchResult, Condition: models.ConditionOverall,
		Bets: 30, ROIPercent: -25,
	}
	require.NoError(t, h.roiRepo.Upsert(context.Background(), record))

	result, err := h.engine.Predict(context.Background(), upcomingFixture(), models.MarketMatchResult)
	require.NoError(t, err)
	require.True(t, result.Available)

	p := result.Prediction
	assert.Equal(t, 0.8, p.CalibrationApplied)
	assert.Equal(t, -12.0, p.ROIAdjustment)
	// 89.667*0.8 = 71.733, then the -12 step.
	assert.InDelta(t, 59.733, p.Confidence, 0.01)
}

func TestPredictConfidenceStaysInBounds(t *testing.T) {
	h := newTestEngine(t)
	// Overconfident unanimous ensemble must clamp at the ceiling.
	h.seedStubModel(models.MarketBTTS, []*ensemble.Member{
		{Kind: ensemble.KindForest, Weight: 1.0, Classifier: &stubClassifier{probs: []float64{0.97, 0.03}}},
		{Kind: ensemble.KindBoost, Weight: 1.2, Classifier: &stubClassifier{probs: []float64{0.98, 0.02}}},
		{Kind: ensemble.KindLogistic, Weight: 0.8, Classifier: &stubClassifier{probs: []float64{0.99, 0.01}}},
	})

	result, err := h.engine.Predict(context.Background(), upcomingFixture(), models.MarketBTTS)
	require.NoError(t, err)
	require.True(t, result.Available)
	assert.Equal(t, 95.0, result.Prediction.Confidence)
}

func TestPredictStakingAndValueBet(t *testing.T) {
	h := newTestEngine(t)
	h.seedStubModel(models.MarketMatchResult, unanimousMembers())

	fixture := upcomingFixture()
	fixture.Odds = &models.MatchOdds{Home: 2.4, Draw: 3.3, Away: 3.1}

	result, err := h.engine.Predict(context.Background(), fixture, models.MarketMatchResult)
	require.NoError(t, err)
	require.True(t, result.Available)

	p := result.Prediction
	assert.Equal(t, 2.4, p.Odds)
	assert.Greater(t, p.ExpectedValue, 0.0)
	// Raw quarter Kelly far exceeds the cap at these numbers.
	assert.Equal(t, 5.0, p.StakePercent)
	assert.True(t, p.ValueBet)
}

func TestPredictMinStakeOnNonPositiveEV(t *testing.T) {
	h := newTestEngine(t)
	// Confident prediction priced at odds too short to carry positive EV.
	h.seedStubModel(models.MarketOverUnder25, []*ensemble.Member{
		{Kind: ensemble.KindForest, Weight: 1.0, Classifier: &stubClassifier{probs: []float64{0.52, 0.48}}},
		{Kind: ensemble.KindBoost, Weight: 1.2, Classifier: &stubClassifier{probs: []float64{0.52, 0.48}}},
		{Kind: ensemble.KindLogistic, Weight: 0.8, Classifier: &stubClassifier{probs: []float64{0.52, 0.48}}},
	})

	fixture := upcomingFixture()
	fixture.Odds = &models.MatchOdds{Over25: 1.2, Under25: 4.5}

	result, err := h.engine.Predict(context.Background(), fixture, models.MarketOverUnder25)
	require.NoError(t, err)
	require.True(t, result.Available)

	// The stake floors at the minimum rather than dropping out of range.
	p := result.Prediction
	assert.Less(t, p.ExpectedValue, 0.0)
	assert.Equal(t, 0.5, p.StakePercent)
	assert.False(t, p.ValueBet)
}

func TestPredictNoActiveModel(t *testing.T) {
	h := newTestEngine(t)

	result, err := h.engine.Predict(context.Background(), upcomingFixture(), models.MarketMatchResult)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, ReasonNoActiveModel, result.Reason)
	assert.Nil(t, result.Prediction)
}

func TestPredictMissingFeatures(t *testing.T) {
	h := newTestEngine(t)
	h.seedStubModel(models.MarketMatchResult, unanimousMembers())

	fixture := upcomingFixture()
	fixture.HomeTeam = ""

	result, err := h.engine.Predict(context.Background(), fixture, models.MarketMatchResult)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, ReasonMissingFeatures, result.Reason)
}

func TestPredictUnknownMarket(t *testing.T) {
	h := newTestEngine(t)

	result, err := h.engine.Predict(context.Background(), upcomingFixture(), "handicap")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, ReasonUnknownMarket, result.Reason)
}

func TestInvalidateModelDropsCachedArtifact(t *testing.T) {
	h := newTestEngine(t)
	h.seedStubModel(models.MarketMatchResult, unanimousMembers())

	h.engine.InvalidateModel(models.MarketMatchResult)

	// With the cache empty and no repository model, prediction is unavailable.
	result, err := h.engine.Predict(context.Background(), upcomingFixture(), models.MarketMatchResult)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, ReasonNoActiveModel, result.Reason)
}
