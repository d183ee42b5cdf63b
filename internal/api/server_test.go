package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/match-oracle/internal/cache"
	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/features"
	"github.com/yourusername/match-oracle/internal/feedback"
	"github.com/yourusername/match-oracle/internal/inference"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/rating"
	"github.com/yourusername/match-oracle/internal/service"
	"github.com/yourusername/match-oracle/internal/training"
)

// fakeMatchRepo serves a fixed set of matches.
type fakeMatchRepo struct {
	matches []*models.Match
}

func (f *fakeMatchRepo) Create(_ context.Context, m *models.Match) error {
	f.matches = append(f.matches, m)
	return nil
}

func (f *fakeMatchRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Match, error) {
	for _, m := range f.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeMatchRepo) GetByExternalID(_ context.Context, externalID string) (*models.Match, error) {
	for _, m := range f.matches {
		if m.ExternalID == externalID {
			return m, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeMatchRepo) GetUpcoming(_ context.Context, _ int) ([]*models.Match, error) {
	return nil, nil
}

func (f *fakeMatchRepo) GetFinishedUnverified(_ context.Context, _ int) ([]*models.Match, error) {
	return nil, nil
}

func (f *fakeMatchRepo) GetVerified(_ context.Context, _ int) ([]*models.Match, error) {
	return nil, nil
}

func (f *fakeMatchRepo) GetVerifiedBefore(_ context.Context, _, _ string, _ time.Time, _ int) ([]*models.Match, error) {
	return nil, nil
}

func (f *fakeMatchRepo) GetHeadToHeadBefore(_ context.Context, _, _ string, _ time.Time, _ int) ([]*models.Match, error) {
	return nil, nil
}

func (f *fakeMatchRepo) Update(_ context.Context, _ *models.Match) error { return nil }
func (f *fakeMatchRepo) CountByStatus(_ context.Context, _ string) (int, error) {
	return 0, nil
}

// fakePredictionRepo is an empty prediction store.
type fakePredictionRepo struct{}

func (f *fakePredictionRepo) Create(_ context.Context, _ *models.Prediction) error { return nil }
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

// fakeModelRepo has no active models.
type fakeModelRepo struct{}

func (f *fakeModelRepo) Create(_ context.Context, _ *models.TrainedModel) error { return nil }
func (f *fakeModelRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.TrainedModel, error) {
	return nil, models.ErrNotFound
}

func (f *fakeModelRepo) GetActive(_ context.Context, _ string) (*models.TrainedModel, error) {
	return nil, models.ErrNoActiveModel
}

func (f *fakeModelRepo) GetAllActive(_ context.Context) ([]*models.TrainedModel, error) {
	return nil, nil
}
func (f *fakeModelRepo) Activate(_ context.Context, _ uuid.UUID) error { return nil }

// fakeRatingRepo has no stored ratings.
type fakeRatingRepo struct{}

func (f *fakeRatingRepo) Get(_ context.Context, _, _ string) (*models.TeamRating, error) {
	return nil, models.ErrNotFound
}
func (f *fakeRatingRepo) Upsert(_ context.Context, _ *models.TeamRating) error        { return nil }
func (f *fakeRatingRepo) UpsertPair(_ context.Context, _, _ *models.TeamRating) error { return nil }
func (f *fakeRatingRepo) GetByCompetition(_ context.Context, _ string) ([]*models.TeamRating, error) {
	return nil, nil
}

// fakeCalibrationRepo has no bands.
type fakeCalibrationRepo struct{}

func (f *fakeCalibrationRepo) Get(_ context.Context, _ string, _ int) (*models.CalibrationBand, error) {
	return nil, models.ErrNotFound
}

func (f *fakeCalibrationRepo) GetByMarket(_ context.Context, _ string) ([]*models.CalibrationBand, error) {
	return nil, nil
}
func (f *fakeCalibrationRepo) Upsert(_ context.Context, _ *models.CalibrationBand) error { return nil }

// fakeROIRepo has no records.
type fakeROIRepo struct{}

func (f *fakeROIRepo) Get(_ context.Context, _, _ string) (*models.ROIRecord, error) {
	return nil, models.ErrNotFound
}
func (f *fakeROIRepo) GetByMarket(_ context.Context, _ string) ([]*models.ROIRecord, error) {
	return nil, nil
}
func (f *fakeROIRepo) Upsert(_ context.Context, _ *models.ROIRecord) error { return nil }

// fakeEventRepo discards events.
type fakeEventRepo struct{}

func (f *fakeEventRepo) Append(_ context.Context, _ *models.EngineEvent) error { return nil }
func (f *fakeEventRepo) GetRecent(_ context.Context, _ string, _ int) ([]*models.EngineEvent, error) {
	return nil, nil
}

func newTestServer(matchRepo *fakeMatchRepo) *Server {
	log := logrus.New()
	log.SetOutput(io.Discard)
	engineLog := logger.NewEngineLogger(log)

	ratingCfg := config.RatingConfig{
		HomeAdvantage:       100,
		KFactorNew:          40,
		KFactorEstablished:  20,
		ExperienceThreshold: 10,
	}
	predRepo := &fakePredictionRepo{}
	modelRepo := &fakeModelRepo{}
	roiRepo := &fakeROIRepo{}
	eventRepo := &fakeEventRepo{}

	ratings := rating.NewEngine(ratingCfg, &fakeRatingRepo{}, eventRepo, engineLog)
	builder := features.NewBuilder(matchRepo, ratings)
	calibrator := feedback.NewCalibrator(config.CalibrationConfig{BandWidth: 10, MinSamples: 20}, &fakeCalibrationRepo{})
	roi := feedback.NewROITracker(config.ROIConfig{MinBets: 20}, roiRepo)
	modelCache := cache.New(cache.Config{TTLs: map[cache.Type]time.Duration{cache.TypeModel: time.Hour}})

	inferCfg := config.InferenceConfig{
		MinConfidence:      30,
		MaxConfidence:      95,
		MinValueConfidence: 55,
		MinEdge:            5,
		KellyFraction:      0.25,
		MinStakePercent:    0.5,
		MaxStakePercent:    5.0,
	}
	predictor := inference.NewEngine(inferCfg, modelRepo, predRepo, builder, calibrator, roi, modelCache, engineLog)

	trainCfg := config.TrainingConfig{
		MinSamples:          50,
		TrainFraction:       0.75,
		CalibrationFraction: 0.10,
		Markets:             models.AllMarkets,
	}
	trainer := training.NewTrainer(trainCfg, matchRepo, modelRepo, eventRepo, builder, engineLog)

	verifier := service.NewVerifier(matchRepo, predRepo, eventRepo, ratings, calibrator, roi, engineLog)
	stats := service.NewStatsCollector(matchRepo, predRepo, modelRepo, roiRepo)

	return NewServer(Config{
		MatchRepo: matchRepo,
		Predictor: predictor,
		Trainer:   trainer,
		Verifier:  verifier,
		Stats:     stats,
		Logger:    log,
	})
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPredictNoActiveModel(t *testing.T) {
	match := &models.Match{
		ID:          uuid.New(),
		ExternalID:  "fx-1",
		Competition: "premier_league",
		HomeTeam:    "Arsenal",
		AwayTeam:    "Chelsea",
		KickoffAt:   time.Now().Add(24 * time.Hour),
		Status:      models.MatchScheduled,
	}
	server := newTestServer(&fakeMatchRepo{matches: []*models.Match{match}})

	rec := postJSON(t, server.Handler(), "/predict", predictRequest{
		FixtureID: match.ID.String(),
		Market:    models.MarketMatchResult,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp predictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
	assert.Equal(t, "no_active_model", resp.Reason)
	assert.Nil(t, resp.Prediction)
}

func TestPredictByExternalID(t *testing.T) {
	match := &models.Match{
		ID:          uuid.New(),
		ExternalID:  "fx-external",
		Competition: "premier_league",
		HomeTeam:    "Arsenal",
		AwayTeam:    "Chelsea",
		KickoffAt:   time.Now().Add(24 * time.Hour),
		Status:      models.MatchScheduled,
	}
	server := newTestServer(&fakeMatchRepo{matches: []*models.Match{match}})

	rec := postJSON(t, server.Handler(), "/predict", predictRequest{
		FixtureID: "fx-external",
		Market:    models.MarketMatchResult,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPredictFixtureNotFound(t *testing.T) {
	server := newTestServer(&fakeMatchRepo{})

	rec := postJSON(t, server.Handler(), "/predict", predictRequest{
		FixtureID: uuid.New().String(),
		Market:    models.MarketMatchResult,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredictValidation(t *testing.T) {
	server := newTestServer(&fakeMatchRepo{})

	rec := postJSON(t, server.Handler(), "/predict", predictRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	got := httptest.NewRecorder()
	server.Handler().ServeHTTP(got, req)
	assert.Equal(t, http.StatusMethodNotAllowed, got.Code)
}

func TestTrainUnknownMarket(t *testing.T) {
	server := newTestServer(&fakeMatchRepo{})

	rec := postJSON(t, server.Handler(), "/train", trainRequest{Market: "handicap"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrainInsufficientData(t *testing.T) {
	server := newTestServer(&fakeMatchRepo{})

	rec := postJSON(t, server.Handler(), "/train", trainRequest{Market: models.MarketMatchResult})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	server := newTestServer(&fakeMatchRepo{})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats service.EngineStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Len(t, stats.Markets, len(models.AllMarkets))
}

func TestVerifyEndpoint(t *testing.T) {
	server := newTestServer(&fakeMatchRepo{})

	req := httptest.NewRequest(http.MethodPost, "/verify", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.VerifyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Zero(t, result.Verified)
}
