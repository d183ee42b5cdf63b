// Package inference serves predictions from the active per-market ensembles.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/match-oracle/internal/cache"
	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/ensemble"
	"github.com/yourusername/match-oracle/internal/features"
	"github.com/yourusername/match-oracle/internal/feedback"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/metrics"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
)

// Unavailability reasons surfaced to callers instead of errors.
const (
	ReasonNoActiveModel   = "no_active_model"
	ReasonMissingFeatures = "missing_features"
	ReasonUnknownMarket   = "unknown_market"
)

// Result is one inference outcome. Available is false when the engine cannot
// predict; Reason says why and Prediction stays nil.
type Result struct {
	Available  bool
	Reason     string
	Prediction *models.Prediction
}

// Engine turns a fixture and market into a persisted, confidence-adjusted
// prediction.
type Engine struct {
	cfg        config.InferenceConfig
	modelRepo  repository.ModelRepository
	predRepo   repository.PredictionRepository
	builder    *features.Builder
	calibrator *feedback.Calibrator
	roi        *feedback.ROITracker
	cache      *cache.Cache
	log        *logger.EngineLogger
}

// NewEngine creates an inference engine over the given collaborators.
func NewEngine(cfg config.InferenceConfig, modelRepo repository.ModelRepository, predRepo repository.PredictionRepository, builder *features.Builder, calibrator *feedback.Calibrator, roi *feedback.ROITracker, modelCache *cache.Cache, log *logger.EngineLogger) *Engine {
	return &Engine{
		cfg:        cfg,
		modelRepo:  modelRepo,
		predRepo:   predRepo,
		builder:    builder,
		calibrator: calibrator,
		roi:        roi,
		cache:      modelCache,
		log:        log,
	}
}

type cachedModel struct {
	model    *models.TrainedModel
	artifact *ensemble.Artifact
}

// InvalidateModel drops a market's cached artifact so the next prediction
// loads the freshly activated version.
func (e *Engine) InvalidateModel(market string) {
	e.cache.Delete(cache.TypeModel, market)
}

// Predict issues and persists one prediction for the fixture and market.
func (e *Engine) Predict(ctx context.Context, match *models.Match, market string) (*Result, error) {
	started := time.Now()
	defer func() {
		metrics.RecordPredictionLatency(time.Since(started).Seconds())
	}()

	if !models.ValidMarket(market) {
		return &Result{Reason: ReasonUnknownMarket}, nil
	}

	loaded, err := e.loadModel(ctx, market)
	if err == models.ErrNoActiveModel {
		return &Result{Reason: ReasonNoActiveModel}, nil
	}
	if err != nil {
		return nil, err
	}

	vector, err := e.builder.Build(ctx, match)
	if err == models.ErrMissingFeatureInput {
		return &Result{Reason: ReasonMissingFeatures}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build features: %w", err)
	}

	classes := models.MarketClasses(market)
	values := vector.Values()
	combined := ensemble.Combine(loaded.artifact.Members, values)

	winner := 0
	for c := range combined {
		if combined[c] > combined[winner] {
			winner = c
		}
	}
	agreement := memberAgreement(loaded.artifact.Members, values, winner)

	rawProb := combined[winner]
	if loaded.artifact.Calibrator != nil {
		rawProb = loaded.artifact.Calibrator.Transform(rawProb)
	}

	rawConfidence := e.clamp(rawProb * 100)
	confidence := e.clamp(rawConfidence + e.consensusAdjustment(agreement))

	factor, err := e.calibrator.Factor(ctx, market, confidence)
	if err != nil {
		return nil, err
	}
	confidence = e.clamp(confidence * factor)

	conditions := vector.Conditions()
	roiAdjustment, err := e.roi.Adjustment(ctx, market, conditions)
	if err != nil {
		return nil, err
	}
	confidence = e.clamp(confidence + roiAdjustment)

	prediction := &models.Prediction{
		ID:                 uuid.New(),
		MatchID:            match.ID,
		ModelID:            loaded.model.ID,
		Market:             market,
		Predicted:          classes[winner],
		RawConfidence:      rawConfidence,
		Confidence:         confidence,
		Agreement:          agreement,
		CalibrationApplied: factor,
		ROIAdjustment:      roiAdjustment,
		Conditions:         conditions,
		CreatedAt:          time.Now().UTC(),
	}
	e.applyStaking(prediction, vector, classes[winner])

	if err := e.predRepo.Create(ctx, prediction); err != nil {
		return nil, fmt.Errorf("failed to persist prediction: %w", err)
	}

	metrics.RecordPrediction(market, confidence, prediction.ValueBet)
	e.log.LogPrediction(market, prediction.Predicted, confidence, agreement, prediction.ValueBet)

	return &Result{Available: true, Prediction: prediction}, nil
}

// PredictAll issues predictions for every supported market of the fixture.
func (e *Engine) PredictAll(ctx context.Context, match *models.Match) (map[string]*Result, error) {
	results := make(map[string]*Result, len(models.AllMarkets))
	for _, market := range models.AllMarkets {
		result, err := e.Predict(ctx, match, market)
		if err != nil {
			return nil, err
		}
		results[market] = result
	}
	return results, nil
}

func (e *Engine) loadModel(ctx context.Context, market string) (*cachedModel, error) {
	if value, found := e.cache.Get(cache.TypeModel, market); found {
		if loaded, ok := value.(*cachedModel); ok {
			return loaded, nil
		}
	}

	model, err := e.modelRepo.GetActive(ctx, market)
	if err != nil {
		return nil, err
	}
	artifact, err := ensemble.UnmarshalArtifact(model.Members)
	if err != nil {
		return nil, fmt.Errorf("failed to restore model %s: %w", model.ID, err)
	}

	loaded := &cachedModel{model: model, artifact: artifact}
	e.cache.Set(cache.TypeModel, market, loaded)
	return loaded, nil
}

// memberAgreement is the unweighted fraction of members whose own top class
// matches the weighted winner.
func memberAgreement(members []*ensemble.Member, values []float64, winner int) float64 {
	if len(members) == 0 {
		return 0
	}
	agreeing := 0
	for _, member := range members {
		probs := member.Classifier.PredictProba(values)
		top := 0
		for c := range probs {
			if probs[c] > probs[top] {
				top = c
			}
		}
		if top == winner {
			agreeing++
		}
	}
	return float64(agreeing) / float64(len(members))
}

// consensusAdjustment rewards unanimity and penalizes a winner most members
// voted against.
func (e *Engine) consensusAdjustment(agreement float64) float64 {
	switch {
	case agreement == 1.0:
		return 15
	case agreement >= 2.0/3.0:
		return 8
	case agreement == 0.5:
		return 0
	case agreement < 0.5:
		return -10
	default:
		return 0
	}
}

// applyStaking attaches odds, expected value, fractional Kelly stake and the
// value-bet flag when the market is priced. The stake always lands in
// [MinStakePercent, MaxStakePercent]; a non-positive edge stakes the floor.
func (e *Engine) applyStaking(prediction *models.Prediction, vector *features.Vector, predictedClass string) {
	odds := vector.MarketOdds(prediction.Market, predictedClass)
	if odds <= 1.0 {
		return
	}
	prediction.Odds = odds

	p := prediction.Confidence / 100
	prediction.ExpectedValue = (p*odds - 1) * 100

	prediction.StakePercent = e.cfg.MinStakePercent
	if prediction.ExpectedValue > 0 {
		b := odds - 1
		kelly := (b*p - (1 - p)) / b
		stake := kelly * e.cfg.KellyFraction * 100
		if stake < e.cfg.MinStakePercent {
			stake = e.cfg.MinStakePercent
		}
		if stake > e.cfg.MaxStakePercent {
			stake = e.cfg.MaxStakePercent
		}
		prediction.StakePercent = stake
	}

	implied := vector.ImpliedProbability(prediction.Market, predictedClass)
	edge := prediction.Confidence - implied*100
	prediction.ValueBet = prediction.ExpectedValue > 0 &&
		prediction.Confidence >= e.cfg.MinValueConfidence &&
		edge >= e.cfg.MinEdge
}

func (e *Engine) clamp(confidence float64) float64 {
	if confidence < e.cfg.MinConfidence {
		return e.cfg.MinConfidence
	}
	if confidence > e.cfg.MaxConfidence {
		return e.cfg.MaxConfidence
	}
	return confidence
}
