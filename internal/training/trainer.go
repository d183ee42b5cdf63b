// Package training assembles verified fixtures into datasets and fits the
// per-market ensembles.
package training

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/ensemble"
	"github.com/yourusername/match-oracle/internal/features"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/metrics"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
)

// Member vote weights. The boosted ensemble historically grades best on these
// markets so it carries the largest vote.
const (
	forestWeight   = 1.0
	boostWeight    = 1.2
	logisticWeight = 0.8
)

// datasetLimit caps how many verified fixtures one run loads.
const datasetLimit = 20000

// Trainer fits and activates one model version per market.
type Trainer struct {
	cfg       config.TrainingConfig
	matchRepo repository.MatchRepository
	modelRepo repository.ModelRepository
	eventRepo repository.EventRepository
	builder   *features.Builder
	log       *logger.EngineLogger
}

// NewTrainer creates a trainer over the given repositories.
func NewTrainer(cfg config.TrainingConfig, matchRepo repository.MatchRepository, modelRepo repository.ModelRepository, eventRepo repository.EventRepository, builder *features.Builder, log *logger.EngineLogger) *Trainer {
	return &Trainer{
		cfg:       cfg,
		matchRepo: matchRepo,
		modelRepo: modelRepo,
		eventRepo: eventRepo,
		builder:   builder,
		log:       log,
	}
}

// TrainAll trains every configured market. A market skipped for insufficient
// data is not an error; any other failure aborts the run.
func (t *Trainer) TrainAll(ctx context.Context) error {
	matches, err := t.matchRepo.GetVerified(ctx, datasetLimit)
	if err != nil {
		return fmt.Errorf("failed to load verified matches: %w", err)
	}

	for _, market := range t.cfg.Markets {
		_, err := t.trainMarket(ctx, market, matches)
		switch {
		case err == models.ErrInsufficientData:
			metrics.RecordTrainingRun(market, "skipped", 0)
			t.log.WithField("market", market).Info("Skipping training, not enough verified samples")
		case err != nil:
			metrics.RecordTrainingRun(market, "failure", 0)
			return fmt.Errorf("training failed for market %s: %w", market, err)
		}
	}
	return nil
}

// TrainMarket trains a single market and returns the activated model.
func (t *Trainer) TrainMarket(ctx context.Context, market string) (*models.TrainedModel, error) {
	if !models.ValidMarket(market) {
		return nil, models.ErrUnknownMarket
	}
	matches, err := t.matchRepo.GetVerified(ctx, datasetLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load verified matches: %w", err)
	}
	return t.trainMarket(ctx, market, matches)
}

func (t *Trainer) trainMarket(ctx context.Context, market string, matches []*models.Match) (*models.TrainedModel, error) {
	started := time.Now()

	samples, err := t.assemble(ctx, market, matches)
	if err != nil {
		return nil, err
	}
	if len(samples) < t.cfg.MinSamples {
		return nil, models.ErrInsufficientData
	}

	classes := len(models.MarketClasses(market))
	split := temporalSplit(samples, t.cfg.TrainFraction, t.cfg.CalibrationFraction)
	trainX, trainY := featureMatrix(split.Train)

	members := []*ensemble.Member{
		{Kind: ensemble.KindForest, Weight: forestWeight, Classifier: ensemble.NewForest(classes)},
		{Kind: ensemble.KindBoost, Weight: boostWeight, Classifier: ensemble.NewBoost(classes)},
		{Kind: ensemble.KindLogistic, Weight: logisticWeight, Classifier: ensemble.NewLogistic(classes)},
	}
	for _, member := range members {
		if err := member.Classifier.Fit(trainX, trainY); err != nil {
			return nil, fmt.Errorf("failed to fit %s member: %w", member.Kind, err)
		}
	}

	artifact := &ensemble.Artifact{Members: members}
	if calibrator, err := fitCalibrator(members, split.Calibration); err == nil {
		artifact.Calibrator = calibrator
	}

	evaluation := t.evaluateHoldout(members, split.Holdout)

	model, err := t.persist(ctx, market, samples, artifact, evaluation)
	if err != nil {
		return nil, err
	}

	duration := time.Since(started)
	metrics.RecordTrainingRun(market, "success", duration.Seconds())
	metrics.UpdateTrainingSamples(market, float64(len(samples)))
	metrics.UpdateModelAccuracy(market, evaluation.Accuracy)
	t.log.LogTraining(market, model.Version, len(samples), evaluation.Accuracy, evaluation.LogLoss, float64(duration.Milliseconds()))

	return model, nil
}

// assemble builds one labeled sample per gradeable verified fixture. The
// matches are walked in kickoff order against an in-memory rating replay:
// each vector takes the replayed ratings from before its own kickoff, and
// only then does the result fold into the replay. Form and head-to-head
// aggregates already query strictly before each kickoff, so no part of the
// vector sees data dated at or after the fixture.
func (t *Trainer) assemble(ctx context.Context, market string, matches []*models.Match) ([]Sample, error) {
	classes := models.MarketClasses(market)
	classIndex := make(map[string]int, len(classes))
	for i, class := range classes {
		classIndex[class] = i
	}

	ordered := make([]*models.Match, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].KickoffAt.Before(ordered[j].KickoffAt)
	})

	replay := t.builder.NewReplay()
	samples := make([]Sample, 0, len(ordered))
	for _, match := range ordered {
		outcome, gradeable := match.MarketOutcome(market)
		if gradeable {
			home, away := replay.Ratings(match.HomeTeam, match.AwayTeam, match.Competition)
			vector, err := t.builder.BuildWithRatings(ctx, match, home, away)
			if err == models.ErrMissingFeatureInput {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to build features for match %s: %w", match.ID, err)
			}
			samples = append(samples, Sample{
				Features:  vector.Values(),
				Label:     classIndex[outcome],
				KickoffAt: match.KickoffAt,
			})
		}
		if match.HasResult() {
			if err := replay.Apply(match); err != nil {
				return nil, fmt.Errorf("failed to replay match %s: %w", match.ID, err)
			}
		}
	}
	return samples, nil
}

// fitCalibrator maps the ensemble's top-class probability onto observed hit
// rate over the calibration slice.
func fitCalibrator(members []*ensemble.Member, calibration []Sample) (*ensemble.Isotonic, error) {
	probs := make([]float64, 0, len(calibration))
	outcomes := make([]float64, 0, len(calibration))
	for _, sample := range calibration {
		combined := ensemble.Combine(members, sample.Features)
		top := 0
		for c := range combined {
			if combined[c] > combined[top] {
				top = c
			}
		}
		probs = append(probs, combined[top])
		if top == sample.Label {
			outcomes = append(outcomes, 1)
		} else {
			outcomes = append(outcomes, 0)
		}
	}
	return ensemble.FitIsotonic(probs, outcomes)
}

func (t *Trainer) evaluateHoldout(members []*ensemble.Member, holdout []Sample) Evaluation {
	if len(holdout) == 0 {
		return Evaluation{}
	}
	predictions := make([][]float64, len(holdout))
	labels := make([]int, len(holdout))
	for i, sample := range holdout {
		predictions[i] = ensemble.Combine(members, sample.Features)
		labels[i] = sample.Label
	}
	return evaluate(predictions, labels, len(predictions[0]))
}

func (t *Trainer) persist(ctx context.Context, market string, samples []Sample, artifact *ensemble.Artifact, evaluation Evaluation) (*models.TrainedModel, error) {
	encoded, err := artifact.MarshalArtifact()
	if err != nil {
		return nil, err
	}
	importance, err := json.Marshal(weightedImportances(artifact.Members))
	if err != nil {
		return nil, fmt.Errorf("failed to encode feature importances: %w", err)
	}

	trainedAt := time.Now().UTC()
	model := &models.TrainedModel{
		ID:                uuid.New(),
		Market:            market,
		Version:           trainedAt.Format("20060102T150405Z"),
		SampleCount:       len(samples),
		Accuracy:          evaluation.Accuracy,
		F1:                evaluation.MacroF1,
		LogLoss:           evaluation.LogLoss,
		BrierScore:        evaluation.BrierScore,
		FeatureImportance: importance,
		Members:           encoded,
		TrainedAt:         trainedAt,
	}

	if err := t.modelRepo.Create(ctx, model); err != nil {
		return nil, fmt.Errorf("failed to persist model: %w", err)
	}
	if err := t.modelRepo.Activate(ctx, model.ID); err != nil {
		return nil, fmt.Errorf("failed to activate model: %w", err)
	}
	model.Active = true

	event := models.NewEngineEvent(models.EventModelTrained, market, map[string]interface{}{
		"version":  model.Version,
		"samples":  model.SampleCount,
		"accuracy": model.Accuracy,
		"log_loss": model.LogLoss,
	})
	if err := t.eventRepo.Append(ctx, event); err != nil {
		t.log.LogLoopError("training", err)
	}

	return model, nil
}

// weightedImportances averages member importances by vote weight, keyed by
// feature name in vector order.
func weightedImportances(members []*ensemble.Member) map[string]float64 {
	combined := make([]float64, len(features.FieldNames))
	totalWeight := 0.0
	for _, member := range members {
		importances := member.Classifier.FeatureImportances()
		for i := range combined {
			if i < len(importances) {
				combined[i] += member.Weight * importances[i]
			}
		}
		totalWeight += member.Weight
	}

	ranking := make(map[string]float64, len(combined))
	for i, name := range features.FieldNames {
		if totalWeight > 0 {
			ranking[name] = combined[i] / totalWeight
		} else {
			ranking[name] = 0
		}
	}
	return ranking
}
