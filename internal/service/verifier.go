// Package service hosts the engine's scheduled passes: result verification,
// the orchestrated loops and operational statistics.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/match-oracle/internal/feedback"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/metrics"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/rating"
	"github.com/yourusername/match-oracle/internal/repository"
)

// verifyBatchSize caps one verification pass so a long backlog drains over
// consecutive scheduled runs instead of one unbounded transaction burst.
const verifyBatchSize = 200

// VerifyResult summarizes one verification pass. Pending counts predictions
// whose market could not be graded yet; Mismatched counts finished matches
// that still lack a recorded result.
type VerifyResult struct {
	Verified   int `json:"verified"`
	Pending    int `json:"pending"`
	Mismatched int `json:"mismatched"`
}

// Verifier reconciles finished fixtures: grades their pending predictions,
// feeds the calibration and ROI loops and advances team ratings.
type Verifier struct {
	matchRepo  repository.MatchRepository
	predRepo   repository.PredictionRepository
	eventRepo  repository.EventRepository
	ratings    *rating.Engine
	calibrator *feedback.Calibrator
	roi        *feedback.ROITracker
	log        *logger.EngineLogger
}

// NewVerifier creates a verifier over the given collaborators.
func NewVerifier(
	matchRepo repository.MatchRepository,
	predRepo repository.PredictionRepository,
	eventRepo repository.EventRepository,
	ratings *rating.Engine,
	calibrator *feedback.Calibrator,
	roi *feedback.ROITracker,
	log *logger.EngineLogger,
) *Verifier {
	return &Verifier{
		matchRepo:  matchRepo,
		predRepo:   predRepo,
		eventRepo:  eventRepo,
		ratings:    ratings,
		calibrator: calibrator,
		roi:        roi,
		log:        log,
	}
}

// VerifyPass grades every finished, unverified fixture in one batch. A fixture
// without a recorded result stays finished and is retried next pass.
func (v *Verifier) VerifyPass(ctx context.Context) (*VerifyResult, error) {
	matches, err := v.matchRepo.GetFinishedUnverified(ctx, verifyBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load finished matches: %w", err)
	}

	result := &VerifyResult{}
	for _, match := range matches {
		if !match.HasResult() {
			result.Mismatched++
			continue
		}
		if err := v.verifyMatch(ctx, match, result); err != nil {
			return nil, err
		}
	}

	v.log.LogVerification(result.Verified, result.Pending, result.Mismatched)
	return result, nil
}

// verifyMatch grades the fixture's pending predictions, then updates ratings
// and promotes the fixture to verified. Predictions whose market cannot be
// graded (missing corner or card counts) stay pending.
func (v *Verifier) verifyMatch(ctx context.Context, match *models.Match, result *VerifyResult) error {
	predictions, err := v.predRepo.GetPendingForMatch(ctx, match.ID)
	if err != nil {
		return fmt.Errorf("failed to load pending predictions: %w", err)
	}

	for _, prediction := range predictions {
		outcome, ok := match.MarketOutcome(prediction.Market)
		if !ok {
			result.Pending++
			continue
		}
		if err := v.gradePrediction(ctx, prediction, outcome); err != nil {
			return err
		}
		result.Verified++
	}

	if err := v.ratings.Update(ctx, match); err != nil {
		return fmt.Errorf("failed to update ratings: %w", err)
	}

	now := time.Now().UTC()
	match.Status = models.MatchVerified
	match.VerifiedAt = &now
	if err := v.matchRepo.Update(ctx, match); err != nil {
		return fmt.Errorf("failed to mark match verified: %w", err)
	}
	return nil
}

// gradePrediction settles one prediction against the observed outcome and
// folds the result into the calibration and ROI loops. MarkVerified only
// touches unverified rows, so a prediction is counted at most once.
func (v *Verifier) gradePrediction(ctx context.Context, prediction *models.Prediction, outcome string) error {
	correct := outcome == prediction.Predicted
	if err := v.predRepo.MarkVerified(ctx, prediction.ID, outcome, correct); err != nil {
		return fmt.Errorf("failed to mark prediction verified: %w", err)
	}
	metrics.RecordVerification(prediction.Market, correct)

	if err := v.calibrator.Record(ctx, prediction.Market, prediction.Confidence, correct); err != nil {
		return fmt.Errorf("failed to record calibration sample: %w", err)
	}
	// Every odds-bearing prediction feeds ROI, value bet or not.
	if prediction.HasOdds() {
		if err := v.roi.Record(ctx, prediction.Market, prediction.Conditions, correct, prediction.Odds, prediction.StakePercent); err != nil {
			return fmt.Errorf("failed to record roi sample: %w", err)
		}
	}

	event := models.NewEngineEvent(models.EventPredictionVerified, prediction.Market, map[string]interface{}{
		"prediction_id": prediction.ID,
		"predicted":     prediction.Predicted,
		"outcome":       outcome,
		"correct":       correct,
	})
	// An append failure does not block the verification itself.
	_ = v.eventRepo.Append(ctx, event)
	return nil
}
