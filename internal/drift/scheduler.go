package drift

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
)

// Retrain decision reasons.
const (
	ReasonNoModel      = "no_active_model"
	ReasonImmature     = "daily_immature"
	ReasonSampleGrowth = "sample_growth"
	ReasonWeeklyDue    = "weekly_due"
	ReasonNotDue       = "not_due"
)

// Decision says whether a market should retrain on this pass and why.
type Decision struct {
	Retrain bool   `json:"retrain"`
	Reason  string `json:"reason"`
}

// Policy implements the retraining cadence: every pass while a market is
// immature, weekly once it has matured, and immediately when the verified
// sample count outgrows the active model's training set.
type Policy struct {
	cfg       config.SchedulerConfig
	predRepo  repository.PredictionRepository
	modelRepo repository.ModelRepository
	eventRepo repository.EventRepository
}

// NewPolicy creates a retrain policy.
func NewPolicy(cfg config.SchedulerConfig, predRepo repository.PredictionRepository, modelRepo repository.ModelRepository, eventRepo repository.EventRepository) *Policy {
	return &Policy{cfg: cfg, predRepo: predRepo, modelRepo: modelRepo, eventRepo: eventRepo}
}

// Evaluate decides whether the market should retrain now.
func (p *Policy) Evaluate(ctx context.Context, market string, now time.Time) (*Decision, error) {
	verified, err := p.predRepo.CountVerified(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("failed to count verified predictions: %w", err)
	}

	active, err := p.modelRepo.GetActive(ctx, market)
	if err == models.ErrNoActiveModel {
		return p.triggered(ctx, market, ReasonNoModel), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active model: %w", err)
	}

	if verified < p.cfg.MatureSampleCount {
		return p.triggered(ctx, market, ReasonImmature), nil
	}

	growthCeiling := float64(active.SampleCount) * (1 + p.cfg.GrowthRatio)
	if float64(verified) >= growthCeiling {
		return p.triggered(ctx, market, ReasonSampleGrowth), nil
	}

	if now.Sub(active.TrainedAt) >= 7*24*time.Hour {
		return p.triggered(ctx, market, ReasonWeeklyDue), nil
	}

	return &Decision{Retrain: false, Reason: ReasonNotDue}, nil
}

// triggered records the retrain decision in the event log. An append failure
// does not block the retrain.
func (p *Policy) triggered(ctx context.Context, market, reason string) *Decision {
	event := models.NewEngineEvent(models.EventRetrainTriggered, market, map[string]string{"reason": reason})
	_ = p.eventRepo.Append(ctx, event)
	return &Decision{Retrain: true, Reason: reason}
}
