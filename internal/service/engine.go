package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/datasource"
	"github.com/yourusername/match-oracle/internal/drift"
	"github.com/yourusername/match-oracle/internal/inference"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/metrics"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
	"github.com/yourusername/match-oracle/internal/training"
)

// loopTimeout bounds one scheduled loop iteration.
const loopTimeout = 30 * time.Minute

// predictionHorizon bounds how close to kickoff a fixture must be before the
// prediction pass covers it.
const predictionHorizon = 48 * time.Hour

// Engine wires every background loop of the prediction engine onto one cron
// runner: collection, enrichment, verification, drift checks and retraining.
type Engine struct {
	cfg config.SchedulerConfig

	collector *Collector
	verifier  *Verifier
	trainer   *training.Trainer
	predictor *inference.Engine
	monitor   *drift.Monitor
	policy    *drift.Policy
	matchRepo repository.MatchRepository
	predRepo  repository.PredictionRepository
	stream    *datasource.OddsStreamClient

	cron      *cron.Cron
	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	log       *logger.EngineLogger
}

// NewEngine creates the orchestrator. The stream client may be nil when the
// live odds stream is disabled.
func NewEngine(
	cfg config.SchedulerConfig,
	collector *Collector,
	verifier *Verifier,
	trainer *training.Trainer,
	predictor *inference.Engine,
	monitor *drift.Monitor,
	policy *drift.Policy,
	matchRepo repository.MatchRepository,
	predRepo repository.PredictionRepository,
	stream *datasource.OddsStreamClient,
	log *logger.EngineLogger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		collector: collector,
		verifier:  verifier,
		trainer:   trainer,
		predictor: predictor,
		monitor:   monitor,
		policy:    policy,
		matchRepo: matchRepo,
		predRepo:  predRepo,
		stream:    stream,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		log:       log,
	}
}

// Start registers the loops and starts the cron runner.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return fmt.Errorf("engine is already running")
	}

	jobs := []struct {
		name string
		spec string
		fn   func(context.Context) error
	}{
		{"collect", e.cfg.CollectCron, e.collectLoop},
		{"enrich", e.cfg.EnrichCron, e.collector.EnrichPass},
		{"verify", e.cfg.VerifyCron, e.verifyLoop},
		{"drift", e.cfg.DriftCron, e.driftLoop},
		{"retrain_daily", e.cfg.RetrainDailyCron, e.retrainLoop},
		{"retrain_weekly", e.cfg.RetrainWeeklyCron, e.retrainLoop},
	}
	for _, job := range jobs {
		job := job
		if _, err := e.cron.AddFunc(job.spec, func() { e.runLoop(job.name, job.fn) }); err != nil {
			return fmt.Errorf("failed to schedule %s loop: %w", job.name, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	if e.stream != nil {
		go e.runStream(ctx)
	}

	e.cron.Start()
	e.isRunning = true
	e.log.WithField("jobs", len(jobs)).Info("Engine loops started")
	return nil
}

// Stop stops the cron runner and waits for running jobs to finish.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isRunning {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.stream != nil {
		_ = e.stream.Close()
	}

	<-e.cron.Stop().Done()
	e.isRunning = false
	e.log.Info("Engine loops stopped")
	return nil
}

// IsRunning returns whether the engine loops are active.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

// runLoop executes one loop iteration. Failures are logged and counted, never
// fatal to the process.
func (e *Engine) runLoop(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), loopTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		e.log.LogLoopError(name, err)
		metrics.RecordLoopFailure(name)
	}
}

// collectLoop pulls fresh fixtures and odds, then issues predictions for
// fixtures entering the prediction horizon.
func (e *Engine) collectLoop(ctx context.Context) error {
	if err := e.collector.CollectPass(ctx); err != nil {
		return err
	}
	return e.predictPass(ctx)
}

// verifyLoop ingests recent results, then grades everything newly finished.
func (e *Engine) verifyLoop(ctx context.Context) error {
	if err := e.collector.ResultsPass(ctx); err != nil {
		return err
	}
	_, err := e.verifier.VerifyPass(ctx)
	return err
}

// driftLoop checks every market for accuracy drift.
func (e *Engine) driftLoop(ctx context.Context) error {
	_, err := e.monitor.CheckAll(ctx)
	return err
}

// retrainLoop applies the retraining policy per market and retrains what is
// due. A freshly activated model immediately replaces the cached one.
func (e *Engine) retrainLoop(ctx context.Context) error {
	now := time.Now().UTC()
	for _, market := range models.AllMarkets {
		decision, err := e.policy.Evaluate(ctx, market, now)
		if err != nil {
			e.log.WithError(err).WithField("market", market).Warn("Retraining policy evaluation failed")
			continue
		}
		if !decision.Retrain {
			continue
		}

		e.log.WithField("market", market).WithField("reason", decision.Reason).Info("Retraining market")
		if _, err := e.trainer.TrainMarket(ctx, market); err != nil {
			if err == models.ErrInsufficientData {
				e.log.WithField("market", market).Info("Retraining skipped, not enough verified samples")
				continue
			}
			e.log.WithError(err).WithField("market", market).Error("Retraining failed")
			continue
		}
		e.predictor.InvalidateModel(market)
	}
	return nil
}

// predictPass issues predictions for upcoming fixtures inside the horizon
// that have none yet.
func (e *Engine) predictPass(ctx context.Context) error {
	matches, err := e.matchRepo.GetUpcoming(ctx, upcomingBatchSize)
	if err != nil {
		return fmt.Errorf("failed to load upcoming fixtures: %w", err)
	}

	cutoff := time.Now().UTC().Add(predictionHorizon)
	for _, match := range matches {
		if match.KickoffAt.After(cutoff) {
			continue
		}
		existing, err := e.predRepo.GetByMatchID(ctx, match.ID)
		if err != nil {
			e.log.WithError(err).WithField("match_id", match.ID).Warn("Failed to check existing predictions")
			continue
		}
		if len(existing) > 0 {
			continue
		}
		if _, err := e.predictor.PredictAll(ctx, match); err != nil {
			e.log.WithError(err).WithField("match_id", match.ID).Warn("Prediction pass failed for fixture")
		}
	}
	return nil
}

// runStream connects the live odds stream and feeds snapshots into the
// collector until the engine stops.
func (e *Engine) runStream(ctx context.Context) {
	if err := e.stream.ConnectWithRetry(ctx, datasource.DefaultReconnectConfig()); err != nil {
		e.log.LogLoopError("odds_stream", err)
		metrics.RecordLoopFailure("odds_stream")
		return
	}

	matches, err := e.matchRepo.GetUpcoming(ctx, upcomingBatchSize)
	if err == nil {
		ids := make([]string, 0, len(matches))
		for _, match := range matches {
			ids = append(ids, match.ExternalID)
		}
		if err := e.stream.Subscribe(ids); err != nil {
			e.log.WithError(err).Warn("Odds stream subscription failed")
		}
	}

	e.collector.ConsumeStream(ctx, e.stream.Snapshots())
}
