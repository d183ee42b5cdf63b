// Package main provides the entry point for the prediction engine daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/match-oracle/internal/api"
	"github.com/yourusername/match-oracle/internal/cache"
	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/datasource"
	"github.com/yourusername/match-oracle/internal/drift"
	"github.com/yourusername/match-oracle/internal/features"
	"github.com/yourusername/match-oracle/internal/feedback"
	"github.com/yourusername/match-oracle/internal/health"
	"github.com/yourusername/match-oracle/internal/inference"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/metrics"
	"github.com/yourusername/match-oracle/internal/rating"
	"github.com/yourusername/match-oracle/internal/repository"
	"github.com/yourusername/match-oracle/internal/service"
	"github.com/yourusername/match-oracle/internal/training"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
	}).Info("Match Oracle prediction engine starting")
	engineLog := logger.NewEngineLogger(appLog)

	metrics.InitRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	appLog.Info("Database connection established, schema ensured")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize repositories")
	}

	engineCache := cache.New(cache.Config{
		TTLs: map[cache.Type]time.Duration{
			cache.TypeModel:    time.Duration(cfg.Cache.ModelTTLSeconds) * time.Second,
			cache.TypeRating:   time.Duration(cfg.Cache.RatingTTLSeconds) * time.Second,
			cache.TypeUpstream: time.Duration(cfg.Cache.UpstreamTTLSeconds) * time.Second,
		},
		MaxItems: cfg.Cache.MaxItems,
	})

	// Core engine components
	ratings := rating.NewEngine(cfg.Rating, repos.TeamRating, repos.Event, engineLog)
	builder := features.NewBuilder(repos.Match, ratings)
	calibrator := feedback.NewCalibrator(cfg.Calibration, repos.Calibration)
	roi := feedback.NewROITracker(cfg.ROI, repos.ROI)
	predictor := inference.NewEngine(cfg.Inference, repos.Model, repos.Prediction, builder, calibrator, roi, engineCache, engineLog)
	trainer := training.NewTrainer(cfg.Training, repos.Match, repos.Model, repos.Event, builder, engineLog)
	verifier := service.NewVerifier(repos.Match, repos.Prediction, repos.Event, ratings, calibrator, roi, engineLog)
	monitor := drift.NewMonitor(cfg.Drift, repos.Prediction, repos.Event, engineLog)
	policy := drift.NewPolicy(cfg.Scheduler, repos.Prediction, repos.Model, repos.Event)

	// Upstream feeds
	httpClient := datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfigFrom(cfg.DataSources), appLog)
	defer httpClient.Close()

	fixtureSource := datasource.NewFixtureAPIClient(httpClient, cfg.DataSources.FixturesURL, cfg.DataSources.APIKey, true, appLog)
	oddsSource := datasource.NewOddsAPIClient(httpClient, cfg.DataSources.OddsURL, cfg.DataSources.APIKey, cfg.DataSources.OddsURL != "", appLog)
	enrichmentSource := datasource.NewEnrichmentAPIClient(httpClient, cfg.DataSources.EnrichmentURL, cfg.DataSources.APIKey, cfg.DataSources.EnrichmentURL != "", appLog)

	var stream *datasource.OddsStreamClient
	if cfg.DataSources.OddsStreamEnabled && cfg.DataSources.OddsStreamURL != "" {
		stream = datasource.NewOddsStreamClient(cfg.DataSources.OddsStreamURL, cfg.DataSources.APIKey, appLog)
		appLog.WithField("url", cfg.DataSources.OddsStreamURL).Info("Live odds stream enabled")
	}

	collector := service.NewCollector(cfg.DataSources, fixtureSource, oddsSource, enrichmentSource, repos.Match, engineCache, engineLog)
	stats := service.NewStatsCollector(repos.Match, repos.Prediction, repos.Model, repos.ROI)

	engine := service.NewEngine(cfg.Scheduler, collector, verifier, trainer, predictor, monitor, policy, repos.Match, repos.Prediction, stream, engineLog)
	if err := engine.Start(); err != nil {
		appLog.WithError(err).Fatal("Failed to start engine loops")
	}

	apiServer := api.NewServer(api.Config{
		Port:      fmt.Sprintf("%d", cfg.API.Port),
		MatchRepo: repos.Match,
		Predictor: predictor,
		Trainer:   trainer,
		Verifier:  verifier,
		Stats:     stats,
		Logger:    appLog,
	})
	if err := apiServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start API server")
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Port:        fmt.Sprintf("%d", cfg.API.HealthPort),
		Logger:      appLog,
		DB:          db,
		Metrics:     metrics.Handler(),
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}
	healthServer.SetReady(true)

	appLog.WithFields(logrus.Fields{
		"api_port":    cfg.API.Port,
		"health_port": cfg.API.HealthPort,
		"odds_stream": stream != nil,
		"environment": cfg.App.Environment,
	}).Info("Prediction engine is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	cancel()
	if err := engine.Stop(); err != nil {
		appLog.WithError(err).Error("Error during engine shutdown")
	}
	if err := apiServer.Shutdown(); err != nil {
		appLog.WithError(err).Error("Error during API server shutdown")
	}

	// Give components time to cleanup
	time.Sleep(2 * time.Second)
	appLog.Info("Prediction engine shut down successfully")
}
