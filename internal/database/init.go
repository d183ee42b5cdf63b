package database

import (
	"context"
	"fmt"

	"github.com/yourusername/match-oracle/internal/config"
)

// schema holds the logical state layout of the engine: fixtures, ratings,
// model artifacts, predictions, the calibration/ROI feedback tables and the
// append-only event log.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS matches (
		id UUID PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		competition TEXT NOT NULL,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		kickoff_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		home_goals INT,
		away_goals INT,
		home_corners INT,
		away_corners INT,
		home_cards INT,
		away_cards INT,
		odds JSONB,
		situational JSONB,
		verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_kickoff ON matches (kickoff_at)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches (status)`,
	`CREATE TABLE IF NOT EXISTS team_ratings (
		id UUID PRIMARY KEY,
		team TEXT NOT NULL,
		competition TEXT NOT NULL,
		rating DOUBLE PRECISION NOT NULL,
		matches INT NOT NULL DEFAULT 0,
		wins INT NOT NULL DEFAULT 0,
		draws INT NOT NULL DEFAULT 0,
		losses INT NOT NULL DEFAULT 0,
		goals_for INT NOT NULL DEFAULT 0,
		goals_against INT NOT NULL DEFAULT 0,
		streak INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (team, competition)
	)`,
	`CREATE TABLE IF NOT EXISTS trained_models (
		id UUID PRIMARY KEY,
		market TEXT NOT NULL,
		version TEXT NOT NULL,
		sample_count INT NOT NULL,
		accuracy DOUBLE PRECISION NOT NULL,
		f1 DOUBLE PRECISION NOT NULL,
		log_loss DOUBLE PRECISION NOT NULL,
		brier_score DOUBLE PRECISION NOT NULL,
		feature_importance JSONB,
		members JSONB NOT NULL,
		active BOOLEAN NOT NULL DEFAULT FALSE,
		trained_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (market, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_models_market_active ON trained_models (market, active)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id UUID PRIMARY KEY,
		match_id UUID NOT NULL REFERENCES matches (id),
		model_id UUID NOT NULL REFERENCES trained_models (id),
		market TEXT NOT NULL,
		predicted TEXT NOT NULL,
		raw_confidence DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		agreement DOUBLE PRECISION NOT NULL,
		calibration_applied DOUBLE PRECISION NOT NULL,
		roi_adjustment DOUBLE PRECISION NOT NULL,
		odds DOUBLE PRECISION NOT NULL DEFAULT 0,
		expected_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		stake_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		value_bet BOOLEAN NOT NULL DEFAULT FALSE,
		conditions JSONB,
		outcome TEXT,
		correct BOOLEAN,
		verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_market_verified ON predictions (market, verified_at)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_match ON predictions (match_id)`,
	`CREATE TABLE IF NOT EXISTS calibration_bands (
		id UUID PRIMARY KEY,
		market TEXT NOT NULL,
		band_low INT NOT NULL,
		band_high INT NOT NULL,
		predictions INT NOT NULL DEFAULT 0,
		correct INT NOT NULL DEFAULT 0,
		factor DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (market, band_low)
	)`,
	`CREATE TABLE IF NOT EXISTS roi_records (
		id UUID PRIMARY KEY,
		market TEXT NOT NULL,
		condition_key TEXT NOT NULL,
		bets INT NOT NULL DEFAULT 0,
		total_stake NUMERIC(18,4) NOT NULL DEFAULT 0,
		total_return NUMERIC(18,4) NOT NULL DEFAULT 0,
		roi_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (market, condition_key)
	)`,
	`CREATE TABLE IF NOT EXISTS engine_events (
		id UUID PRIMARY KEY,
		event_type TEXT NOT NULL,
		market TEXT NOT NULL DEFAULT '',
		payload JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_type_created ON engine_events (event_type, created_at)`,
}

// Initialize creates a database connection pool and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return db, nil
}
