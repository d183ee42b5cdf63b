// Package config provides configuration management for the Match Oracle engine.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set environment variable prefix
	v.SetEnvPrefix("MATCH_ORACLE")

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// Missing config files are tolerated; defaults plus environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("MATCH_ORACLE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers fallback values for every tunable the engine reads.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "match-oracle")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("rating.home_advantage", 100.0)
	v.SetDefault("rating.k_factor_new", 40.0)
	v.SetDefault("rating.k_factor_established", 20.0)
	v.SetDefault("rating.experience_threshold", 10)

	v.SetDefault("training.min_samples", 50)
	v.SetDefault("training.train_fraction", 0.75)
	v.SetDefault("training.calibration_fraction", 0.10)
	v.SetDefault("training.markets", []string{
		"match_result", "over_under_2_5", "btts", "corners_over_9_5", "cards_over_4_5",
	})

	v.SetDefault("inference.min_confidence", 30.0)
	v.SetDefault("inference.max_confidence", 95.0)
	v.SetDefault("inference.min_value_confidence", 55.0)
	v.SetDefault("inference.min_edge", 5.0)
	v.SetDefault("inference.kelly_fraction", 0.25)
	v.SetDefault("inference.min_stake_percent", 0.5)
	v.SetDefault("inference.max_stake_percent", 5.0)

	v.SetDefault("calibration.band_width", 10)
	v.SetDefault("calibration.min_samples", 20)
	v.SetDefault("roi.min_bets", 20)

	v.SetDefault("drift.window_days", 7)
	v.SetDefault("drift.min_samples", 30)
	v.SetDefault("drift.threshold_points", 5.0)

	v.SetDefault("scheduler.collect_cron", "*/15 * * * *")
	v.SetDefault("scheduler.enrich_cron", "5 * * * *")
	v.SetDefault("scheduler.verify_cron", "*/30 * * * *")
	v.SetDefault("scheduler.drift_cron", "0 6 * * *")
	v.SetDefault("scheduler.retrain_daily_cron", "0 4 * * *")
	v.SetDefault("scheduler.retrain_weekly_cron", "0 4 * * 1")
	v.SetDefault("scheduler.mature_sample_count", 500)
	v.SetDefault("scheduler.growth_ratio", 0.20)

	v.SetDefault("cache.model_ttl_seconds", 300)
	v.SetDefault("cache.rating_ttl_seconds", 60)
	v.SetDefault("cache.upstream_ttl_seconds", 120)
	v.SetDefault("cache.max_items", 1000)

	v.SetDefault("data_sources.timeout_seconds", 15)
	v.SetDefault("data_sources.retry_attempts", 3)
	v.SetDefault("data_sources.requests_per_second", 2.0)
	v.SetDefault("data_sources.poll_interval_seconds", 900)
	v.SetDefault("data_sources.result_lookback_days", 3)

	v.SetDefault("api.port", 8090)
	v.SetDefault("api.health_port", 8081)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
