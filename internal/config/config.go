// Package config provides configuration management for the Match Oracle engine.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	DataSources DataSourcesConfig `mapstructure:"data_sources" validate:"required"`
	Rating      RatingConfig      `mapstructure:"rating" validate:"required"`
	Training    TrainingConfig    `mapstructure:"training" validate:"required"`
	Inference   InferenceConfig   `mapstructure:"inference" validate:"required"`
	Calibration CalibrationConfig `mapstructure:"calibration" validate:"required"`
	ROI         ROIConfig         `mapstructure:"roi" validate:"required"`
	Drift       DriftConfig       `mapstructure:"drift" validate:"required"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler" validate:"required"`
	Cache       CacheConfig       `mapstructure:"cache" validate:"required"`
	API         APIConfig         `mapstructure:"api" validate:"required"`
	Metrics     MetricsConfig     `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// DataSourcesConfig represents upstream fixture/odds/enrichment feeds
type DataSourcesConfig struct {
	FixturesURL         string  `mapstructure:"fixtures_url" validate:"required,url"`
	OddsURL             string  `mapstructure:"odds_url" validate:"required,url"`
	EnrichmentURL       string  `mapstructure:"enrichment_url" validate:"omitempty,url"`
	OddsStreamURL       string  `mapstructure:"odds_stream_url"`
	OddsStreamEnabled   bool    `mapstructure:"odds_stream_enabled"`
	APIKey              string  `mapstructure:"api_key"`
	TimeoutSeconds      int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts       int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RequestsPerSecond   float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`
	PollIntervalSeconds int     `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`
	ResultLookbackDays  int     `mapstructure:"result_lookback_days" validate:"required,gt=0"`
}

// RatingConfig represents rating engine parameters
type RatingConfig struct {
	HomeAdvantage       float64 `mapstructure:"home_advantage" validate:"gte=0"`
	KFactorNew          float64 `mapstructure:"k_factor_new" validate:"required,gt=0"`
	KFactorEstablished  float64 `mapstructure:"k_factor_established" validate:"required,gt=0"`
	ExperienceThreshold int     `mapstructure:"experience_threshold" validate:"required,gt=0"`
}

// TrainingConfig represents ensemble training parameters
type TrainingConfig struct {
	MinSamples          int      `mapstructure:"min_samples" validate:"required,gt=0"`
	TrainFraction       float64  `mapstructure:"train_fraction" validate:"required,gt=0,lt=1"`
	CalibrationFraction float64  `mapstructure:"calibration_fraction" validate:"required,gt=0,lt=1"`
	Markets             []string `mapstructure:"markets" validate:"required,min=1,markets"`
}

// InferenceConfig represents inference and value-bet parameters
type InferenceConfig struct {
	MinConfidence      float64 `mapstructure:"min_confidence" validate:"required,gt=0,lt=100"`
	MaxConfidence      float64 `mapstructure:"max_confidence" validate:"required,gt=0,lte=100"`
	MinValueConfidence float64 `mapstructure:"min_value_confidence" validate:"required,gt=0,lt=100"`
	MinEdge            float64 `mapstructure:"min_edge" validate:"required,gt=0"`
	KellyFraction      float64 `mapstructure:"kelly_fraction" validate:"required,gt=0,lte=1"`
	MinStakePercent    float64 `mapstructure:"min_stake_percent" validate:"gte=0"`
	MaxStakePercent    float64 `mapstructure:"max_stake_percent" validate:"required,gt=0"`
}

// CalibrationConfig represents confidence-band calibration parameters
type CalibrationConfig struct {
	BandWidth  int `mapstructure:"band_width" validate:"required,gt=0"`
	MinSamples int `mapstructure:"min_samples" validate:"required,gt=0"`
}

// ROIConfig represents ROI feedback parameters
type ROIConfig struct {
	MinBets int `mapstructure:"min_bets" validate:"required,gt=0"`
}

// DriftConfig represents drift monitor parameters
type DriftConfig struct {
	WindowDays      int     `mapstructure:"window_days" validate:"required,gt=0"`
	MinSamples      int     `mapstructure:"min_samples" validate:"required,gt=0"`
	ThresholdPoints float64 `mapstructure:"threshold_points" validate:"required,gt=0"`
}

// SchedulerConfig represents background loop cadences
type SchedulerConfig struct {
	CollectCron       string  `mapstructure:"collect_cron" validate:"required"`
	EnrichCron        string  `mapstructure:"enrich_cron" validate:"required"`
	VerifyCron        string  `mapstructure:"verify_cron" validate:"required"`
	DriftCron         string  `mapstructure:"drift_cron" validate:"required"`
	RetrainDailyCron  string  `mapstructure:"retrain_daily_cron" validate:"required"`
	RetrainWeeklyCron string  `mapstructure:"retrain_weekly_cron" validate:"required"`
	MatureSampleCount int     `mapstructure:"mature_sample_count" validate:"required,gt=0"`
	GrowthRatio       float64 `mapstructure:"growth_ratio" validate:"required,gt=0"`
}

// CacheConfig maps cache types to TTLs so tests can control time and eviction
type CacheConfig struct {
	ModelTTLSeconds    int `mapstructure:"model_ttl_seconds" validate:"required,gt=0"`
	RatingTTLSeconds   int `mapstructure:"rating_ttl_seconds" validate:"required,gt=0"`
	UpstreamTTLSeconds int `mapstructure:"upstream_ttl_seconds" validate:"required,gt=0"`
	MaxItems           int `mapstructure:"max_items" validate:"required,gt=0"`
}

// APIConfig represents the core API server configuration
type APIConfig struct {
	Port       int `mapstructure:"port" validate:"required,min=1,max=65535"`
	HealthPort int `mapstructure:"health_port" validate:"required,min=1,max=65535"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// String returns a printable summary without credentials
func (c *Config) String() string {
	return fmt.Sprintf("%s [%s] db=%s:%d markets=%v", c.App.Name, c.App.Environment, c.Database.Host, c.Database.Port, c.Training.Markets)
}
