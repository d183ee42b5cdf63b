package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg, err := LoadWithDefaults(filepath.Join(os.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		panic(err)
	}
	cfg.Database = DatabaseConfig{
		Host: "localhost", Port: 5432, Name: "oracle", User: "oracle",
		Password: "secret", SSLMode: "disable", MaxConnections: 10, MaxIdleConnections: 2,
	}
	cfg.DataSources.FixturesURL = "https://fixtures.example.com/v1"
	cfg.DataSources.OddsURL = "https://odds.example.com/v1"
	return cfg
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(os.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 50, cfg.Training.MinSamples)
	assert.InDelta(t, 30.0, cfg.Inference.MinConfidence, 0.001)
	assert.InDelta(t, 95.0, cfg.Inference.MaxConfidence, 0.001)
	assert.Equal(t, 10, cfg.Calibration.BandWidth)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "supersecret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  name: match-oracle
  environment: development
  log_level: debug
database:
  host: localhost
  port: 5432
  name: oracle
  user: oracle
  password: ${TEST_DB_PASSWORD}
  ssl_mode: disable
  max_connections: 10
  max_idle_connections: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "supersecret", cfg.Database.Password)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(os.TempDir(), "definitely-missing.yaml"))
	assert.Error(t, err)
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validTestConfig()
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsBadMarket(t *testing.T) {
	cfg := validTestConfig()
	cfg.Training.Markets = []string{"handicap_minus_1"}
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsInvertedConfidenceBand(t *testing.T) {
	cfg := validTestConfig()
	cfg.Inference.MinConfidence = 96
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsSplitWithoutTestSlice(t *testing.T) {
	cfg := validTestConfig()
	cfg.Training.TrainFraction = 0.9
	cfg.Training.CalibrationFraction = 0.15
	assert.Error(t, Validate(cfg))
}

func TestValidateProductionRequiresSSL(t *testing.T) {
	cfg := validTestConfig()
	cfg.App.Environment = "production"
	cfg.Database.SSLMode = "disable"
	assert.Error(t, Validate(cfg))

	cfg.Database.SSLMode = "require"
	assert.NoError(t, Validate(cfg))
}
