package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/models"
)

// SetupTestDB connects to the test database and ensures the schema exists.
// Tests calling this are skipped unless TEST_DATABASE_HOST is set.
func SetupTestDB(t *testing.T) *database.DB {
	t.Helper()

	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("skipping database test - TEST_DATABASE_HOST not set")
	}

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:               host,
			Port:               5432,
			Name:               GetEnvOrDefault("TEST_DATABASE_NAME", "match_oracle_test"),
			User:               GetEnvOrDefault("TEST_DATABASE_USER", "test"),
			Password:           GetEnvOrDefault("TEST_DATABASE_PASSWORD", "test"),
			SSLMode:            "disable",
			MaxConnections:     5,
			MaxIdleConnections: 2,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Initialize(ctx, cfg)
	require.NoError(t, err, "failed to connect to test database")

	return db
}

// TeardownTestDB truncates all engine tables and closes the connection.
func TeardownTestDB(t *testing.T, db *database.DB) {
	t.Helper()

	CleanupDatabase(t, db)
	db.Close()
}

// CleanupDatabase truncates all engine tables.
func CleanupDatabase(t *testing.T, db *database.DB) {
	t.Helper()

	tables := []string{
		"predictions",
		"calibration_bands",
		"roi_records",
		"engine_events",
		"trained_models",
		"team_ratings",
		"matches",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, table := range tables {
		_, err := db.GetPool().Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			t.Logf("Warning: failed to truncate table %s: %v", table, err)
		}
	}
}

// NewScheduledMatch builds a match awaiting kickoff with full 1X2 odds.
func NewScheduledMatch(home, away string, kickoff time.Time) *models.Match {
	now := time.Now().UTC()
	return &models.Match{
		ID:          uuid.New(),
		ExternalID:  fmt.Sprintf("fx-%s", uuid.New().String()[:8]),
		Competition: "premier_league",
		HomeTeam:    home,
		AwayTeam:    away,
		KickoffAt:   kickoff,
		Status:      models.MatchScheduled,
		Odds: &models.MatchOdds{
			Home:        2.1,
			Draw:        3.3,
			Away:        3.5,
			OpeningHome: 2.1,
			OpeningAway: 3.5,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewFinishedMatch builds a match with a final score ready for verification.
func NewFinishedMatch(home, away string, homeGoals, awayGoals int) *models.Match {
	m := NewScheduledMatch(home, away, time.Now().UTC().Add(-3*time.Hour))
	m.Status = models.MatchFinished
	m.HomeGoals = &homeGoals
	m.AwayGoals = &awayGoals
	return m
}

// NewPendingPrediction builds an unverified prediction for the given match.
func NewPendingPrediction(matchID uuid.UUID, market, outcome string, confidence float64) *models.Prediction {
	return &models.Prediction{
		ID:            uuid.New(),
		MatchID:       matchID,
		ModelID:       uuid.New(),
		Market:        market,
		Predicted:     outcome,
		RawConfidence: confidence,
		Confidence:    confidence,
		Agreement:     1,
		CreatedAt:     time.Now().UTC(),
	}
}

// MockUpstreamServer serves canned fixture, result, odds and situational
// payloads in the shape the data source clients expect.
func MockUpstreamServer(t *testing.T) *httptest.Server {
	t.Helper()

	kickoff := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/fixtures":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{
					"id":          "fx-1001",
					"competition": "premier_league",
					"homeTeam":    "Arsenal",
					"awayTeam":    "Chelsea",
					"kickoffAt":   kickoff,
				},
			})

		case r.URL.Path == "/results":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{
					"id":          "fx-1000",
					"homeGoals":   2,
					"awayGoals":   1,
					"homeCorners": 6,
					"awayCorners": 4,
					"homeCards":   2,
					"awayCards":   3,
				},
			})

		case r.URL.Path == "/odds/fx-1001":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"fixtureId": "fx-1001",
				"home":      2.05,
				"draw":      3.40,
				"away":      3.60,
				"over25":    1.90,
				"under25":   1.95,
			})

		case r.URL.Path == "/situational/fx-1001":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"fixtureId":       "fx-1001",
				"restDaysHome":    6,
				"restDaysAway":    3,
				"injuriesHome":    1,
				"injuriesAway":    2,
				"derby":           true,
				"weatherSeverity": 0.2,
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	return httptest.NewServer(handler)
}

// WaitForCondition waits for a condition to become true or times out.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	require.Fail(t, "condition not met within timeout", message)
}

// CreateTestContext creates a context with a timeout for testing.
func CreateTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)

	return ctx
}

// GetEnvOrDefault returns environment variable value or a default.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SkipIfShort skips test if running in short mode.
func SkipIfShort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test in short mode")
	}
}
