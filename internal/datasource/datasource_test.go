package datasource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/match-oracle/internal/config"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testHTTPClient() *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 0
	cfg.RateLimit = 1000
	return NewRateLimitedHTTPClient(cfg, testLogger())
}

func TestFixtureClientFetchFixtures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/fixtures", r.URL.Path)
		assert.Equal(t, "2026-03-01", r.URL.Query().Get("from"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"fx-1","competition":"premier_league","homeTeam":"Arsenal","awayTeam":"Chelsea","kickoffAt":"2026-03-01T15:00:00Z"},
			{"id":"fx-2","competition":"premier_league","homeTeam":"","awayTeam":"Leeds","kickoffAt":"2026-03-01T17:30:00Z"},
			{"id":"fx-3","competition":"premier_league","homeTeam":"Everton","awayTeam":"Fulham","kickoffAt":"not-a-time"}
		]`))
	}))
	defer server.Close()

	client := NewFixtureAPIClient(testHTTPClient(), server.URL, "secret", true, testLogger())
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fixtures, err := client.FetchFixtures(context.Background(), from, from.AddDate(0, 0, 7))
	require.NoError(t, err)

	// Malformed entries are skipped, not fatal.
	require.Len(t, fixtures, 1)
	assert.Equal(t, "fx-1", fixtures[0].SourceID)
	assert.Equal(t, "Arsenal", fixtures[0].HomeTeam)
	assert.Equal(t, time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC), fixtures[0].KickoffAt)
}

func TestFixtureClientFetchResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/results", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"fx-1","homeGoals":2,"awayGoals":1,"homeCorners":7,"awayCorners":4,"homeCards":2,"awayCards":3},
			{"id":"fx-2","homeGoals":0,"awayGoals":0},
			{"id":"fx-3","homeGoals":null,"awayGoals":2}
		]`))
	}))
	defer server.Close()

	client := NewFixtureAPIClient(testHTTPClient(), server.URL, "secret", true, testLogger())
	results, err := client.FetchResults(context.Background(), time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 2, results[0].HomeGoals)
	require.NotNil(t, results[0].HomeCorners)
	assert.Equal(t, 7, *results[0].HomeCorners)

	// Statistics the feed does not cover stay nil.
	assert.Nil(t, results[1].HomeCorners)
	assert.Nil(t, results[1].HomeCards)
}

func TestFixtureClientDisabled(t *testing.T) {
	client := NewFixtureAPIClient(testHTTPClient(), "http://localhost:1", "secret", false, testLogger())

	_, err := client.FetchFixtures(context.Background(), time.Now(), time.Now())
	require.Error(t, err)

	var srcErr DataSourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, ErrCodeDisabled, srcErr.Code)
}

func TestFixtureClientAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewFixtureAPIClient(testHTTPClient(), server.URL, "wrong", true, testLogger())
	_, err := client.FetchFixtures(context.Background(), time.Now(), time.Now())
	require.Error(t, err)

	var srcErr DataSourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, ErrCodeAuthenticationFailed, srcErr.Code)
}

func TestOddsClientFetchOdds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/odds/fx-9", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fixtureId":"fx-9","home":2.1,"draw":3.4,"away":3.6,"over25":1.9,"under25":1.95,"bttsYes":null,"bttsNo":null,"takenAt":"2026-03-01T12:00:00Z"}`))
	}))
	defer server.Close()

	client := NewOddsAPIClient(testHTTPClient(), server.URL, "secret", true, testLogger())
	odds, err := client.FetchOdds(context.Background(), "fx-9")
	require.NoError(t, err)

	require.NotNil(t, odds.Home)
	assert.InDelta(t, 2.1, *odds.Home, 1e-9)
	assert.Nil(t, odds.BTTSYes)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), odds.TakenAt)
}

func TestOddsClientNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOddsAPIClient(testHTTPClient(), server.URL, "secret", true, testLogger())
	_, err := client.FetchOdds(context.Background(), "fx-missing")
	require.Error(t, err)

	var srcErr DataSourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, ErrCodeNotFound, srcErr.Code)
}

func TestEnrichmentClientFetchSituational(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/situational/fx-5", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fixtureId":"fx-5","injuriesHome":3,"keyInjuriesHome":1,"derby":true,"weatherSeverity":0.8}`))
	}))
	defer server.Close()

	client := NewEnrichmentAPIClient(testHTTPClient(), server.URL, "secret", true, testLogger())
	data, err := client.FetchSituational(context.Background(), "fx-5")
	require.NoError(t, err)

	require.NotNil(t, data.InjuriesHome)
	assert.Equal(t, 3, *data.InjuriesHome)
	require.NotNil(t, data.Derby)
	assert.True(t, *data.Derby)
	require.NotNil(t, data.WeatherSeverity)
	assert.InDelta(t, 0.8, *data.WeatherSeverity, 1e-9)
	assert.Nil(t, data.RestDaysHome)
}

func TestCustomRetryPolicy(t *testing.T) {
	policy := customRetryPolicy()

	tests := []struct {
		name       string
		statusCode int
		retry      bool
	}{
		{"ok", 200, false},
		{"bad request", 400, false},
		{"unauthorized", 401, false},
		{"rate limited", 429, true},
		{"server error", 500, true},
		{"bad gateway", 502, true},
		{"unavailable", 503, true},
		{"gateway timeout", 504, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retry, _ := policy(context.Background(), &http.Response{StatusCode: tt.statusCode}, nil)
			assert.Equal(t, tt.retry, retry)
		})
	}
}

func TestHTTPClientConfigFrom(t *testing.T) {
	cfg := HTTPClientConfigFrom(config.DataSourcesConfig{
		TimeoutSeconds:    12,
		RetryAttempts:     2,
		RequestsPerSecond: 4.5,
	})

	assert.Equal(t, 12*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.InDelta(t, 4.5, cfg.RateLimit, 1e-9)

	// Zero values keep defaults.
	defaults := HTTPClientConfigFrom(config.DataSourcesConfig{})
	assert.Equal(t, DefaultHTTPClientConfig().Timeout, defaults.Timeout)
}

func TestRateLimiterSpacing(t *testing.T) {
	cfg := DefaultHTTPClientConfig()
	cfg.RateLimit = 50
	client := NewRateLimitedHTTPClient(cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	for i := 0; i < 6; i++ {
		require.NoError(t, client.limiter.Wait(ctx))
	}
	elapsed := time.Since(start)

	// Five waits at 50 req/s with burst 1 take roughly 100ms.
	assert.Greater(t, elapsed, 80*time.Millisecond)
}
