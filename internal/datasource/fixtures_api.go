package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const fixtureSourceName = "fixtures_api"

// FixtureAPIClient implements FixtureSource against the fixtures feed.
type FixtureAPIClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	enabled    bool
	logger     *logrus.Logger
}

// apiFixture represents one fixture from the feed.
type apiFixture struct {
	ID          string  `json:"id"`
	Competition string  `json:"competition"`
	HomeTeam    string  `json:"homeTeam"`
	AwayTeam    string  `json:"awayTeam"`
	KickoffAt   string  `json:"kickoffAt"`
	Status      *string `json:"status"`
}

// apiResult represents one final result from the feed. Statistics the feed
// does not cover for a competition come back null.
type apiResult struct {
	ID          string `json:"id"`
	HomeGoals   *int   `json:"homeGoals"`
	AwayGoals   *int   `json:"awayGoals"`
	HomeCorners *int   `json:"homeCorners"`
	AwayCorners *int   `json:"awayCorners"`
	HomeCards   *int   `json:"homeCards"`
	AwayCards   *int   `json:"awayCards"`
}

// NewFixtureAPIClient creates a new fixtures feed client
func NewFixtureAPIClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, enabled bool, logger *logrus.Logger) *FixtureAPIClient {
	return &FixtureAPIClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		enabled:    enabled,
		logger:     logger,
	}
}

// FetchFixtures retrieves fixtures kicking off inside the window.
func (c *FixtureAPIClient) FetchFixtures(ctx context.Context, from, to time.Time) ([]FixtureData, error) {
	if !c.enabled {
		return nil, NewDataSourceError(fixtureSourceName, ErrCodeDisabled, "data source is disabled", nil)
	}

	url := fmt.Sprintf("%s/fixtures?from=%s&to=%s", c.baseURL, from.Format("2006-01-02"), to.Format("2006-01-02"))
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var raw []apiFixture
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, NewDataSourceError(fixtureSourceName, ErrCodeInvalidData, "failed to parse fixtures response", err)
	}

	fixtures := make([]FixtureData, 0, len(raw))
	for _, item := range raw {
		fixture, err := c.convertFixture(&item)
		if err != nil {
			c.logger.WithError(err).WithField("fixture_id", item.ID).Warn("Skipping malformed fixture")
			continue
		}
		fixtures = append(fixtures, *fixture)
	}
	return fixtures, nil
}

// FetchResults retrieves results for fixtures finished since the cutoff.
func (c *FixtureAPIClient) FetchResults(ctx context.Context, since time.Time) ([]ResultData, error) {
	if !c.enabled {
		return nil, NewDataSourceError(fixtureSourceName, ErrCodeDisabled, "data source is disabled", nil)
	}

	url := fmt.Sprintf("%s/results?since=%s", c.baseURL, since.UTC().Format(time.RFC3339))
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var raw []apiResult
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, NewDataSourceError(fixtureSourceName, ErrCodeInvalidData, "failed to parse results response", err)
	}

	results := make([]ResultData, 0, len(raw))
	for _, item := range raw {
		if item.HomeGoals == nil || item.AwayGoals == nil {
			c.logger.WithField("fixture_id", item.ID).Warn("Skipping result without goal counts")
			continue
		}
		results = append(results, ResultData{
			SourceID:    item.ID,
			HomeGoals:   *item.HomeGoals,
			AwayGoals:   *item.AwayGoals,
			HomeCorners: item.HomeCorners,
			AwayCorners: item.AwayCorners,
			HomeCards:   item.HomeCards,
			AwayCards:   item.AwayCards,
		})
	}
	return results, nil
}

// Name returns the data source name
func (c *FixtureAPIClient) Name() string {
	return fixtureSourceName
}

// IsEnabled returns whether this data source is enabled
func (c *FixtureAPIClient) IsEnabled() bool {
	return c.enabled
}

// get issues an authenticated GET and maps HTTP failures onto source errors.
func (c *FixtureAPIClient) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewDataSourceError(fixtureSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewDataSourceError(fixtureSourceName, ErrCodeNetworkError, "request failed", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, NewDataSourceError(fixtureSourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, NewDataSourceError(fixtureSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, NewDataSourceError(fixtureSourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}
	return resp.Body, nil
}

// convertFixture normalizes one feed fixture.
func (c *FixtureAPIClient) convertFixture(item *apiFixture) (*FixtureData, error) {
	if item.ID == "" || item.HomeTeam == "" || item.AwayTeam == "" {
		return nil, fmt.Errorf("fixture missing identity fields")
	}
	kickoff, err := time.Parse(time.RFC3339, item.KickoffAt)
	if err != nil {
		return nil, fmt.Errorf("invalid kickoff time %q: %w", item.KickoffAt, err)
	}
	return &FixtureData{
		SourceID:    item.ID,
		Competition: item.Competition,
		HomeTeam:    item.HomeTeam,
		AwayTeam:    item.AwayTeam,
		KickoffAt:   kickoff.UTC(),
	}, nil
}
