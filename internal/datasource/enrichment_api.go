package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

const enrichmentSourceName = "enrichment_api"

// EnrichmentAPIClient implements EnrichmentSource against the enrichment feed.
type EnrichmentAPIClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	enabled    bool
	logger     *logrus.Logger
}

// apiSituational represents pre-kickoff signals from the feed. Every field is
// optional; providers cover different subsets per competition.
type apiSituational struct {
	FixtureID        string   `json:"fixtureId"`
	RestDaysHome     *int     `json:"restDaysHome"`
	RestDaysAway     *int     `json:"restDaysAway"`
	InjuriesHome     *int     `json:"injuriesHome"`
	InjuriesAway     *int     `json:"injuriesAway"`
	KeyInjuriesHome  *int     `json:"keyInjuriesHome"`
	KeyInjuriesAway  *int     `json:"keyInjuriesAway"`
	RefereeCards     *float64 `json:"refereeCardsPerGame"`
	RefereePenalties *float64 `json:"refereePenaltiesPerGame"`
	Derby            *bool    `json:"derby"`
	MotivationHome   *float64 `json:"motivationHome"`
	MotivationAway   *float64 `json:"motivationAway"`
	TeamClassHome    *int     `json:"teamClassHome"`
	TeamClassAway    *int     `json:"teamClassAway"`
	WeatherSeverity  *float64 `json:"weatherSeverity"`
}

// NewEnrichmentAPIClient creates a new enrichment feed client
func NewEnrichmentAPIClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, enabled bool, logger *logrus.Logger) *EnrichmentAPIClient {
	return &EnrichmentAPIClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		enabled:    enabled,
		logger:     logger,
	}
}

// FetchSituational retrieves enrichment signals for one fixture.
func (c *EnrichmentAPIClient) FetchSituational(ctx context.Context, externalID string) (*SituationalData, error) {
	if !c.enabled {
		return nil, NewDataSourceError(enrichmentSourceName, ErrCodeDisabled, "data source is disabled", nil)
	}

	url := fmt.Sprintf("%s/situational/%s", c.baseURL, externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewDataSourceError(enrichmentSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewDataSourceError(enrichmentSourceName, ErrCodeNetworkError, "failed to fetch situational data", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(enrichmentSourceName, ErrCodeNotFound, "situational data not found", nil)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewDataSourceError(enrichmentSourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(enrichmentSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(resp.Body)
		return nil, NewDataSourceError(enrichmentSourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}

	var raw apiSituational
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, NewDataSourceError(enrichmentSourceName, ErrCodeInvalidData, "failed to parse situational response", err)
	}

	return &SituationalData{
		SourceID:         raw.FixtureID,
		RestDaysHome:     raw.RestDaysHome,
		RestDaysAway:     raw.RestDaysAway,
		InjuriesHome:     raw.InjuriesHome,
		InjuriesAway:     raw.InjuriesAway,
		KeyInjuriesHome:  raw.KeyInjuriesHome,
		KeyInjuriesAway:  raw.KeyInjuriesAway,
		RefereeCards:     raw.RefereeCards,
		RefereePenalties: raw.RefereePenalties,
		Derby:            raw.Derby,
		MotivationHome:   raw.MotivationHome,
		MotivationAway:   raw.MotivationAway,
		TeamClassHome:    raw.TeamClassHome,
		TeamClassAway:    raw.TeamClassAway,
		WeatherSeverity:  raw.WeatherSeverity,
	}, nil
}

// Name returns the data source name
func (c *EnrichmentAPIClient) Name() string {
	return enrichmentSourceName
}

// IsEnabled returns whether this data source is enabled
func (c *EnrichmentAPIClient) IsEnabled() bool {
	return c.enabled
}
