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

const oddsSourceName = "odds_api"

// OddsAPIClient implements OddsSource against the odds feed.
type OddsAPIClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	enabled    bool
	logger     *logrus.Logger
}

// apiOdds represents one odds snapshot from the feed. A selection the
// bookmaker never priced comes back null.
type apiOdds struct {
	FixtureID string   `json:"fixtureId"`
	Home      *float64 `json:"home"`
	Draw      *float64 `json:"draw"`
	Away      *float64 `json:"away"`
	Over25    *float64 `json:"over25"`
	Under25   *float64 `json:"under25"`
	BTTSYes   *float64 `json:"bttsYes"`
	BTTSNo    *float64 `json:"bttsNo"`
	TakenAt   *string  `json:"takenAt"`
}

// NewOddsAPIClient creates a new odds feed client
func NewOddsAPIClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, enabled bool, logger *logrus.Logger) *OddsAPIClient {
	return &OddsAPIClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		enabled:    enabled,
		logger:     logger,
	}
}

// FetchOdds retrieves the current odds snapshot for one fixture.
func (c *OddsAPIClient) FetchOdds(ctx context.Context, externalID string) (*OddsData, error) {
	if !c.enabled {
		return nil, NewDataSourceError(oddsSourceName, ErrCodeDisabled, "data source is disabled", nil)
	}

	url := fmt.Sprintf("%s/odds/%s", c.baseURL, externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewDataSourceError(oddsSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewDataSourceError(oddsSourceName, ErrCodeNetworkError, "failed to fetch odds", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(oddsSourceName, ErrCodeNotFound, "odds not found", nil)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewDataSourceError(oddsSourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(oddsSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(resp.Body)
		return nil, NewDataSourceError(oddsSourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)), nil)
	}

	var raw apiOdds
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, NewDataSourceError(oddsSourceName, ErrCodeInvalidData, "failed to parse odds response", err)
	}
	return c.convertOdds(&raw), nil
}

// Name returns the data source name
func (c *OddsAPIClient) Name() string {
	return oddsSourceName
}

// IsEnabled returns whether this data source is enabled
func (c *OddsAPIClient) IsEnabled() bool {
	return c.enabled
}

func (c *OddsAPIClient) convertOdds(raw *apiOdds) *OddsData {
	takenAt := time.Now().UTC()
	if raw.TakenAt != nil {
		if parsed, err := time.Parse(time.RFC3339, *raw.TakenAt); err == nil {
			takenAt = parsed.UTC()
		} else {
			c.logger.WithField("fixture_id", raw.FixtureID).Warn("Invalid odds timestamp, using fetch time")
		}
	}
	return &OddsData{
		SourceID: raw.FixtureID,
		Home:     raw.Home,
		Draw:     raw.Draw,
		Away:     raw.Away,
		Over25:   raw.Over25,
		Under25:  raw.Under25,
		BTTSYes:  raw.BTTSYes,
		BTTSNo:   raw.BTTSNo,
		TakenAt:  takenAt,
	}
}
