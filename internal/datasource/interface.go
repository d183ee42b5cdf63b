// Package datasource fetches fixtures, results, odds and enrichment signals
// from external providers and normalizes them for ingestion.
package datasource

import (
	"context"
	"time"
)

// FixtureSource fetches scheduled fixtures and finished results.
type FixtureSource interface {
	// FetchFixtures retrieves fixtures kicking off inside the window.
	FetchFixtures(ctx context.Context, from, to time.Time) ([]FixtureData, error)

	// FetchResults retrieves results for fixtures finished since the cutoff.
	FetchResults(ctx context.Context, since time.Time) ([]ResultData, error)

	// Name returns the name of the data source
	Name() string

	// IsEnabled returns whether this data source is currently enabled
	IsEnabled() bool
}

// OddsSource fetches current market prices for one fixture.
type OddsSource interface {
	FetchOdds(ctx context.Context, externalID string) (*OddsData, error)
	Name() string
	IsEnabled() bool
}

// EnrichmentSource fetches pre-kickoff situational signals for one fixture.
type EnrichmentSource interface {
	FetchSituational(ctx context.Context, externalID string) (*SituationalData, error)
	Name() string
	IsEnabled() bool
}

// FixtureData represents a normalized scheduled fixture from any provider.
type FixtureData struct {
	SourceID    string    `json:"source_id"`
	Competition string    `json:"competition"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	KickoffAt   time.Time `json:"kickoff_at"`
}

// ResultData represents a normalized final result. Corner and card counts are
// nil when the provider does not cover those statistics.
type ResultData struct {
	SourceID    string `json:"source_id"`
	HomeGoals   int    `json:"home_goals"`
	AwayGoals   int    `json:"away_goals"`
	HomeCorners *int   `json:"home_corners"`
	AwayCorners *int   `json:"away_corners"`
	HomeCards   *int   `json:"home_cards"`
	AwayCards   *int   `json:"away_cards"`
}

// OddsData represents a normalized odds snapshot. A nil price means the
// selection was not quoted.
type OddsData struct {
	SourceID string    `json:"source_id"`
	Home     *float64  `json:"home"`
	Draw     *float64  `json:"draw"`
	Away     *float64  `json:"away"`
	Over25   *float64  `json:"over_2_5"`
	Under25  *float64  `json:"under_2_5"`
	BTTSYes  *float64  `json:"btts_yes"`
	BTTSNo   *float64  `json:"btts_no"`
	TakenAt  time.Time `json:"taken_at"`
}

// SituationalData represents normalized enrichment signals. Nil fields were
// not reported by the provider and keep their neutral defaults on the match.
type SituationalData struct {
	SourceID         string   `json:"source_id"`
	RestDaysHome     *int     `json:"rest_days_home"`
	RestDaysAway     *int     `json:"rest_days_away"`
	InjuriesHome     *int     `json:"injuries_home"`
	InjuriesAway     *int     `json:"injuries_away"`
	KeyInjuriesHome  *int     `json:"key_injuries_home"`
	KeyInjuriesAway  *int     `json:"key_injuries_away"`
	RefereeCards     *float64 `json:"referee_cards_per_game"`
	RefereePenalties *float64 `json:"referee_penalties_per_game"`
	Derby            *bool    `json:"derby"`
	MotivationHome   *float64 `json:"motivation_home"`
	MotivationAway   *float64 `json:"motivation_away"`
	TeamClassHome    *int     `json:"team_class_home"`
	TeamClassAway    *int     `json:"team_class_away"`
	WeatherSeverity  *float64 `json:"weather_severity"`
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeDisabled             = "source_disabled"
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
