package models

import (
	"time"

	"github.com/google/uuid"
)

// Match lifecycle statuses. A match only ever moves forward through these.
const (
	MatchScheduled  = "scheduled"
	MatchInProgress = "in_progress"
	MatchFinished   = "finished"
	MatchVerified   = "verified"
)

// MatchOdds holds decimal odds snapshots for a fixture. A zero value means
// the price was never observed for that selection.
type MatchOdds struct {
	Home        float64 `json:"home"`
	Draw        float64 `json:"draw"`
	Away        float64 `json:"away"`
	Over25      float64 `json:"over_2_5"`
	Under25     float64 `json:"under_2_5"`
	BTTSYes     float64 `json:"btts_yes"`
	BTTSNo      float64 `json:"btts_no"`
	OpeningHome float64 `json:"opening_home"`
	OpeningAway float64 `json:"opening_away"`
	SharpMove   bool    `json:"sharp_move"`
}

// Situational holds enrichment signals collected before kickoff. Counts are
// zero and rates neutral when the relevant feed never reported.
type Situational struct {
	RestDaysHome     int     `json:"rest_days_home"`
	RestDaysAway     int     `json:"rest_days_away"`
	InjuriesHome     int     `json:"injuries_home"`
	InjuriesAway     int     `json:"injuries_away"`
	KeyInjuriesHome  int     `json:"key_injuries_home"`
	KeyInjuriesAway  int     `json:"key_injuries_away"`
	RefereeCards     float64 `json:"referee_cards_per_game"`
	RefereePenalties float64 `json:"referee_penalties_per_game"`
	Derby            bool    `json:"derby"`
	MotivationHome   float64 `json:"motivation_home"`
	MotivationAway   float64 `json:"motivation_away"`
	TeamClassHome    int     `json:"team_class_home"`
	TeamClassAway    int     `json:"team_class_away"`
	WeatherSeverity  float64 `json:"weather_severity"`
}

// Match represents one fixture and is permanent training/audit history.
// Result columns stay nil until the fixture finishes.
type Match struct {
	ID          uuid.UUID    `db:"id" json:"id" validate:"required,uuid4"`
	ExternalID  string       `db:"external_id" json:"external_id" validate:"required"`
	Competition string       `db:"competition" json:"competition" validate:"required"`
	HomeTeam    string       `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam    string       `db:"away_team" json:"away_team" validate:"required"`
	KickoffAt   time.Time    `db:"kickoff_at" json:"kickoff_at" validate:"required"`
	Status      string       `db:"status" json:"status" validate:"required,oneof=scheduled in_progress finished verified"`
	HomeGoals   *int         `db:"home_goals" json:"home_goals,omitempty"`
	AwayGoals   *int         `db:"away_goals" json:"away_goals,omitempty"`
	HomeCorners *int         `db:"home_corners" json:"home_corners,omitempty"`
	AwayCorners *int         `db:"away_corners" json:"away_corners,omitempty"`
	HomeCards   *int         `db:"home_cards" json:"home_cards,omitempty"`
	AwayCards   *int         `db:"away_cards" json:"away_cards,omitempty"`
	Odds        *MatchOdds   `db:"odds" json:"odds,omitempty"`
	Situational *Situational `db:"situational" json:"situational,omitempty"`
	VerifiedAt  *time.Time   `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// HasResult reports whether both goal counts are recorded.
func (m *Match) HasResult() bool {
	return m.HomeGoals != nil && m.AwayGoals != nil
}

// IsVerified reports whether the result has been verified. A verified match
// always carries non-nil goals.
func (m *Match) IsVerified() bool {
	return m.Status == MatchVerified && m.HasResult()
}

// TotalGoals returns the combined goal count, or 0 when no result is recorded.
func (m *Match) TotalGoals() int {
	if !m.HasResult() {
		return 0
	}
	return *m.HomeGoals + *m.AwayGoals
}

// ResultClass returns the 1X2 outcome class, or "" when no result is recorded.
func (m *Match) ResultClass() string {
	if !m.HasResult() {
		return ""
	}
	switch {
	case *m.HomeGoals > *m.AwayGoals:
		return OutcomeHomeWin
	case *m.HomeGoals < *m.AwayGoals:
		return OutcomeAwayWin
	default:
		return OutcomeDraw
	}
}

// MarketOutcome returns the observed outcome class for a market, or false when
// the fixture lacks the inputs needed to grade it. Lines are 2.5 goals, 9.5
// corners and 4.5 cards, so the over threshold is the next whole number.
func (m *Match) MarketOutcome(market string) (string, bool) {
	switch market {
	case MarketMatchResult:
		if !m.HasResult() {
			return "", false
		}
		return m.ResultClass(), true
	case MarketOverUnder25:
		if !m.HasResult() {
			return "", false
		}
		if m.TotalGoals() >= 3 {
			return OutcomeOver, true
		}
		return OutcomeUnder, true
	case MarketBTTS:
		if !m.HasResult() {
			return "", false
		}
		if *m.HomeGoals > 0 && *m.AwayGoals > 0 {
			return OutcomeYes, true
		}
		return OutcomeNo, true
	case MarketCornersOver:
		if m.HomeCorners == nil || m.AwayCorners == nil {
			return "", false
		}
		if *m.HomeCorners+*m.AwayCorners >= 10 {
			return OutcomeOver, true
		}
		return OutcomeUnder, true
	case MarketCardsOver:
		if m.HomeCards == nil || m.AwayCards == nil {
			return "", false
		}
		if *m.HomeCards+*m.AwayCards >= 5 {
			return OutcomeOver, true
		}
		return OutcomeUnder, true
	}
	return "", false
}

// statusRank orders the lifecycle for monotonic transitions.
var statusRank = map[string]int{
	MatchScheduled:  0,
	MatchInProgress: 1,
	MatchFinished:   2,
	MatchVerified:   3,
}

// CanTransitionTo reports whether moving to the given status keeps the
// lifecycle monotonic.
func (m *Match) CanTransitionTo(status string) bool {
	to, ok := statusRank[status]
	if !ok {
		return false
	}
	return to >= statusRank[m.Status]
}
