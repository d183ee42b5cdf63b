// Package features converts raw match context into fixed-order numeric vectors.
package features

import "github.com/yourusername/match-oracle/internal/models"

// Neutral defaults used when an input category never reported. Missingness is
// always a sentinel default plus an availability flag, never an omitted field.
const (
	defaultImpliedProb = 1.0 / 3.0
	defaultRestDays    = 7
	defaultTeamClass   = 3
)

// Vector is the strongly-typed feature vector for one fixture. Field order is
// fixed by the names list below; the same match and upstream state always
// produce an identical vector.
type Vector struct {
	// Ratings
	HomeRating float64
	AwayRating float64
	RatingDiff float64

	// Recent form, last formWindow verified matches strictly before kickoff
	HomeFormPoints   float64
	HomeFormScored   float64
	HomeFormConceded float64
	HomeFormWins     float64
	HomeFormDraws    float64
	HomeFormLosses   float64
	AwayFormPoints   float64
	AwayFormScored   float64
	AwayFormConceded float64
	AwayFormWins     float64
	AwayFormDraws    float64
	AwayFormLosses   float64
	FormAvailable    bool

	// Head-to-head over the bounded history window
	H2HMatches   float64
	H2HHomeWins  float64
	H2HDraws     float64
	H2HAwayWins  float64
	H2HGoalsAvg  float64
	H2HAvailable bool

	// Market odds, raw and vig-free
	OddsHome       float64
	OddsDraw       float64
	OddsAway       float64
	ImpliedHome    float64
	ImpliedDraw    float64
	ImpliedAway    float64
	OddsOver25     float64
	OddsUnder25    float64
	ImpliedOver25  float64
	OddsBTTSYes    float64
	OddsBTTSNo     float64
	ImpliedBTTSYes float64
	LineMovement   float64
	SharpMove      float64
	OddsAvailable  bool

	// Situational modifiers
	RestDaysHome         float64
	RestDaysAway         float64
	RestDiff             float64
	InjuriesHome         float64
	InjuriesAway         float64
	KeyInjuriesHome      float64
	KeyInjuriesAway      float64
	RefereeCards         float64
	RefereePenalties     float64
	Derby                float64
	MotivationHome       float64
	MotivationAway       float64
	TeamClassHome        float64
	TeamClassAway        float64
	WeatherSeverity      float64
	SituationalAvailable bool

	// Streaks from the rating rows
	HomeStreak float64
	AwayStreak float64
}

// FieldNames is the fixed vector field order used for training and inference.
var FieldNames = []string{
	"home_rating", "away_rating", "rating_diff",
	"home_form_points", "home_form_scored", "home_form_conceded",
	"home_form_wins", "home_form_draws", "home_form_losses",
	"away_form_points", "away_form_scored", "away_form_conceded",
	"away_form_wins", "away_form_draws", "away_form_losses",
	"form_available",
	"h2h_matches", "h2h_home_wins", "h2h_draws", "h2h_away_wins", "h2h_goals_avg", "h2h_available",
	"odds_home", "odds_draw", "odds_away",
	"implied_home", "implied_draw", "implied_away",
	"odds_over_2_5", "odds_under_2_5", "implied_over_2_5",
	"odds_btts_yes", "odds_btts_no", "implied_btts_yes",
	"line_movement", "sharp_move", "odds_available",
	"rest_days_home", "rest_days_away", "rest_diff",
	"injuries_home", "injuries_away", "key_injuries_home", "key_injuries_away",
	"referee_cards", "referee_penalties",
	"derby", "motivation_home", "motivation_away",
	"team_class_home", "team_class_away", "weather_severity", "situational_available",
	"home_streak", "away_streak",
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// Values returns the vector in FieldNames order.
func (v *Vector) Values() []float64 {
	return []float64{
		v.HomeRating, v.AwayRating, v.RatingDiff,
		v.HomeFormPoints, v.HomeFormScored, v.HomeFormConceded,
		v.HomeFormWins, v.HomeFormDraws, v.HomeFormLosses,
		v.AwayFormPoints, v.AwayFormScored, v.AwayFormConceded,
		v.AwayFormWins, v.AwayFormDraws, v.AwayFormLosses,
		boolToFloat(v.FormAvailable),
		v.H2HMatches, v.H2HHomeWins, v.H2HDraws, v.H2HAwayWins, v.H2HGoalsAvg, boolToFloat(v.H2HAvailable),
		v.OddsHome, v.OddsDraw, v.OddsAway,
		v.ImpliedHome, v.ImpliedDraw, v.ImpliedAway,
		v.OddsOver25, v.OddsUnder25, v.ImpliedOver25,
		v.OddsBTTSYes, v.OddsBTTSNo, v.ImpliedBTTSYes,
		v.LineMovement, v.SharpMove, boolToFloat(v.OddsAvailable),
		v.RestDaysHome, v.RestDaysAway, v.RestDiff,
		v.InjuriesHome, v.InjuriesAway, v.KeyInjuriesHome, v.KeyInjuriesAway,
		v.RefereeCards, v.RefereePenalties,
		v.Derby, v.MotivationHome, v.MotivationAway,
		v.TeamClassHome, v.TeamClassAway, v.WeatherSeverity, boolToFloat(v.SituationalAvailable),
		v.HomeStreak, v.AwayStreak,
	}
}

// MarketOdds returns the decimal odds for an outcome class, 0 when absent.
func (v *Vector) MarketOdds(market, class string) float64 {
	if !v.OddsAvailable {
		return 0
	}
	switch market {
	case models.MarketMatchResult:
		switch class {
		case models.OutcomeHomeWin:
			return v.OddsHome
		case models.OutcomeDraw:
			return v.OddsDraw
		case models.OutcomeAwayWin:
			return v.OddsAway
		}
	case models.MarketOverUnder25:
		if class == models.OutcomeOver {
			return v.OddsOver25
		}
		return v.OddsUnder25
	case models.MarketBTTS:
		if class == models.OutcomeYes {
			return v.OddsBTTSYes
		}
		return v.OddsBTTSNo
	}
	return 0
}

// ImpliedProbability returns the vig-free market probability for an outcome
// class, 0 when no price was observed.
func (v *Vector) ImpliedProbability(market, class string) float64 {
	if !v.OddsAvailable {
		return 0
	}
	switch market {
	case models.MarketMatchResult:
		switch class {
		case models.OutcomeHomeWin:
			return v.ImpliedHome
		case models.OutcomeDraw:
			return v.ImpliedDraw
		case models.OutcomeAwayWin:
			return v.ImpliedAway
		}
	case models.MarketOverUnder25:
		if v.ImpliedOver25 == 0 {
			return 0
		}
		if class == models.OutcomeOver {
			return v.ImpliedOver25
		}
		return 1 - v.ImpliedOver25
	case models.MarketBTTS:
		if v.ImpliedBTTSYes == 0 {
			return 0
		}
		if class == models.OutcomeYes {
			return v.ImpliedBTTSYes
		}
		return 1 - v.ImpliedBTTSYes
	}
	return 0
}

// Conditions returns the situational ROI condition tags the fixture satisfies.
func (v *Vector) Conditions() []string {
	var tags []string
	if v.InjuriesHome+v.InjuriesAway >= 4 || v.KeyInjuriesHome+v.KeyInjuriesAway >= 2 {
		tags = append(tags, models.ConditionHighInjuries)
	}
	if diff := v.RatingDiff; diff >= 150 || diff <= -150 {
		tags = append(tags, models.ConditionLargeGap)
	}
	if v.Derby == 1.0 {
		tags = append(tags, models.ConditionDerby)
	}
	if v.WeatherSeverity >= 0.7 {
		tags = append(tags, models.ConditionBadWeather)
	}
	if v.SharpMove == 1.0 {
		tags = append(tags, models.ConditionSharpMove)
	}
	return tags
}
