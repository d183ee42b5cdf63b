package features

import (
	"context"
	"fmt"

	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/rating"
	"github.com/yourusername/match-oracle/internal/repository"
)

const (
	formWindow = 5
	h2hWindow  = 10
)

// Builder assembles feature vectors from match context. Every category except
// team identity degrades to neutral defaults instead of failing.
type Builder struct {
	matchRepo repository.MatchRepository
	ratings   *rating.Engine
}

// NewBuilder creates a feature builder.
func NewBuilder(matchRepo repository.MatchRepository, ratings *rating.Engine) *Builder {
	return &Builder{matchRepo: matchRepo, ratings: ratings}
}

// NewReplay returns a fresh in-memory rating replay sharing the engine's
// parameters, for chronological historical assembly.
func (b *Builder) NewReplay() *rating.Replay {
	return b.ratings.NewReplay()
}

// Build computes the feature vector for a fixture using the teams' current
// rating rows. Form and head-to-head aggregates only read matches with
// kickoff strictly before this fixture's, so later results can never leak
// into the vector.
func (b *Builder) Build(ctx context.Context, match *models.Match) (*Vector, error) {
	if match.HomeTeam == "" || match.AwayTeam == "" {
		return nil, models.ErrMissingFeatureInput
	}

	home, away, err := b.ratings.Ratings(ctx, match.HomeTeam, match.AwayTeam, match.Competition)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}

	return b.BuildWithRatings(ctx, match, home, away)
}

// BuildWithRatings computes the feature vector from caller-supplied rating
// rows. Historical assembly passes replayed pre-kickoff ratings here so the
// vector matches what the fixture would have seen at prediction time.
func (b *Builder) BuildWithRatings(ctx context.Context, match *models.Match, home, away *models.TeamRating) (*Vector, error) {
	if match.HomeTeam == "" || match.AwayTeam == "" {
		return nil, models.ErrMissingFeatureInput
	}

	vector := &Vector{
		HomeRating: home.Rating,
		AwayRating: away.Rating,
		RatingDiff: home.Rating - away.Rating,
		HomeStreak: float64(home.Streak),
		AwayStreak: float64(away.Streak),
	}

	if err := b.addForm(ctx, match, vector); err != nil {
		return nil, err
	}
	if err := b.addHeadToHead(ctx, match, vector); err != nil {
		return nil, err
	}
	addOdds(match.Odds, vector)
	addSituational(match.Situational, vector)

	return vector, nil
}

// formAggregate folds one team's recent verified matches.
type formAggregate struct {
	points, scored, conceded float64
	wins, draws, losses      float64
}

func aggregateForm(team string, matches []*models.Match) formAggregate {
	var agg formAggregate
	for _, m := range matches {
		if !m.HasResult() {
			continue
		}
		goalsFor, goalsAgainst := *m.HomeGoals, *m.AwayGoals
		if m.AwayTeam == team {
			goalsFor, goalsAgainst = goalsAgainst, goalsFor
		}
		agg.scored += float64(goalsFor)
		agg.conceded += float64(goalsAgainst)
		switch {
		case goalsFor > goalsAgainst:
			agg.wins++
			agg.points += 3
		case goalsFor == goalsAgainst:
			agg.draws++
			agg.points++
		default:
			agg.losses++
		}
	}
	return agg
}

func (b *Builder) addForm(ctx context.Context, match *models.Match, vector *Vector) error {
	homeMatches, err := b.matchRepo.GetVerifiedBefore(ctx, match.HomeTeam, match.Competition, match.KickoffAt, formWindow)
	if err != nil {
		return fmt.Errorf("failed to load home form: %w", err)
	}
	awayMatches, err := b.matchRepo.GetVerifiedBefore(ctx, match.AwayTeam, match.Competition, match.KickoffAt, formWindow)
	if err != nil {
		return fmt.Errorf("failed to load away form: %w", err)
	}

	if len(homeMatches) == 0 && len(awayMatches) == 0 {
		return nil
	}

	homeAgg := aggregateForm(match.HomeTeam, homeMatches)
	awayAgg := aggregateForm(match.AwayTeam, awayMatches)

	vector.FormAvailable = true
	vector.HomeFormPoints = homeAgg.points
	vector.HomeFormScored = homeAgg.scored
	vector.HomeFormConceded = homeAgg.conceded
	vector.HomeFormWins = homeAgg.wins
	vector.HomeFormDraws = homeAgg.draws
	vector.HomeFormLosses = homeAgg.losses
	vector.AwayFormPoints = awayAgg.points
	vector.AwayFormScored = awayAgg.scored
	vector.AwayFormConceded = awayAgg.conceded
	vector.AwayFormWins = awayAgg.wins
	vector.AwayFormDraws = awayAgg.draws
	vector.AwayFormLosses = awayAgg.losses

	return nil
}

func (b *Builder) addHeadToHead(ctx context.Context, match *models.Match, vector *Vector) error {
	meetings, err := b.matchRepo.GetHeadToHeadBefore(ctx, match.HomeTeam, match.AwayTeam, match.KickoffAt, h2hWindow)
	if err != nil {
		return fmt.Errorf("failed to load head-to-head: %w", err)
	}
	if len(meetings) == 0 {
		return nil
	}

	var goals float64
	for _, m := range meetings {
		if !m.HasResult() {
			continue
		}
		vector.H2HMatches++
		goals += float64(m.TotalGoals())

		winner := ""
		switch m.ResultClass() {
		case models.OutcomeHomeWin:
			winner = m.HomeTeam
		case models.OutcomeAwayWin:
			winner = m.AwayTeam
		}
		switch winner {
		case match.HomeTeam:
			vector.H2HHomeWins++
		case match.AwayTeam:
			vector.H2HAwayWins++
		default:
			vector.H2HDraws++
		}
	}

	if vector.H2HMatches > 0 {
		vector.H2HAvailable = true
		vector.H2HGoalsAvg = goals / vector.H2HMatches
	}

	return nil
}

// addOdds fills raw prices and vig-free implied probabilities. Raw implied
// probabilities are normalized so they sum to 1, stripping the bookmaker
// margin.
func addOdds(odds *models.MatchOdds, vector *Vector) {
	vector.ImpliedHome = defaultImpliedProb
	vector.ImpliedDraw = defaultImpliedProb
	vector.ImpliedAway = defaultImpliedProb

	if odds == nil {
		return
	}

	if odds.Home > 1 && odds.Draw > 1 && odds.Away > 1 {
		vector.OddsAvailable = true
		vector.OddsHome = odds.Home
		vector.OddsDraw = odds.Draw
		vector.OddsAway = odds.Away
		vector.ImpliedHome, vector.ImpliedDraw, vector.ImpliedAway = removeVig3(odds.Home, odds.Draw, odds.Away)
	}

	if odds.Over25 > 1 && odds.Under25 > 1 {
		vector.OddsAvailable = true
		vector.OddsOver25 = odds.Over25
		vector.OddsUnder25 = odds.Under25
		vector.ImpliedOver25, _ = removeVig2(odds.Over25, odds.Under25)
	}

	if odds.BTTSYes > 1 && odds.BTTSNo > 1 {
		vector.OddsAvailable = true
		vector.OddsBTTSYes = odds.BTTSYes
		vector.OddsBTTSNo = odds.BTTSNo
		vector.ImpliedBTTSYes, _ = removeVig2(odds.BTTSYes, odds.BTTSNo)
	}

	if odds.OpeningHome > 1 && odds.Home > 1 {
		vector.LineMovement = odds.Home - odds.OpeningHome
	}
	vector.SharpMove = boolToFloat(odds.SharpMove)
}

func addSituational(situational *models.Situational, vector *Vector) {
	vector.RestDaysHome = defaultRestDays
	vector.RestDaysAway = defaultRestDays
	vector.TeamClassHome = defaultTeamClass
	vector.TeamClassAway = defaultTeamClass

	if situational == nil {
		return
	}

	vector.SituationalAvailable = true
	if situational.RestDaysHome > 0 {
		vector.RestDaysHome = float64(situational.RestDaysHome)
	}
	if situational.RestDaysAway > 0 {
		vector.RestDaysAway = float64(situational.RestDaysAway)
	}
	vector.RestDiff = vector.RestDaysHome - vector.RestDaysAway
	vector.InjuriesHome = float64(situational.InjuriesHome)
	vector.InjuriesAway = float64(situational.InjuriesAway)
	vector.KeyInjuriesHome = float64(situational.KeyInjuriesHome)
	vector.KeyInjuriesAway = float64(situational.KeyInjuriesAway)
	vector.RefereeCards = situational.RefereeCards
	vector.RefereePenalties = situational.RefereePenalties
	vector.Derby = boolToFloat(situational.Derby)
	vector.MotivationHome = situational.MotivationHome
	vector.MotivationAway = situational.MotivationAway
	if situational.TeamClassHome > 0 {
		vector.TeamClassHome = float64(situational.TeamClassHome)
	}
	if situational.TeamClassAway > 0 {
		vector.TeamClassAway = float64(situational.TeamClassAway)
	}
	vector.WeatherSeverity = situational.WeatherSeverity
}

// removeVig2 converts two-way decimal odds to fair probabilities by stripping
// the bookmaker's overround.
func removeVig2(a, b float64) (float64, float64) {
	rawA := 1.0 / a
	rawB := 1.0 / b
	total := rawA + rawB
	return rawA / total, rawB / total
}

// removeVig3 converts three-way decimal odds to fair probabilities.
func removeVig3(a, b, c float64) (float64, float64, float64) {
	rawA := 1.0 / a
	rawB := 1.0 / b
	rawC := 1.0 / c
	total := rawA + rawB + rawC
	return rawA / total, rawB / total, rawC / total
}
