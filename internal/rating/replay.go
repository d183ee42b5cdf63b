package rating

import (
	"fmt"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/models"
)

// Replay rebuilds rating state in memory by applying results in kickoff
// order. It runs the same math as Engine.Update but never reads or writes
// the repository, so a caller walking historical matches chronologically
// sees exactly the ratings that existed before each kickoff.
type Replay struct {
	cfg     config.RatingConfig
	ratings map[string]*models.TeamRating
}

// NewReplay creates a replay sharing the engine's rating parameters.
func (e *Engine) NewReplay() *Replay {
	return &Replay{
		cfg:     e.cfg,
		ratings: make(map[string]*models.TeamRating),
	}
}

// Ratings returns copies of both teams' replayed rows, seeding missing
// teams at the neutral default. Copies stay stable across later Apply calls.
func (r *Replay) Ratings(home, away, competition string) (*models.TeamRating, *models.TeamRating) {
	h := *r.loadOrSeed(home, competition)
	a := *r.loadOrSeed(away, competition)
	return &h, &a
}

// Apply folds one result into the replayed state. Matches must be applied
// in ascending kickoff order.
func (r *Replay) Apply(match *models.Match) error {
	if !match.HasResult() {
		return fmt.Errorf("match %s has no result to replay", match.ID)
	}

	home := r.loadOrSeed(match.HomeTeam, match.Competition)
	away := r.loadOrSeed(match.AwayTeam, match.Competition)

	homeGoals, awayGoals := *match.HomeGoals, *match.AwayGoals

	expectedHome := expectedScore(home.Rating+r.cfg.HomeAdvantage, away.Rating)
	expectedAway := 1.0 - expectedHome

	actualHome, actualAway := actualScores(homeGoals, awayGoals)
	multiplier := goalDiffMultiplier(homeGoals - awayGoals)

	home.Rating += kFactor(r.cfg, home) * multiplier * (actualHome - expectedHome)
	away.Rating += kFactor(r.cfg, away) * multiplier * (actualAway - expectedAway)

	applyResult(home, homeGoals, awayGoals)
	applyResult(away, awayGoals, homeGoals)

	return nil
}

func (r *Replay) loadOrSeed(team, competition string) *models.TeamRating {
	key := team + "|" + competition
	if rating, ok := r.ratings[key]; ok {
		return rating
	}
	rating := models.NewTeamRating(team, competition)
	r.ratings[key] = rating
	return rating
}
