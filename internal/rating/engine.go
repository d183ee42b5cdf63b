// Package rating maintains per-team, per-competition Elo-style skill ratings.
package rating

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
)

const lockStripes = 64

// Engine applies rating updates for verified results. Updates for the same
// team serialize through striped locks; disjoint teams proceed independently.
type Engine struct {
	cfg        config.RatingConfig
	ratingRepo repository.TeamRatingRepository
	eventRepo  repository.EventRepository
	log        *logger.EngineLogger
	locks      [lockStripes]sync.Mutex
}

// NewEngine creates a rating engine.
func NewEngine(cfg config.RatingConfig, ratingRepo repository.TeamRatingRepository, eventRepo repository.EventRepository, log *logger.EngineLogger) *Engine {
	return &Engine{
		cfg:        cfg,
		ratingRepo: ratingRepo,
		eventRepo:  eventRepo,
		log:        log,
	}
}

// ratingEvent is the audit payload for one applied update.
type ratingEvent struct {
	Competition string  `json:"competition"`
	HomeTeam    string  `json:"home_team"`
	AwayTeam    string  `json:"away_team"`
	HomeBefore  float64 `json:"home_before"`
	HomeAfter   float64 `json:"home_after"`
	AwayBefore  float64 `json:"away_before"`
	AwayAfter   float64 `json:"away_after"`
	HomeGoals   int     `json:"home_goals"`
	AwayGoals   int     `json:"away_goals"`
}

// Update applies one verified result to both teams. Called exactly once per
// newly verified match; both rating rows persist atomically.
func (e *Engine) Update(ctx context.Context, match *models.Match) error {
	if !match.HasResult() {
		return fmt.Errorf("match %s has no result to rate", match.ID)
	}

	e.lockTeams(match.HomeTeam, match.AwayTeam)
	defer e.unlockTeams(match.HomeTeam, match.AwayTeam)

	home, err := e.loadOrSeed(ctx, match.HomeTeam, match.Competition)
	if err != nil {
		return err
	}
	away, err := e.loadOrSeed(ctx, match.AwayTeam, match.Competition)
	if err != nil {
		return err
	}

	homeGoals, awayGoals := *match.HomeGoals, *match.AwayGoals
	homeBefore, awayBefore := home.Rating, away.Rating

	// Expected score from the rating difference, with the home side boosted
	// by the fixed home-advantage bonus.
	expectedHome := expectedScore(home.Rating+e.cfg.HomeAdvantage, away.Rating)
	expectedAway := 1.0 - expectedHome

	actualHome, actualAway := actualScores(homeGoals, awayGoals)
	multiplier := goalDiffMultiplier(homeGoals - awayGoals)

	home.Rating += kFactor(e.cfg, home) * multiplier * (actualHome - expectedHome)
	away.Rating += kFactor(e.cfg, away) * multiplier * (actualAway - expectedAway)

	applyResult(home, homeGoals, awayGoals)
	applyResult(away, awayGoals, homeGoals)

	if err := e.ratingRepo.UpsertPair(ctx, home, away); err != nil {
		return fmt.Errorf("failed to persist rating pair: %w", err)
	}

	e.log.LogRatingUpdate(home.Team, home.Competition, homeBefore, home.Rating, home.Streak)
	e.log.LogRatingUpdate(away.Team, away.Competition, awayBefore, away.Rating, away.Streak)

	event := models.NewEngineEvent(models.EventRatingUpdated, "", ratingEvent{
		Competition: match.Competition,
		HomeTeam:    match.HomeTeam,
		AwayTeam:    match.AwayTeam,
		HomeBefore:  homeBefore,
		HomeAfter:   home.Rating,
		AwayBefore:  awayBefore,
		AwayAfter:   away.Rating,
		HomeGoals:   homeGoals,
		AwayGoals:   awayGoals,
	})
	if err := e.eventRepo.Append(ctx, event); err != nil {
		// The audit trail is best effort; the rating rows already committed.
		e.log.LogLoopError("rating_event", err)
	}

	return nil
}

// Ratings returns the current rating rows for both teams, seeding missing
// rows at the neutral default without persisting them.
func (e *Engine) Ratings(ctx context.Context, home, away, competition string) (*models.TeamRating, *models.TeamRating, error) {
	homeRating, err := e.loadOrSeed(ctx, home, competition)
	if err != nil {
		return nil, nil, err
	}
	awayRating, err := e.loadOrSeed(ctx, away, competition)
	if err != nil {
		return nil, nil, err
	}
	return homeRating, awayRating, nil
}

func (e *Engine) loadOrSeed(ctx context.Context, team, competition string) (*models.TeamRating, error) {
	rating, err := e.ratingRepo.Get(ctx, team, competition)
	if errors.Is(err, models.ErrNotFound) {
		return models.NewTeamRating(team, competition), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rating for %s: %w", team, err)
	}
	return rating, nil
}

// kFactor is larger below the experience threshold so new teams converge fast.
func kFactor(cfg config.RatingConfig, rating *models.TeamRating) float64 {
	if rating.Matches < cfg.ExperienceThreshold {
		return cfg.KFactorNew
	}
	return cfg.KFactorEstablished
}

// expectedScore is the logistic win expectation for ratingA against ratingB.
func expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}

func actualScores(homeGoals, awayGoals int) (home, away float64) {
	switch {
	case homeGoals > awayGoals:
		return 1.0, 0.0
	case homeGoals < awayGoals:
		return 0.0, 1.0
	default:
		return 0.5, 0.5
	}
}

// goalDiffMultiplier scales the delta so blowouts move ratings more than
// one-goal wins. Capped at the four-goal step.
func goalDiffMultiplier(goalDiff int) float64 {
	diff := goalDiff
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 1:
		return 1.0
	case diff == 2:
		return 1.5
	case diff == 3:
		return 1.75
	default:
		return 2.0
	}
}

// applyResult updates counts and the streak. A loss resets the streak to one
// negative rather than continuing to decrement across a draw.
func applyResult(rating *models.TeamRating, goalsFor, goalsAgainst int) {
	rating.Matches++
	rating.GoalsFor += goalsFor
	rating.GoalsAgainst += goalsAgainst

	switch {
	case goalsFor > goalsAgainst:
		rating.Wins++
		if rating.Streak > 0 {
			rating.Streak++
		} else {
			rating.Streak = 1
		}
	case goalsFor < goalsAgainst:
		rating.Losses++
		rating.Streak = -1
	default:
		rating.Draws++
		rating.Streak = 0
	}
}

func (e *Engine) lockTeams(a, b string) {
	i, j := stripe(a), stripe(b)
	if i == j {
		e.locks[i].Lock()
		return
	}
	if i > j {
		i, j = j, i
	}
	e.locks[i].Lock()
	e.locks[j].Lock()
}

func (e *Engine) unlockTeams(a, b string) {
	i, j := stripe(a), stripe(b)
	if i == j {
		e.locks[i].Unlock()
		return
	}
	if i > j {
		i, j = j, i
	}
	e.locks[j].Unlock()
	e.locks[i].Unlock()
}

func stripe(team string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(team))
	return int(h.Sum32() % lockStripes)
}
