package rating

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/models"
)

// fakeRatingRepo is a map-backed TeamRatingRepository.
type fakeRatingRepo struct {
	mu      sync.Mutex
	ratings map[string]*models.TeamRating
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{ratings: map[string]*models.TeamRating{}}
}

func (f *fakeRatingRepo) key(team, competition string) string { return team + "|" + competition }

func (f *fakeRatingRepo) Get(_ context.Context, team, competition string) (*models.TeamRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rating, ok := f.ratings[f.key(team, competition)]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *rating
	return &clone, nil
}

func (f *fakeRatingRepo) Upsert(_ context.Context, rating *models.TeamRating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *rating
	f.ratings[f.key(rating.Team, rating.Competition)] = &clone
	return nil
}

func (f *fakeRatingRepo) UpsertPair(ctx context.Context, home, away *models.TeamRating) error {
	if err := f.Upsert(ctx, home); err != nil {
		return err
	}
	return f.Upsert(ctx, away)
}

func (f *fakeRatingRepo) GetByCompetition(_ context.Context, competition string) ([]*models.TeamRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.TeamRating
	for _, rating := range f.ratings {
		if rating.Competition == competition {
			clone := *rating
			result = append(result, &clone)
		}
	}
	return result, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*models.EngineEvent
}

func (f *fakeEventRepo) Append(_ context.Context, event *models.EngineEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRepo) GetRecent(_ context.Context, _ string, _ int) ([]*models.EngineEvent, error) {
	return f.events, nil
}

func testConfig() config.RatingConfig {
	return config.RatingConfig{
		HomeAdvantage:       100,
		KFactorNew:          40,
		KFactorEstablished:  20,
		ExperienceThreshold: 10,
	}
}

func newTestEngine(cfg config.RatingConfig) (*Engine, *fakeRatingRepo, *fakeEventRepo) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	repo := newFakeRatingRepo()
	events := &fakeEventRepo{}
	return NewEngine(cfg, repo, events, logger.NewEngineLogger(log)), repo, events
}

func verifiedMatch(home, away string, homeGoals, awayGoals int) *models.Match {
	now := time.Now()
	return &models.Match{
		ID:          uuid.New(),
		ExternalID:  uuid.NewString(),
		Competition: "premier_league",
		HomeTeam:    home,
		AwayTeam:    away,
		KickoffAt:   now.Add(-2 * time.Hour),
		Status:      models.MatchVerified,
		HomeGoals:   &homeGoals,
		AwayGoals:   &awayGoals,
		VerifiedAt:  &now,
	}
}

func TestUpdateNewTeamsTwoGoalHomeWin(t *testing.T) {
	engine, repo, events := newTestEngine(testConfig())
	ctx := context.Background()

	require.NoError(t, engine.Update(ctx, verifiedMatch("arsenal", "spurs", 2, 0)))

	home, err := repo.Get(ctx, "arsenal", "premier_league")
	require.NoError(t, err)
	away, err := repo.Get(ctx, "spurs", "premier_league")
	require.NoError(t, err)

	// Both started at 1500 with the home side a 100-point favourite:
	// expected home = 1/(1+10^(-100/400)) ~ 0.64, delta = 40 * 1.5 * (1-0.64).
	expectedHome := 1.0 / (1.0 + math.Pow(10, -100.0/400.0))
	expectedDelta := 40 * 1.5 * (1 - expectedHome)

	assert.InDelta(t, 1500+expectedDelta, home.Rating, 0.01)
	assert.InDelta(t, 1500-expectedDelta, away.Rating, 0.01)
	assert.Greater(t, home.Rating, 1500.0)
	assert.Less(t, away.Rating, 1500.0)

	assert.Equal(t, 1, home.Wins)
	assert.Equal(t, 1, home.Streak)
	assert.Equal(t, 1, away.Losses)
	assert.Equal(t, -1, away.Streak)

	assert.Len(t, events.events, 1)
	assert.Equal(t, models.EventRatingUpdated, events.events[0].Type)
}

func TestUpdateEqualRatingsDrawNoHomeAdvantage(t *testing.T) {
	cfg := testConfig()
	cfg.HomeAdvantage = 0
	engine, repo, _ := newTestEngine(cfg)
	ctx := context.Background()

	require.NoError(t, engine.Update(ctx, verifiedMatch("leeds", "derby", 1, 1)))

	home, _ := repo.Get(ctx, "leeds", "premier_league")
	away, _ := repo.Get(ctx, "derby", "premier_league")

	// Symmetric draw conserves both ratings exactly.
	assert.InDelta(t, 1500.0, home.Rating, 1e-9)
	assert.InDelta(t, 1500.0, away.Rating, 1e-9)
	assert.Equal(t, 0, home.Streak)
	assert.Equal(t, 0, away.Streak)
}

func TestUpdateEstablishedTeamsUseSmallerK(t *testing.T) {
	engine, repo, _ := newTestEngine(testConfig())
	ctx := context.Background()

	seed := models.NewTeamRating("palace", "premier_league")
	seed.Matches = 20
	require.NoError(t, repo.Upsert(ctx, seed))

	newTeam := models.NewTeamRating("luton", "premier_league")
	require.NoError(t, repo.Upsert(ctx, newTeam))

	cfg := testConfig()
	cfg.HomeAdvantage = 0
	engine = NewEngine(cfg, repo, &fakeEventRepo{}, engine.log)

	require.NoError(t, engine.Update(ctx, verifiedMatch("palace", "luton", 1, 0)))

	established, _ := repo.Get(ctx, "palace", "premier_league")
	fresh, _ := repo.Get(ctx, "luton", "premier_league")

	// Equal ratings, no home edge: expected 0.5 each, so deltas are
	// K * 1.0 * 0.5 per side.
	assert.InDelta(t, 1500+20*0.5, established.Rating, 0.01)
	assert.InDelta(t, 1500-40*0.5, fresh.Rating, 0.01)
}

func TestUpdateLossAfterDrawResetsStreakNegative(t *testing.T) {
	engine, repo, _ := newTestEngine(testConfig())
	ctx := context.Background()

	require.NoError(t, engine.Update(ctx, verifiedMatch("everton", "fulham", 2, 2)))
	require.NoError(t, engine.Update(ctx, verifiedMatch("everton", "fulham", 0, 1)))

	home, _ := repo.Get(ctx, "everton", "premier_league")
	assert.Equal(t, -1, home.Streak)

	away, _ := repo.Get(ctx, "fulham", "premier_league")
	assert.Equal(t, 1, away.Streak)
}

func TestUpdateRejectsMatchWithoutResult(t *testing.T) {
	engine, _, _ := newTestEngine(testConfig())

	match := verifiedMatch("a", "b", 0, 0)
	match.HomeGoals = nil
	match.AwayGoals = nil

	assert.Error(t, engine.Update(context.Background(), match))
}

func TestGoalDiffMultiplierSteps(t *testing.T) {
	assert.Equal(t, 1.0, goalDiffMultiplier(1))
	assert.Equal(t, 1.5, goalDiffMultiplier(2))
	assert.Equal(t, 1.75, goalDiffMultiplier(3))
	assert.Equal(t, 2.0, goalDiffMultiplier(4))
	assert.Equal(t, 2.0, goalDiffMultiplier(7))
	assert.Equal(t, 1.5, goalDiffMultiplier(-2))
}

func TestConcurrentUpdatesDisjointTeams(t *testing.T) {
	engine, repo, _ := newTestEngine(testConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	pairs := [][2]string{{"a1", "b1"}, {"a2", "b2"}, {"a3", "b3"}, {"a4", "b4"}}
	for _, pair := range pairs {
		wg.Add(1)
		go func(home, away string) {
			defer wg.Done()
			_ = engine.Update(ctx, verifiedMatch(home, away, 1, 0))
		}(pair[0], pair[1])
	}
	wg.Wait()

	for _, pair := range pairs {
		rating, err := repo.Get(ctx, pair[0], "premier_league")
		require.NoError(t, err)
		assert.Equal(t, 1, rating.Matches)
	}
}
