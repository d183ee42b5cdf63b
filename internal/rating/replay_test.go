package rating

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/match-oracle/internal/models"
)

func TestReplayMatchesEngineMath(t *testing.T) {
	engine, repo, _ := newTestEngine(testConfig())
	ctx := context.Background()

	season := []*models.Match{
		verifiedMatch("arsenal", "spurs", 2, 0),
		verifiedMatch("spurs", "chelsea", 1, 1),
		verifiedMatch("chelsea", "arsenal", 0, 3),
		verifiedMatch("arsenal", "chelsea", 1, 2),
	}

	replay := engine.NewReplay()
	for _, match := range season {
		require.NoError(t, engine.Update(ctx, match))
		require.NoError(t, replay.Apply(match))
	}

	for _, team := range []string{"arsenal", "spurs", "chelsea"} {
		persisted, err := repo.Get(ctx, team, "premier_league")
		require.NoError(t, err)
		replayed, _ := replay.Ratings(team, "spurs", "premier_league")

		assert.InDelta(t, persisted.Rating, replayed.Rating, 1e-9)
		assert.Equal(t, persisted.Streak, replayed.Streak)
		assert.Equal(t, persisted.Matches, replayed.Matches)
		assert.Equal(t, persisted.Wins, replayed.Wins)
	}
}

func TestReplayUnknownTeamsSeedNeutral(t *testing.T) {
	engine, _, _ := newTestEngine(testConfig())
	replay := engine.NewReplay()

	home, away := replay.Ratings("leeds", "derby", "premier_league")
	assert.Equal(t, models.DefaultRating, home.Rating)
	assert.Equal(t, models.DefaultRating, away.Rating)
	assert.Equal(t, 0, home.Matches)
	assert.Equal(t, 0, away.Streak)
}

func TestReplayRatingsReturnsStableCopies(t *testing.T) {
	engine, _, _ := newTestEngine(testConfig())
	replay := engine.NewReplay()

	before, _ := replay.Ratings("arsenal", "spurs", "premier_league")
	require.NoError(t, replay.Apply(verifiedMatch("arsenal", "spurs", 3, 0)))

	// The snapshot taken before the result must not move with the state.
	assert.Equal(t, models.DefaultRating, before.Rating)
	assert.Equal(t, 0, before.Streak)

	after, _ := replay.Ratings("arsenal", "spurs", "premier_league")
	assert.Greater(t, after.Rating, models.DefaultRating)
	assert.Equal(t, 1, after.Streak)
}

func TestReplayRejectsMatchWithoutResult(t *testing.T) {
	engine, _, _ := newTestEngine(testConfig())
	replay := engine.NewReplay()

	match := verifiedMatch("a", "b", 0, 0)
	match.HomeGoals = nil
	match.AwayGoals = nil

	assert.Error(t, replay.Apply(match))
}
