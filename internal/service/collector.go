package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/match-oracle/internal/cache"
	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/datasource"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/repository"
)

const (
	// fixtureLookaheadDays bounds how far ahead fixtures are pulled.
	fixtureLookaheadDays = 7

	// upcomingBatchSize caps how many fixtures one odds or enrichment pass
	// refreshes.
	upcomingBatchSize = 100

	// sharpMoveThreshold is the relative price move against the opening line
	// that flags sharp money.
	sharpMoveThreshold = 0.10
)

// Collector ingests fixtures, results, odds and enrichment signals into the
// match store.
type Collector struct {
	cfg        config.DataSourcesConfig
	fixtures   datasource.FixtureSource
	odds       datasource.OddsSource
	enrichment datasource.EnrichmentSource
	matchRepo  repository.MatchRepository
	seen       *cache.Cache
	log        *logger.EngineLogger
}

// NewCollector creates a collector over the given sources and store.
func NewCollector(
	cfg config.DataSourcesConfig,
	fixtures datasource.FixtureSource,
	odds datasource.OddsSource,
	enrichment datasource.EnrichmentSource,
	matchRepo repository.MatchRepository,
	seen *cache.Cache,
	log *logger.EngineLogger,
) *Collector {
	return &Collector{
		cfg:        cfg,
		fixtures:   fixtures,
		odds:       odds,
		enrichment: enrichment,
		matchRepo:  matchRepo,
		seen:       seen,
		log:        log,
	}
}

// CollectPass pulls the fixture window, stores new fixtures and refreshes odds
// for the upcoming batch. Per-fixture failures are logged and skipped.
func (c *Collector) CollectPass(ctx context.Context) error {
	now := time.Now().UTC()
	fixtures, err := c.fixtures.FetchFixtures(ctx, now, now.AddDate(0, 0, fixtureLookaheadDays))
	if err != nil {
		return fmt.Errorf("failed to fetch fixtures: %w", err)
	}

	created := 0
	for _, fixture := range fixtures {
		ok, err := c.storeFixture(ctx, &fixture)
		if err != nil {
			c.log.WithError(err).WithField("external_id", fixture.SourceID).Warn("Failed to store fixture")
			continue
		}
		if ok {
			created++
		}
	}

	refreshed := c.refreshOdds(ctx)
	c.log.WithField("fetched", len(fixtures)).WithField("created", created).WithField("odds_refreshed", refreshed).Info("Collection pass completed")
	return nil
}

// storeFixture inserts a fixture not seen before and reports whether a row was
// created. A kickoff change on a known scheduled fixture is persisted.
func (c *Collector) storeFixture(ctx context.Context, fixture *datasource.FixtureData) (bool, error) {
	if _, hit := c.seen.Get(cache.TypeUpstream, fixture.SourceID); hit {
		return false, nil
	}

	existing, err := c.matchRepo.GetByExternalID(ctx, fixture.SourceID)
	if err == nil {
		if existing.Status == models.MatchScheduled && !existing.KickoffAt.Equal(fixture.KickoffAt) {
			existing.KickoffAt = fixture.KickoffAt
			if err := c.matchRepo.Update(ctx, existing); err != nil {
				return false, fmt.Errorf("failed to update kickoff: %w", err)
			}
		}
		c.seen.Set(cache.TypeUpstream, fixture.SourceID, true)
		return false, nil
	}
	if err != models.ErrNotFound {
		return false, fmt.Errorf("failed to look up fixture: %w", err)
	}

	now := time.Now().UTC()
	match := &models.Match{
		ID:          uuid.New(),
		ExternalID:  fixture.SourceID,
		Competition: fixture.Competition,
		HomeTeam:    fixture.HomeTeam,
		AwayTeam:    fixture.AwayTeam,
		KickoffAt:   fixture.KickoffAt,
		Status:      models.MatchScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.matchRepo.Create(ctx, match); err != nil {
		return false, fmt.Errorf("failed to create match: %w", err)
	}
	c.seen.Set(cache.TypeUpstream, fixture.SourceID, true)
	return true, nil
}

// refreshOdds pulls the current snapshot for each upcoming fixture. Returns
// the number of fixtures whose odds changed.
func (c *Collector) refreshOdds(ctx context.Context) int {
	if c.odds == nil || !c.odds.IsEnabled() {
		return 0
	}
	matches, err := c.matchRepo.GetUpcoming(ctx, upcomingBatchSize)
	if err != nil {
		c.log.WithError(err).Warn("Failed to load upcoming fixtures for odds refresh")
		return 0
	}

	refreshed := 0
	for _, match := range matches {
		snapshot, err := c.odds.FetchOdds(ctx, match.ExternalID)
		if err != nil {
			c.log.WithError(err).WithField("external_id", match.ExternalID).Debug("No odds snapshot")
			continue
		}
		if err := c.ApplyOddsSnapshot(ctx, snapshot); err != nil {
			c.log.WithError(err).WithField("external_id", match.ExternalID).Warn("Failed to apply odds")
			continue
		}
		refreshed++
	}
	return refreshed
}

// ApplyOddsSnapshot merges one odds snapshot into its fixture. The first
// observed 1X2 prices become the opening line; later snapshots that move far
// enough against it set the sharp-money flag.
func (c *Collector) ApplyOddsSnapshot(ctx context.Context, snapshot *datasource.OddsData) error {
	match, err := c.matchRepo.GetByExternalID(ctx, snapshot.SourceID)
	if err != nil {
		return fmt.Errorf("failed to look up fixture for odds: %w", err)
	}
	if match.Status != models.MatchScheduled {
		return nil
	}

	odds := match.Odds
	if odds == nil {
		odds = &models.MatchOdds{}
	}
	setPrice(&odds.Home, snapshot.Home)
	setPrice(&odds.Draw, snapshot.Draw)
	setPrice(&odds.Away, snapshot.Away)
	setPrice(&odds.Over25, snapshot.Over25)
	setPrice(&odds.Under25, snapshot.Under25)
	setPrice(&odds.BTTSYes, snapshot.BTTSYes)
	setPrice(&odds.BTTSNo, snapshot.BTTSNo)

	if odds.OpeningHome == 0 && odds.Home > 0 {
		odds.OpeningHome = odds.Home
	}
	if odds.OpeningAway == 0 && odds.Away > 0 {
		odds.OpeningAway = odds.Away
	}
	if movedSharply(odds.OpeningHome, odds.Home) || movedSharply(odds.OpeningAway, odds.Away) {
		odds.SharpMove = true
	}

	match.Odds = odds
	match.UpdatedAt = time.Now().UTC()
	if err := c.matchRepo.Update(ctx, match); err != nil {
		return fmt.Errorf("failed to persist odds: %w", err)
	}
	return nil
}

// ConsumeStream applies snapshots from the live odds channel until it closes
// or the context is cancelled.
func (c *Collector) ConsumeStream(ctx context.Context, snapshots <-chan datasource.OddsData) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, open := <-snapshots:
			if !open {
				return
			}
			if err := c.ApplyOddsSnapshot(ctx, &snapshot); err != nil {
				c.log.WithError(err).WithField("external_id", snapshot.SourceID).Warn("Failed to apply streamed odds")
			}
		}
	}
}

// EnrichPass pulls situational signals for upcoming fixtures. Signals a
// provider does not report keep their defaults.
func (c *Collector) EnrichPass(ctx context.Context) error {
	if c.enrichment == nil || !c.enrichment.IsEnabled() {
		return nil
	}
	matches, err := c.matchRepo.GetUpcoming(ctx, upcomingBatchSize)
	if err != nil {
		return fmt.Errorf("failed to load upcoming fixtures: %w", err)
	}

	enriched := 0
	for _, match := range matches {
		data, err := c.enrichment.FetchSituational(ctx, match.ExternalID)
		if err != nil {
			c.log.WithError(err).WithField("external_id", match.ExternalID).Debug("No situational data")
			continue
		}
		mergeSituational(match, data)
		match.UpdatedAt = time.Now().UTC()
		if err := c.matchRepo.Update(ctx, match); err != nil {
			c.log.WithError(err).WithField("external_id", match.ExternalID).Warn("Failed to persist enrichment")
			continue
		}
		enriched++
	}
	c.log.WithField("enriched", enriched).Info("Enrichment pass completed")
	return nil
}

// ResultsPass pulls recent results and moves matched fixtures to finished.
// Results for unknown fixtures are logged and skipped.
func (c *Collector) ResultsPass(ctx context.Context) error {
	since := time.Now().UTC().AddDate(0, 0, -c.cfg.ResultLookbackDays)
	results, err := c.fixtures.FetchResults(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to fetch results: %w", err)
	}

	applied := 0
	for _, result := range results {
		ok, err := c.applyResult(ctx, &result)
		if err != nil {
			c.log.WithError(err).WithField("external_id", result.SourceID).Warn("Failed to apply result")
			continue
		}
		if ok {
			applied++
		}
	}
	c.log.WithField("fetched", len(results)).WithField("applied", applied).Info("Results pass completed")
	return nil
}

// applyResult records a final score on its fixture and reports whether the
// fixture transitioned to finished. Verified fixtures are never touched.
func (c *Collector) applyResult(ctx context.Context, result *datasource.ResultData) (bool, error) {
	match, err := c.matchRepo.GetByExternalID(ctx, result.SourceID)
	if err == models.ErrNotFound {
		c.log.WithField("external_id", result.SourceID).Debug("Result for unknown fixture")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up fixture for result: %w", err)
	}
	if match.Status == models.MatchFinished || match.Status == models.MatchVerified {
		return false, nil
	}

	homeGoals, awayGoals := result.HomeGoals, result.AwayGoals
	match.HomeGoals = &homeGoals
	match.AwayGoals = &awayGoals
	match.HomeCorners = result.HomeCorners
	match.AwayCorners = result.AwayCorners
	match.HomeCards = result.HomeCards
	match.AwayCards = result.AwayCards
	match.Status = models.MatchFinished
	match.UpdatedAt = time.Now().UTC()

	if err := c.matchRepo.Update(ctx, match); err != nil {
		return false, fmt.Errorf("failed to persist result: %w", err)
	}
	return true, nil
}

// mergeSituational overlays reported signals onto the fixture, keeping
// existing values for anything the provider omitted.
func mergeSituational(match *models.Match, data *datasource.SituationalData) {
	sit := match.Situational
	if sit == nil {
		sit = &models.Situational{}
	}
	setInt(&sit.RestDaysHome, data.RestDaysHome)
	setInt(&sit.RestDaysAway, data.RestDaysAway)
	setInt(&sit.InjuriesHome, data.InjuriesHome)
	setInt(&sit.InjuriesAway, data.InjuriesAway)
	setInt(&sit.KeyInjuriesHome, data.KeyInjuriesHome)
	setInt(&sit.KeyInjuriesAway, data.KeyInjuriesAway)
	setFloat(&sit.RefereeCards, data.RefereeCards)
	setFloat(&sit.RefereePenalties, data.RefereePenalties)
	setFloat(&sit.MotivationHome, data.MotivationHome)
	setFloat(&sit.MotivationAway, data.MotivationAway)
	setInt(&sit.TeamClassHome, data.TeamClassHome)
	setInt(&sit.TeamClassAway, data.TeamClassAway)
	setFloat(&sit.WeatherSeverity, data.WeatherSeverity)
	if data.Derby != nil {
		sit.Derby = *data.Derby
	}
	match.Situational = sit
}

// movedSharply reports whether the current price moved beyond the threshold
// relative to the opening price.
func movedSharply(opening, current float64) bool {
	if opening <= 0 || current <= 0 {
		return false
	}
	return math.Abs(current-opening)/opening >= sharpMoveThreshold
}

func setPrice(dst *float64, src *float64) {
	if src != nil && *src > 1.0 {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
