package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/models"
)

const matchColumns = `id, external_id, competition, home_team, away_team, kickoff_at, status,
	home_goals, away_goals, home_corners, away_corners, home_cards, away_cards,
	odds, situational, verified_at, created_at, updated_at`

// PostgresMatchRepository implements MatchRepository for PostgreSQL
type PostgresMatchRepository struct {
	db *database.DB
}

// NewPostgresMatchRepository creates a new match repository
func NewPostgresMatchRepository(db *database.DB) MatchRepository {
	return &PostgresMatchRepository{db: db}
}

// Create inserts a new fixture
func (m *PostgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	odds, situational, err := marshalMatchJSON(match)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches (id, external_id, competition, home_team, away_team, kickoff_at, status,
			home_goals, away_goals, home_corners, away_corners, home_cards, away_cards,
			odds, situational, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = m.db.GetPool().Exec(ctx, query,
		match.ID, match.ExternalID, match.Competition, match.HomeTeam, match.AwayTeam,
		match.KickoffAt, match.Status, match.HomeGoals, match.AwayGoals,
		match.HomeCorners, match.AwayCorners, match.HomeCards, match.AwayCards,
		odds, situational, match.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	return nil
}

// GetByID retrieves a match by ID
func (m *PostgresMatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	query := fmt.Sprintf(`SELECT %s FROM matches WHERE id = $1`, matchColumns)
	return m.scanOne(m.db.GetPool().QueryRow(ctx, query, id))
}

// GetByExternalID retrieves a match by its data-source identifier
func (m *PostgresMatchRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Match, error) {
	query := fmt.Sprintf(`SELECT %s FROM matches WHERE external_id = $1`, matchColumns)
	return m.scanOne(m.db.GetPool().QueryRow(ctx, query, externalID))
}

// GetUpcoming retrieves scheduled matches ordered by kickoff
func (m *PostgresMatchRepository) GetUpcoming(ctx context.Context, limit int) ([]*models.Match, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM matches
		WHERE status = $1 AND kickoff_at > NOW()
		ORDER BY kickoff_at ASC
		LIMIT $2
	`, matchColumns)

	return m.queryMany(ctx, query, models.MatchScheduled, limit)
}

// GetFinishedUnverified retrieves finished matches awaiting verification
func (m *PostgresMatchRepository) GetFinishedUnverified(ctx context.Context, limit int) ([]*models.Match, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM matches
		WHERE status = $1
		ORDER BY kickoff_at ASC
		LIMIT $2
	`, matchColumns)

	return m.queryMany(ctx, query, models.MatchFinished, limit)
}

// GetVerified retrieves verified matches oldest first, the order the trainer
// needs for a temporal split.
func (m *PostgresMatchRepository) GetVerified(ctx context.Context, limit int) ([]*models.Match, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM matches
		WHERE status = $1
		ORDER BY kickoff_at ASC
		LIMIT $2
	`, matchColumns)

	return m.queryMany(ctx, query, models.MatchVerified, limit)
}

// GetVerifiedBefore retrieves a team's verified matches strictly before the
// given time, most recent first. This is the no-lookahead form query.
func (m *PostgresMatchRepository) GetVerifiedBefore(ctx context.Context, team, competition string, before time.Time, limit int) ([]*models.Match, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM matches
		WHERE status = $1 AND competition = $2 AND (home_team = $3 OR away_team = $3) AND kickoff_at < $4
		ORDER BY kickoff_at DESC
		LIMIT $5
	`, matchColumns)

	return m.queryMany(ctx, query, models.MatchVerified, competition, team, before, limit)
}

// GetHeadToHeadBefore retrieves verified meetings of the two teams strictly
// before the given time, in either venue arrangement, most recent first.
func (m *PostgresMatchRepository) GetHeadToHeadBefore(ctx context.Context, home, away string, before time.Time, limit int) ([]*models.Match, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM matches
		WHERE status = $1
		  AND ((home_team = $2 AND away_team = $3) OR (home_team = $3 AND away_team = $2))
		  AND kickoff_at < $4
		ORDER BY kickoff_at DESC
		LIMIT $5
	`, matchColumns)

	return m.queryMany(ctx, query, models.MatchVerified, home, away, before, limit)
}

// Update persists mutated fixture fields
func (m *PostgresMatchRepository) Update(ctx context.Context, match *models.Match) error {
	odds, situational, err := marshalMatchJSON(match)
	if err != nil {
		return err
	}

	query := `
		UPDATE matches SET
			status = $2, home_goals = $3, away_goals = $4,
			home_corners = $5, away_corners = $6, home_cards = $7, away_cards = $8,
			odds = $9, situational = $10, verified_at = $11, updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := m.db.GetPool().Exec(ctx, query,
		match.ID, match.Status, match.HomeGoals, match.AwayGoals,
		match.HomeCorners, match.AwayCorners, match.HomeCards, match.AwayCards,
		odds, situational, match.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CountByStatus counts matches in the given lifecycle status
func (m *PostgresMatchRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := m.db.GetPool().QueryRow(ctx, `SELECT COUNT(*) FROM matches WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

func (m *PostgresMatchRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := m.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}

	return matches, rows.Err()
}

func (m *PostgresMatchRepository) scanOne(row pgx.Row) (*models.Match, error) {
	match, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	match := &models.Match{}
	var odds, situational []byte

	err := row.Scan(
		&match.ID, &match.ExternalID, &match.Competition, &match.HomeTeam, &match.AwayTeam,
		&match.KickoffAt, &match.Status, &match.HomeGoals, &match.AwayGoals,
		&match.HomeCorners, &match.AwayCorners, &match.HomeCards, &match.AwayCards,
		&odds, &situational, &match.VerifiedAt, &match.CreatedAt, &match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(odds) > 0 {
		match.Odds = &models.MatchOdds{}
		if err := json.Unmarshal(odds, match.Odds); err != nil {
			return nil, fmt.Errorf("failed to decode odds: %w", err)
		}
	}
	if len(situational) > 0 {
		match.Situational = &models.Situational{}
		if err := json.Unmarshal(situational, match.Situational); err != nil {
			return nil, fmt.Errorf("failed to decode situational data: %w", err)
		}
	}

	return match, nil
}

func marshalMatchJSON(match *models.Match) (odds, situational []byte, err error) {
	if match.Odds != nil {
		odds, err = json.Marshal(match.Odds)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode odds: %w", err)
		}
	}
	if match.Situational != nil {
		situational, err = json.Marshal(match.Situational)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode situational data: %w", err)
		}
	}
	return odds, situational, nil
}
