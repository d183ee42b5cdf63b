package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/models"
)

const ratingColumns = `id, team, competition, rating, matches, wins, draws, losses, goals_for, goals_against, streak, updated_at`

const ratingUpsert = `
	INSERT INTO team_ratings (id, team, competition, rating, matches, wins, draws, losses, goals_for, goals_against, streak, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	ON CONFLICT (team, competition) DO UPDATE SET
		rating = EXCLUDED.rating, matches = EXCLUDED.matches,
		wins = EXCLUDED.wins, draws = EXCLUDED.draws, losses = EXCLUDED.losses,
		goals_for = EXCLUDED.goals_for, goals_against = EXCLUDED.goals_against,
		streak = EXCLUDED.streak, updated_at = NOW()
`

// PostgresTeamRatingRepository implements TeamRatingRepository for PostgreSQL
type PostgresTeamRatingRepository struct {
	db *database.DB
}

// NewPostgresTeamRatingRepository creates a new team rating repository
func NewPostgresTeamRatingRepository(db *database.DB) TeamRatingRepository {
	return &PostgresTeamRatingRepository{db: db}
}

// Get retrieves the rating row for a (team, competition) pair
func (r *PostgresTeamRatingRepository) Get(ctx context.Context, team, competition string) (*models.TeamRating, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_ratings WHERE team = $1 AND competition = $2`, ratingColumns)

	rating := &models.TeamRating{}
	err := r.db.GetPool().QueryRow(ctx, query, team, competition).Scan(
		&rating.ID, &rating.Team, &rating.Competition, &rating.Rating,
		&rating.Matches, &rating.Wins, &rating.Draws, &rating.Losses,
		&rating.GoalsFor, &rating.GoalsAgainst, &rating.Streak, &rating.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team rating: %w", err)
	}

	return rating, nil
}

// Upsert inserts or replaces one rating row
func (r *PostgresTeamRatingRepository) Upsert(ctx context.Context, rating *models.TeamRating) error {
	_, err := r.db.GetPool().Exec(ctx, ratingUpsert,
		rating.ID, rating.Team, rating.Competition, rating.Rating,
		rating.Matches, rating.Wins, rating.Draws, rating.Losses,
		rating.GoalsFor, rating.GoalsAgainst, rating.Streak,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team rating: %w", err)
	}
	return nil
}

// UpsertPair persists both sides of a verified match atomically. Either both
// rating rows commit or neither does.
func (r *PostgresTeamRatingRepository) UpsertPair(ctx context.Context, home, away *models.TeamRating) error {
	tx, err := r.db.GetPool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rating := range []*models.TeamRating{home, away} {
		_, err = tx.Exec(ctx, ratingUpsert,
			rating.ID, rating.Team, rating.Competition, rating.Rating,
			rating.Matches, rating.Wins, rating.Draws, rating.Losses,
			rating.GoalsFor, rating.GoalsAgainst, rating.Streak,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert rating for %s: %w", rating.Team, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByCompetition retrieves all rating rows for a competition ordered by rating
func (r *PostgresTeamRatingRepository) GetByCompetition(ctx context.Context, competition string) ([]*models.TeamRating, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_ratings WHERE competition = $1 ORDER BY rating DESC`, ratingColumns)

	rows, err := r.db.GetPool().Query(ctx, query, competition)
	if err != nil {
		return nil, fmt.Errorf("failed to query team ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*models.TeamRating
	for rows.Next() {
		rating := &models.TeamRating{}
		err := rows.Scan(
			&rating.ID, &rating.Team, &rating.Competition, &rating.Rating,
			&rating.Matches, &rating.Wins, &rating.Draws, &rating.Losses,
			&rating.GoalsFor, &rating.GoalsAgainst, &rating.Streak, &rating.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	return ratings, rows.Err()
}
