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

const predictionColumns = `id, match_id, model_id, market, predicted, raw_confidence, confidence,
	agreement, calibration_applied, roi_adjustment, odds, expected_value, stake_percent,
	value_bet, conditions, outcome, correct, verified_at, created_at`

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// Create inserts a new prediction with outcome fields unset
func (p *PostgresPredictionRepository) Create(ctx context.Context, prediction *models.Prediction) error {
	conditions, err := json.Marshal(prediction.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}

	query := `
		INSERT INTO predictions (id, match_id, model_id, market, predicted, raw_confidence, confidence,
			agreement, calibration_applied, roi_adjustment, odds, expected_value, stake_percent,
			value_bet, conditions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = p.db.GetPool().Exec(ctx, query,
		prediction.ID, prediction.MatchID, prediction.ModelID, prediction.Market,
		prediction.Predicted, prediction.RawConfidence, prediction.Confidence,
		prediction.Agreement, prediction.CalibrationApplied, prediction.ROIAdjustment,
		prediction.Odds, prediction.ExpectedValue, prediction.StakePercent,
		prediction.ValueBet, conditions,
	)
	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	return nil
}

// GetByID retrieves a prediction by ID
func (p *PostgresPredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error) {
	query := fmt.Sprintf(`SELECT %s FROM predictions WHERE id = $1`, predictionColumns)

	prediction, err := scanPrediction(p.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return prediction, nil
}

// GetByMatchID retrieves all predictions for a fixture
func (p *PostgresPredictionRepository) GetByMatchID(ctx context.Context, matchID uuid.UUID) ([]*models.Prediction, error) {
	query := fmt.Sprintf(`SELECT %s FROM predictions WHERE match_id = $1 ORDER BY created_at ASC`, predictionColumns)
	return p.queryMany(ctx, query, matchID)
}

// GetPendingForMatch retrieves ungraded predictions for a fixture
func (p *PostgresPredictionRepository) GetPendingForMatch(ctx context.Context, matchID uuid.UUID) ([]*models.Prediction, error) {
	query := fmt.Sprintf(`SELECT %s FROM predictions WHERE match_id = $1 AND verified_at IS NULL`, predictionColumns)
	return p.queryMany(ctx, query, matchID)
}

// GetVerifiedSince retrieves graded predictions for a market since a time
func (p *PostgresPredictionRepository) GetVerifiedSince(ctx context.Context, market string, since time.Time) ([]*models.Prediction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM predictions
		WHERE market = $1 AND verified_at IS NOT NULL AND verified_at >= $2
		ORDER BY verified_at ASC
	`, predictionColumns)
	return p.queryMany(ctx, query, market, since)
}

// CountVerified counts graded predictions for a market
func (p *PostgresPredictionRepository) CountVerified(ctx context.Context, market string) (int, error) {
	var count int
	err := p.db.GetPool().QueryRow(ctx,
		`SELECT COUNT(*) FROM predictions WHERE market = $1 AND verified_at IS NOT NULL`, market,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count verified predictions: %w", err)
	}
	return count, nil
}

// AccuracySince returns correct and total graded prediction counts for a
// market since the given time. A zero time covers the whole lifetime.
func (p *PostgresPredictionRepository) AccuracySince(ctx context.Context, market string, since time.Time) (int, int, error) {
	var correct, total int
	err := p.db.GetPool().QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE correct), COUNT(*)
		FROM predictions
		WHERE market = $1 AND verified_at IS NOT NULL AND verified_at >= $2
	`, market, since).Scan(&correct, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute accuracy: %w", err)
	}
	return correct, total, nil
}

// MarkVerified grades a prediction exactly once. Re-grading an already
// verified prediction is a no-op reported as ErrNotFound.
func (p *PostgresPredictionRepository) MarkVerified(ctx context.Context, id uuid.UUID, outcome string, correct bool) error {
	commandTag, err := p.db.GetPool().Exec(ctx, `
		UPDATE predictions SET outcome = $2, correct = $3, verified_at = NOW()
		WHERE id = $1 AND verified_at IS NULL
	`, id, outcome, correct)
	if err != nil {
		return fmt.Errorf("failed to mark prediction verified: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (p *PostgresPredictionRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.Prediction, error) {
	rows, err := p.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*models.Prediction
	for rows.Next() {
		prediction, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, prediction)
	}

	return predictions, rows.Err()
}

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	prediction := &models.Prediction{}
	var conditions []byte

	err := row.Scan(
		&prediction.ID, &prediction.MatchID, &prediction.ModelID, &prediction.Market,
		&prediction.Predicted, &prediction.RawConfidence, &prediction.Confidence,
		&prediction.Agreement, &prediction.CalibrationApplied, &prediction.ROIAdjustment,
		&prediction.Odds, &prediction.ExpectedValue, &prediction.StakePercent,
		&prediction.ValueBet, &conditions, &prediction.Outcome, &prediction.Correct,
		&prediction.VerifiedAt, &prediction.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &prediction.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode conditions: %w", err)
		}
	}

	return prediction, nil
}
