package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/models"
)

const modelColumns = `id, market, version, sample_count, accuracy, f1, log_loss, brier_score,
	feature_importance, members, active, trained_at, created_at`

// PostgresModelRepository implements ModelRepository for PostgreSQL
type PostgresModelRepository struct {
	db *database.DB
}

// NewPostgresModelRepository creates a new model repository
func NewPostgresModelRepository(db *database.DB) ModelRepository {
	return &PostgresModelRepository{db: db}
}

// Create inserts a new trained model version. Versions are immutable; there
// is deliberately no Update.
func (m *PostgresModelRepository) Create(ctx context.Context, model *models.TrainedModel) error {
	query := `
		INSERT INTO trained_models (id, market, version, sample_count, accuracy, f1, log_loss, brier_score,
			feature_importance, members, active, trained_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := m.db.GetPool().Exec(ctx, query,
		model.ID, model.Market, model.Version, model.SampleCount,
		model.Accuracy, model.F1, model.LogLoss, model.BrierScore,
		model.FeatureImportance, model.Members, model.Active, model.TrainedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create trained model: %w", err)
	}

	return nil
}

// GetByID retrieves a model by ID
func (m *PostgresModelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TrainedModel, error) {
	query := fmt.Sprintf(`SELECT %s FROM trained_models WHERE id = $1`, modelColumns)
	return m.scanOne(m.db.GetPool().QueryRow(ctx, query, id))
}

// GetActive retrieves the single active model for a market
func (m *PostgresModelRepository) GetActive(ctx context.Context, market string) (*models.TrainedModel, error) {
	query := fmt.Sprintf(`SELECT %s FROM trained_models WHERE market = $1 AND active = true`, modelColumns)
	model, err := m.scanOne(m.db.GetPool().QueryRow(ctx, query, market))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrNoActiveModel
	}
	return model, err
}

// GetAllActive retrieves the active model for every market
func (m *PostgresModelRepository) GetAllActive(ctx context.Context) ([]*models.TrainedModel, error) {
	query := fmt.Sprintf(`SELECT %s FROM trained_models WHERE active = true ORDER BY market ASC`, modelColumns)

	rows, err := m.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active models: %w", err)
	}
	defer rows.Close()

	var result []*models.TrainedModel
	for rows.Next() {
		model, err := scanTrainedModel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, model)
	}

	return result, rows.Err()
}

// Activate marks the model active and deactivates every prior version for its
// market as a single logical step. Concurrent readers see either the old or
// the new active model, never both or neither.
func (m *PostgresModelRepository) Activate(ctx context.Context, id uuid.UUID) error {
	model, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}

	tx, err := m.db.GetPool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "UPDATE trained_models SET active = false WHERE market = $1 AND id != $2", model.Market, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate prior versions: %w", err)
	}

	_, err = tx.Exec(ctx, "UPDATE trained_models SET active = true WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to activate model: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (m *PostgresModelRepository) scanOne(row pgx.Row) (*models.TrainedModel, error) {
	model, err := scanTrainedModel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trained model: %w", err)
	}
	return model, nil
}

func scanTrainedModel(row pgx.Row) (*models.TrainedModel, error) {
	model := &models.TrainedModel{}
	err := row.Scan(
		&model.ID, &model.Market, &model.Version, &model.SampleCount,
		&model.Accuracy, &model.F1, &model.LogLoss, &model.BrierScore,
		&model.FeatureImportance, &model.Members, &model.Active,
		&model.TrainedAt, &model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return model, nil
}
