package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/models"
)

const roiColumns = `id, market, condition_key, bets, total_stake, total_return, roi_percent, updated_at`

// PostgresROIRepository implements ROIRepository for PostgreSQL
type PostgresROIRepository struct {
	db *database.DB
}

// NewPostgresROIRepository creates a new ROI repository
func NewPostgresROIRepository(db *database.DB) ROIRepository {
	return &PostgresROIRepository{db: db}
}

// Get retrieves the record for a (market, condition) pair
func (r *PostgresROIRepository) Get(ctx context.Context, market, condition string) (*models.ROIRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM roi_records WHERE market = $1 AND condition_key = $2`, roiColumns)

	record := &models.ROIRecord{}
	err := r.db.GetPool().QueryRow(ctx, query, market, condition).Scan(
		&record.ID, &record.Market, &record.Condition, &record.Bets,
		&record.TotalStake, &record.TotalReturn, &record.ROIPercent, &record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ROI record: %w", err)
	}

	return record, nil
}

// GetByMarket retrieves all condition records for a market
func (r *PostgresROIRepository) GetByMarket(ctx context.Context, market string) ([]*models.ROIRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM roi_records WHERE market = $1 ORDER BY condition_key ASC`, roiColumns)

	rows, err := r.db.GetPool().Query(ctx, query, market)
	if err != nil {
		return nil, fmt.Errorf("failed to query ROI records: %w", err)
	}
	defer rows.Close()

	var records []*models.ROIRecord
	for rows.Next() {
		record := &models.ROIRecord{}
		err := rows.Scan(
			&record.ID, &record.Market, &record.Condition, &record.Bets,
			&record.TotalStake, &record.TotalReturn, &record.ROIPercent, &record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ROI record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Upsert inserts or replaces one ROI record
func (r *PostgresROIRepository) Upsert(ctx context.Context, record *models.ROIRecord) error {
	query := `
		INSERT INTO roi_records (id, market, condition_key, bets, total_stake, total_return, roi_percent, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (market, condition_key) DO UPDATE SET
			bets = EXCLUDED.bets, total_stake = EXCLUDED.total_stake,
			total_return = EXCLUDED.total_return, roi_percent = EXCLUDED.roi_percent,
			updated_at = NOW()
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		record.ID, record.Market, record.Condition, record.Bets,
		record.TotalStake, record.TotalReturn, record.ROIPercent,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ROI record: %w", err)
	}

	return nil
}
