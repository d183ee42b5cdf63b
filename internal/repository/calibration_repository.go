package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/models"
)

const bandColumns = `id, market, band_low, band_high, predictions, correct, factor, updated_at`

// PostgresCalibrationRepository implements CalibrationRepository for PostgreSQL
type PostgresCalibrationRepository struct {
	db *database.DB
}

// NewPostgresCalibrationRepository creates a new calibration repository
func NewPostgresCalibrationRepository(db *database.DB) CalibrationRepository {
	return &PostgresCalibrationRepository{db: db}
}

// Get retrieves the band for a (market, band_low) pair
func (c *PostgresCalibrationRepository) Get(ctx context.Context, market string, bandLow int) (*models.CalibrationBand, error) {
	query := fmt.Sprintf(`SELECT %s FROM calibration_bands WHERE market = $1 AND band_low = $2`, bandColumns)

	band := &models.CalibrationBand{}
	err := c.db.GetPool().QueryRow(ctx, query, market, bandLow).Scan(
		&band.ID, &band.Market, &band.BandLow, &band.BandHigh,
		&band.Predictions, &band.Correct, &band.Factor, &band.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calibration band: %w", err)
	}

	return band, nil
}

// GetByMarket retrieves all bands for a market ordered by band
func (c *PostgresCalibrationRepository) GetByMarket(ctx context.Context, market string) ([]*models.CalibrationBand, error) {
	query := fmt.Sprintf(`SELECT %s FROM calibration_bands WHERE market = $1 ORDER BY band_low ASC`, bandColumns)

	rows, err := c.db.GetPool().Query(ctx, query, market)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration bands: %w", err)
	}
	defer rows.Close()

	var bands []*models.CalibrationBand
	for rows.Next() {
		band := &models.CalibrationBand{}
		err := rows.Scan(
			&band.ID, &band.Market, &band.BandLow, &band.BandHigh,
			&band.Predictions, &band.Correct, &band.Factor, &band.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calibration band: %w", err)
		}
		bands = append(bands, band)
	}

	return bands, rows.Err()
}

// Upsert inserts or replaces one band row
func (c *PostgresCalibrationRepository) Upsert(ctx context.Context, band *models.CalibrationBand) error {
	query := `
		INSERT INTO calibration_bands (id, market, band_low, band_high, predictions, correct, factor, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (market, band_low) DO UPDATE SET
			predictions = EXCLUDED.predictions, correct = EXCLUDED.correct,
			factor = EXCLUDED.factor, updated_at = NOW()
	`

	_, err := c.db.GetPool().Exec(ctx, query,
		band.ID, band.Market, band.BandLow, band.BandHigh,
		band.Predictions, band.Correct, band.Factor,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert calibration band: %w", err)
	}

	return nil
}
