package repository

import (
	"fmt"

	"github.com/yourusername/match-oracle/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Match       MatchRepository
	TeamRating  TeamRatingRepository
	Model       ModelRepository
	Prediction  PredictionRepository
	Calibration CalibrationRepository
	ROI         ROIRepository
	Event       EventRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Match:       NewPostgresMatchRepository(db),
		TeamRating:  NewPostgresTeamRatingRepository(db),
		Model:       NewPostgresModelRepository(db),
		Prediction:  NewPostgresPredictionRepository(db),
		Calibration: NewPostgresCalibrationRepository(db),
		ROI:         NewPostgresROIRepository(db),
		Event:       NewPostgresEventRepository(db),
	}, nil
}
