package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/match-oracle/internal/models"
)

// MatchRepository defines the interface for fixture data access
type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Match, error)
	GetUpcoming(ctx context.Context, limit int) ([]*models.Match, error)
	GetFinishedUnverified(ctx context.Context, limit int) ([]*models.Match, error)
	// GetVerified returns verified matches in kickoff order, oldest first.
	GetVerified(ctx context.Context, limit int) ([]*models.Match, error)
	GetVerifiedBefore(ctx context.Context, team, competition string, before time.Time, limit int) ([]*models.Match, error)
	GetHeadToHeadBefore(ctx context.Context, home, away string, before time.Time, limit int) ([]*models.Match, error)
	Update(ctx context.Context, match *models.Match) error
	CountByStatus(ctx context.Context, status string) (int, error)
}

// TeamRatingRepository defines the interface for team rating data access
type TeamRatingRepository interface {
	Get(ctx context.Context, team, competition string) (*models.TeamRating, error)
	Upsert(ctx context.Context, rating *models.TeamRating) error
	// UpsertPair persists both sides of a verified match in one transaction.
	UpsertPair(ctx context.Context, home, away *models.TeamRating) error
	GetByCompetition(ctx context.Context, competition string) ([]*models.TeamRating, error)
}

// ModelRepository defines the interface for trained model artifacts
type ModelRepository interface {
	Create(ctx context.Context, model *models.TrainedModel) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TrainedModel, error)
	GetActive(ctx context.Context, market string) (*models.TrainedModel, error)
	GetAllActive(ctx context.Context) ([]*models.TrainedModel, error)
	// Activate marks the model active and deactivates every other version for
	// its market inside one transaction.
	Activate(ctx context.Context, id uuid.UUID) error
}

// PredictionRepository defines the interface for prediction data access
type PredictionRepository interface {
	Create(ctx context.Context, prediction *models.Prediction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error)
	GetByMatchID(ctx context.Context, matchID uuid.UUID) ([]*models.Prediction, error)
	GetPendingForMatch(ctx context.Context, matchID uuid.UUID) ([]*models.Prediction, error)
	GetVerifiedSince(ctx context.Context, market string, since time.Time) ([]*models.Prediction, error)
	CountVerified(ctx context.Context, market string) (int, error)
	AccuracySince(ctx context.Context, market string, since time.Time) (correct, total int, err error)
	MarkVerified(ctx context.Context, id uuid.UUID, outcome string, correct bool) error
}

// CalibrationRepository defines the interface for confidence band data access
type CalibrationRepository interface {
	Get(ctx context.Context, market string, bandLow int) (*models.CalibrationBand, error)
	GetByMarket(ctx context.Context, market string) ([]*models.CalibrationBand, error)
	Upsert(ctx context.Context, band *models.CalibrationBand) error
}

// ROIRepository defines the interface for ROI record data access
type ROIRepository interface {
	Get(ctx context.Context, market, condition string) (*models.ROIRecord, error)
	GetByMarket(ctx context.Context, market string) ([]*models.ROIRecord, error)
	Upsert(ctx context.Context, record *models.ROIRecord) error
}

// EventRepository defines the interface for the append-only engine event log
type EventRepository interface {
	Append(ctx context.Context, event *models.EngineEvent) error
	GetRecent(ctx context.Context, eventType string, limit int) ([]*models.EngineEvent, error)
}
