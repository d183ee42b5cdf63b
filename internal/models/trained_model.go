package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TrainedModel is one immutable (market, version) ensemble artifact.
// A new version supersedes the prior active one; versions are never edited.
type TrainedModel struct {
	ID                uuid.UUID       `db:"id" json:"id" validate:"required,uuid4"`
	Market            string          `db:"market" json:"market" validate:"required"`
	Version           string          `db:"version" json:"version" validate:"required"`
	SampleCount       int             `db:"sample_count" json:"sample_count"`
	Accuracy          float64         `db:"accuracy" json:"accuracy"`
	F1                float64         `db:"f1" json:"f1"`
	LogLoss           float64         `db:"log_loss" json:"log_loss"`
	BrierScore        float64         `db:"brier_score" json:"brier_score"`
	FeatureImportance json.RawMessage `db:"feature_importance" json:"feature_importance"`
	Members           json.RawMessage `db:"members" json:"members"`
	Active            bool            `db:"active" json:"active"`
	TrainedAt         time.Time       `db:"trained_at" json:"trained_at" validate:"required"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// IsActive checks if the model is currently serving inference.
func (m *TrainedModel) IsActive() bool {
	return m.Active
}

// ImportanceRanking unpacks the stored feature-importance map.
func (m *TrainedModel) ImportanceRanking() (map[string]float64, error) {
	if m.FeatureImportance == nil {
		return nil, nil
	}
	ranking := map[string]float64{}
	if err := json.Unmarshal(m.FeatureImportance, &ranking); err != nil {
		return nil, err
	}
	return ranking, nil
}
