package models

import (
	"time"

	"github.com/google/uuid"
)

// Prediction is one ensemble output for one match and one market. Outcome
// fields stay nil until verification; the row is never deleted because it is
// the label source for calibration and ROI feedback.
type Prediction struct {
	ID                 uuid.UUID  `db:"id" json:"id" validate:"required,uuid4"`
	MatchID            uuid.UUID  `db:"match_id" json:"match_id" validate:"required,uuid4"`
	ModelID            uuid.UUID  `db:"model_id" json:"model_id" validate:"required,uuid4"`
	Market             string     `db:"market" json:"market" validate:"required"`
	Predicted          string     `db:"predicted" json:"predicted" validate:"required"`
	RawConfidence      float64    `db:"raw_confidence" json:"raw_confidence" validate:"gte=0,lte=100"`
	Confidence         float64    `db:"confidence" json:"confidence" validate:"gte=0,lte=100"`
	Agreement          float64    `db:"agreement" json:"agreement" validate:"gte=0,lte=1"`
	CalibrationApplied float64    `db:"calibration_applied" json:"calibration_applied"`
	ROIAdjustment      float64    `db:"roi_adjustment" json:"roi_adjustment"`
	Odds               float64    `db:"odds" json:"odds"`
	ExpectedValue      float64    `db:"expected_value" json:"expected_value"`
	StakePercent       float64    `db:"stake_percent" json:"stake_percent"`
	ValueBet           bool       `db:"value_bet" json:"value_bet"`
	Conditions         []string   `db:"conditions" json:"conditions"`
	Outcome            *string    `db:"outcome" json:"outcome,omitempty"`
	Correct            *bool      `db:"correct" json:"correct,omitempty"`
	VerifiedAt         *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// IsVerified reports whether the outcome has been graded.
func (p *Prediction) IsVerified() bool {
	return p.VerifiedAt != nil && p.Outcome != nil
}

// HasOdds reports whether a market price was attached at prediction time.
func (p *Prediction) HasOdds() bool {
	return p.Odds > 1.0
}
