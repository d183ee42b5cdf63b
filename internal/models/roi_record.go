package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConditionOverall is the ROI record every odds-bearing prediction updates.
// The other keys are situational tags derived from the feature vector.
const (
	ConditionOverall      = "overall"
	ConditionHighInjuries = "high_injuries"
	ConditionLargeGap     = "large_rating_gap"
	ConditionDerby        = "derby"
	ConditionBadWeather   = "bad_weather"
	ConditionSharpMove    = "sharp_move"
)

// ROIRecord accumulates stake and return for one (market, condition) pair.
// Money columns use decimals so cumulative sums never drift.
type ROIRecord struct {
	ID          uuid.UUID       `db:"id" json:"id" validate:"required,uuid4"`
	Market      string          `db:"market" json:"market" validate:"required"`
	Condition   string          `db:"condition_key" json:"condition_key" validate:"required"`
	Bets        int             `db:"bets" json:"bets"`
	TotalStake  decimal.Decimal `db:"total_stake" json:"total_stake"`
	TotalReturn decimal.Decimal `db:"total_return" json:"total_return"`
	ROIPercent  float64         `db:"roi_percent" json:"roi_percent"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// RecalculateROI refreshes the derived ROI percentage from the money columns.
func (r *ROIRecord) RecalculateROI() {
	if r.TotalStake.IsZero() {
		r.ROIPercent = 0
		return
	}
	profit := r.TotalReturn.Sub(r.TotalStake)
	pct, _ := profit.Div(r.TotalStake).Mul(decimal.NewFromInt(100)).Float64()
	r.ROIPercent = pct
}
