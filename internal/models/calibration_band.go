package models

import (
	"time"

	"github.com/google/uuid"
)

// Calibration factor safe range. A single band can never swing confidence
// outside this multiplicative window.
const (
	MinCalibrationFactor = 0.65
	MaxCalibrationFactor = 1.35
)

// CalibrationBand accumulates prediction/win counts for one (market,
// confidence-band) pair. Counts only ever grow; the band is never reset.
type CalibrationBand struct {
	ID          uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	Market      string    `db:"market" json:"market" validate:"required"`
	BandLow     int       `db:"band_low" json:"band_low" validate:"gte=0,lte=100"`
	BandHigh    int       `db:"band_high" json:"band_high" validate:"gte=0,lte=100"`
	Predictions int       `db:"predictions" json:"predictions"`
	Correct     int       `db:"correct" json:"correct"`
	Factor      float64   `db:"factor" json:"factor"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// WinRate returns the observed win rate for the band, or 0 with no samples.
func (b *CalibrationBand) WinRate() float64 {
	if b.Predictions == 0 {
		return 0
	}
	return float64(b.Correct) / float64(b.Predictions)
}

// Midpoint returns the band midpoint as a fraction of 100.
func (b *CalibrationBand) Midpoint() float64 {
	return float64(b.BandLow+b.BandHigh) / 200.0
}
