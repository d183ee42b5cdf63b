package ensemble

import (
	"sort"

	"github.com/yourusername/match-oracle/internal/models"
)

// Isotonic maps raw model probabilities onto observed outcome frequencies with
// a monotone step function fitted by pool-adjacent-violators. Between knots the
// mapping interpolates linearly; outside the fitted range it clamps.
type Isotonic struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// FitIsotonic fits the calibration curve from (rawProbability, outcome) pairs.
// Outcomes are 1 for a correct top pick and 0 otherwise.
func FitIsotonic(probs []float64, outcomes []float64) (*Isotonic, error) {
	if len(probs) == 0 || len(probs) != len(outcomes) {
		return nil, models.ErrInsufficientData
	}

	type pair struct{ x, y float64 }
	pairs := make([]pair, len(probs))
	for i := range probs {
		pairs[i] = pair{probs[i], outcomes[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].x < pairs[j].x })

	// Pool adjacent violators: merge blocks until the means are non-decreasing.
	type block struct {
		sumX, sumY, weight float64
	}
	blocks := make([]block, 0, len(pairs))
	for _, p := range pairs {
		blocks = append(blocks, block{sumX: p.x, sumY: p.y, weight: 1})
		for len(blocks) > 1 {
			last := len(blocks) - 1
			if blocks[last].sumY/blocks[last].weight >= blocks[last-1].sumY/blocks[last-1].weight {
				break
			}
			blocks[last-1].sumX += blocks[last].sumX
			blocks[last-1].sumY += blocks[last].sumY
			blocks[last-1].weight += blocks[last].weight
			blocks = blocks[:last]
		}
	}

	iso := &Isotonic{
		X: make([]float64, len(blocks)),
		Y: make([]float64, len(blocks)),
	}
	for i, b := range blocks {
		iso.X[i] = b.sumX / b.weight
		iso.Y[i] = b.sumY / b.weight
	}
	return iso, nil
}

// Transform returns the calibrated probability for a raw one.
func (iso *Isotonic) Transform(p float64) float64 {
	if len(iso.X) == 0 {
		return p
	}
	if p <= iso.X[0] {
		return iso.Y[0]
	}
	if p >= iso.X[len(iso.X)-1] {
		return iso.Y[len(iso.Y)-1]
	}
	idx := sort.SearchFloat64s(iso.X, p)
	x0, x1 := iso.X[idx-1], iso.X[idx]
	y0, y1 := iso.Y[idx-1], iso.Y[idx]
	if x1 == x0 {
		return y0
	}
	return y0 + (y1-y0)*(p-x0)/(x1-x0)
}
