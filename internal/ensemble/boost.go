package ensemble

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/yourusername/match-oracle/internal/models"
)

// Boost is a gradient-boosted stump ensemble. Each class carries an additive
// model of regression stumps fitted to logistic pseudo-residuals; class scores
// are combined through a softmax at prediction time.
type Boost struct {
	Classes      int        `json:"classes"`
	Rounds       int        `json:"rounds"`
	LearningRate float64    `json:"learning_rate"`
	Priors       []float64  `json:"priors"` // initial log-odds per class
	Stumps       [][]*stump `json:"stumps"` // [class][round]
	Importances  []float64  `json:"importances"`
}

type stump struct {
	Feature    int     `json:"feature"`
	Threshold  float64 `json:"threshold"`
	LeftValue  float64 `json:"left_value"`
	RightValue float64 `json:"right_value"`
}

// NewBoost returns an untrained boosted ensemble for the given class count.
func NewBoost(classes int) *Boost {
	return &Boost{
		Classes:      classes,
		Rounds:       80,
		LearningRate: 0.1,
	}
}

func (b *Boost) Fit(samples [][]float64, labels []int) error {
	if len(samples) == 0 || len(samples) != len(labels) {
		return models.ErrInsufficientData
	}

	featureCount := len(samples[0])
	n := len(samples)
	b.Priors = make([]float64, b.Classes)
	b.Stumps = make([][]*stump, b.Classes)
	b.Importances = make([]float64, featureCount)

	for c := 0; c < b.Classes; c++ {
		positives := 0
		for _, label := range labels {
			if label == c {
				positives++
			}
		}
		// Laplace-smoothed log-odds prior keeps the first rounds stable on
		// lopsided classes.
		p := (float64(positives) + 1) / (float64(n) + 2)
		b.Priors[c] = math.Log(p / (1 - p))

		scores := make([]float64, n)
		for i := range scores {
			scores[i] = b.Priors[c]
		}

		residuals := make([]float64, n)
		b.Stumps[c] = make([]*stump, 0, b.Rounds)
		for round := 0; round < b.Rounds; round++ {
			for i := range samples {
				target := 0.0
				if labels[i] == c {
					target = 1.0
				}
				residuals[i] = target - sigmoid(scores[i])
			}

			st, gain := bestStump(samples, residuals)
			if st == nil || gain <= 0 {
				break
			}
			b.Stumps[c] = append(b.Stumps[c], st)
			b.Importances[st.Feature] += gain

			for i, sample := range samples {
				scores[i] += b.LearningRate * st.value(sample)
			}
		}
	}

	total := floats.Sum(b.Importances)
	if total > 0 {
		floats.Scale(1/total, b.Importances)
	}
	return nil
}

func (b *Boost) PredictProba(features []float64) []float64 {
	scores := make([]float64, b.Classes)
	for c := 0; c < b.Classes; c++ {
		score := b.Priors[c]
		for _, st := range b.Stumps[c] {
			score += b.LearningRate * st.value(features)
		}
		scores[c] = score
	}

	max := floats.Max(scores)
	sum := 0.0
	for c, score := range scores {
		scores[c] = math.Exp(score - max)
		sum += scores[c]
	}
	floats.Scale(1/sum, scores)
	return scores
}

func (b *Boost) FeatureImportances() []float64 {
	return b.Importances
}

func (s *stump) value(features []float64) float64 {
	if features[s.Feature] <= s.Threshold {
		return s.LeftValue
	}
	return s.RightValue
}

// bestStump scans every feature with quartile thresholds and returns the split
// with the largest squared-error reduction over the residuals.
func bestStump(samples [][]float64, residuals []float64) (*stump, float64) {
	n := float64(len(residuals))
	mean := floats.Sum(residuals) / n
	baseSSE := 0.0
	for _, r := range residuals {
		baseSSE += (r - mean) * (r - mean)
	}

	var best *stump
	bestGain := 0.0

	for feature := 0; feature < len(samples[0]); feature++ {
		for _, threshold := range quartiles(samples, feature) {
			leftSum, leftN := 0.0, 0.0
			for i, sample := range samples {
				if sample[feature] <= threshold {
					leftSum += residuals[i]
					leftN++
				}
			}
			rightN := n - leftN
			if leftN == 0 || rightN == 0 {
				continue
			}
			leftMean := leftSum / leftN
			rightMean := (floats.Sum(residuals) - leftSum) / rightN

			sse := 0.0
			for i, sample := range samples {
				fit := rightMean
				if sample[feature] <= threshold {
					fit = leftMean
				}
				sse += (residuals[i] - fit) * (residuals[i] - fit)
			}
			if gain := baseSSE - sse; gain > bestGain {
				bestGain = gain
				best = &stump{
					Feature:    feature,
					Threshold:  threshold,
					LeftValue:  leftMean,
					RightValue: rightMean,
				}
			}
		}
	}
	return best, bestGain
}

func quartiles(samples [][]float64, feature int) []float64 {
	min, max := samples[0][feature], samples[0][feature]
	for _, sample := range samples {
		if sample[feature] < min {
			min = sample[feature]
		}
		if sample[feature] > max {
			max = sample[feature]
		}
	}
	if min == max {
		return nil
	}
	span := max - min
	return []float64{min + 0.25*span, min + 0.5*span, min + 0.75*span}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
