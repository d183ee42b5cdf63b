package ensemble

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/yourusername/match-oracle/internal/models"
)

// Logistic is a multinomial logistic regression trained with batch gradient
// descent on the softmax cross-entropy. Features are standardized at fit time
// and the learned moments are kept for inference.
type Logistic struct {
	Classes      int         `json:"classes"`
	Weights      [][]float64 `json:"weights"` // [class][feature]
	Bias         []float64   `json:"bias"`
	Means        []float64   `json:"means"`
	StdDevs      []float64   `json:"std_devs"`
	LearningRate float64     `json:"learning_rate"`
	Epochs       int         `json:"epochs"`
	L2           float64     `json:"l2"`
}

// NewLogistic returns an untrained regression model for the given class count.
func NewLogistic(classes int) *Logistic {
	return &Logistic{
		Classes:      classes,
		LearningRate: 0.05,
		Epochs:       400,
		L2:           0.001,
	}
}

func (l *Logistic) Fit(samples [][]float64, labels []int) error {
	if len(samples) == 0 || len(samples) != len(labels) {
		return models.ErrInsufficientData
	}

	featureCount := len(samples[0])
	l.Means, l.StdDevs = featureMoments(samples)
	standardized := make([][]float64, len(samples))
	for i, sample := range samples {
		standardized[i] = standardize(sample, l.Means, l.StdDevs)
	}

	l.Weights = make([][]float64, l.Classes)
	for c := range l.Weights {
		l.Weights[c] = make([]float64, featureCount)
	}
	l.Bias = make([]float64, l.Classes)

	n := float64(len(standardized))
	gradW := make([][]float64, l.Classes)
	for c := range gradW {
		gradW[c] = make([]float64, featureCount)
	}
	gradB := make([]float64, l.Classes)

	for epoch := 0; epoch < l.Epochs; epoch++ {
		for c := range gradW {
			for j := range gradW[c] {
				gradW[c][j] = 0
			}
			gradB[c] = 0
		}

		for i, sample := range standardized {
			probs := l.softmax(sample)
			for c := 0; c < l.Classes; c++ {
				residual := probs[c]
				if labels[i] == c {
					residual -= 1
				}
				floats.AddScaled(gradW[c], residual, sample)
				gradB[c] += residual
			}
		}

		for c := 0; c < l.Classes; c++ {
			for j := range l.Weights[c] {
				l.Weights[c][j] -= l.LearningRate * (gradW[c][j]/n + l.L2*l.Weights[c][j])
			}
			l.Bias[c] -= l.LearningRate * gradB[c] / n
		}
	}
	return nil
}

func (l *Logistic) PredictProba(features []float64) []float64 {
	return l.softmax(standardize(features, l.Means, l.StdDevs))
}

// FeatureImportances reports the mean absolute weight per feature across classes.
func (l *Logistic) FeatureImportances() []float64 {
	if len(l.Weights) == 0 {
		return nil
	}
	importances := make([]float64, len(l.Weights[0]))
	for _, classWeights := range l.Weights {
		for j, w := range classWeights {
			importances[j] += math.Abs(w)
		}
	}
	total := floats.Sum(importances)
	if total > 0 {
		floats.Scale(1/total, importances)
	}
	return importances
}

func (l *Logistic) softmax(features []float64) []float64 {
	logits := make([]float64, l.Classes)
	for c := 0; c < l.Classes; c++ {
		logits[c] = l.Bias[c] + floats.Dot(l.Weights[c], features)
	}
	max := floats.Max(logits)
	sum := 0.0
	for c, logit := range logits {
		logits[c] = math.Exp(logit - max)
		sum += logits[c]
	}
	floats.Scale(1/sum, logits)
	return logits
}

func featureMoments(samples [][]float64) ([]float64, []float64) {
	featureCount := len(samples[0])
	means := make([]float64, featureCount)
	stds := make([]float64, featureCount)
	n := float64(len(samples))

	for _, sample := range samples {
		floats.Add(means, sample)
	}
	floats.Scale(1/n, means)

	for _, sample := range samples {
		for j, value := range sample {
			diff := value - means[j]
			stds[j] += diff * diff
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] < 1e-9 {
			stds[j] = 1
		}
	}
	return means, stds
}

func standardize(features, means, stds []float64) []float64 {
	out := make([]float64, len(features))
	for j, value := range features {
		out[j] = (value - means[j]) / stds[j]
	}
	return out
}
