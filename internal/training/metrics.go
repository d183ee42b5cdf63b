package training

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Evaluation holds holdout metrics for one trained market model.
type Evaluation struct {
	Accuracy   float64
	MacroF1    float64
	LogLoss    float64
	BrierScore float64
}

// evaluate scores predicted class distributions against true labels. Log loss
// clamps probabilities away from zero so a single confident miss cannot
// produce an infinite score.
func evaluate(predictions [][]float64, labels []int, classes int) Evaluation {
	const epsilon = 1e-12

	correct := 0
	logLoss := 0.0
	brier := 0.0
	truePositives := make([]float64, classes)
	falsePositives := make([]float64, classes)
	falseNegatives := make([]float64, classes)

	for i, probs := range predictions {
		predicted := floats.MaxIdx(probs)
		actual := labels[i]
		if predicted == actual {
			correct++
			truePositives[actual]++
		} else {
			falsePositives[predicted]++
			falseNegatives[actual]++
		}

		logLoss -= math.Log(math.Max(probs[actual], epsilon))

		for c, p := range probs {
			target := 0.0
			if c == actual {
				target = 1.0
			}
			brier += (p - target) * (p - target)
		}
	}

	n := float64(len(predictions))
	f1 := make([]float64, classes)
	for c := 0; c < classes; c++ {
		denominator := 2*truePositives[c] + falsePositives[c] + falseNegatives[c]
		if denominator > 0 {
			f1[c] = 2 * truePositives[c] / denominator
		}
	}

	return Evaluation{
		Accuracy:   float64(correct) / n,
		MacroF1:    stat.Mean(f1, nil),
		LogLoss:    logLoss / n,
		BrierScore: brier / n,
	}
}
