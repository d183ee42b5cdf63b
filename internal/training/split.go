package training

import "time"

// Sample is one labeled training example with its fixture kickoff time.
type Sample struct {
	Features  []float64
	Label     int
	KickoffAt time.Time
}

// Split holds the three temporal slices of a dataset. Train is the oldest
// portion, Holdout the newest; evaluation never sees data older than training.
type Split struct {
	Train       []Sample
	Calibration []Sample
	Holdout     []Sample
}

// temporalSplit divides chronologically ordered samples by position. Shuffling
// would leak future fixtures into training, so order is preserved as given.
func temporalSplit(samples []Sample, trainFraction, calibrationFraction float64) Split {
	trainEnd := int(float64(len(samples)) * trainFraction)
	calibrationEnd := trainEnd + int(float64(len(samples))*calibrationFraction)
	if calibrationEnd > len(samples) {
		calibrationEnd = len(samples)
	}
	return Split{
		Train:       samples[:trainEnd],
		Calibration: samples[trainEnd:calibrationEnd],
		Holdout:     samples[calibrationEnd:],
	}
}

func featureMatrix(samples []Sample) ([][]float64, []int) {
	rows := make([][]float64, len(samples))
	labels := make([]int, len(samples))
	for i, sample := range samples {
		rows[i] = sample.Features
		labels[i] = sample.Label
	}
	return rows, labels
}
