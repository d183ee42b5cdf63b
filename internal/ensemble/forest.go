package ensemble

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/yourusername/match-oracle/internal/models"
)

// Forest is a bagged ensemble of depth-limited CART trees. Each tree trains on
// a bootstrap resample and considers a random sqrt-sized feature subset per
// split. The seed is fixed so a retrain over identical samples reproduces the
// same model.
type Forest struct {
	Classes     int         `json:"classes"`
	Trees       []*treeNode `json:"trees"`
	TreeCount   int         `json:"tree_count"`
	MaxDepth    int         `json:"max_depth"`
	MinLeafSize int         `json:"min_leaf_size"`
	Seed        int64       `json:"seed"`
	Importances []float64   `json:"importances"`
}

type treeNode struct {
	Feature    int       `json:"feature"`
	Threshold  float64   `json:"threshold"`
	Left       *treeNode `json:"left,omitempty"`
	Right      *treeNode `json:"right,omitempty"`
	Leaf       bool      `json:"leaf"`
	ClassProbs []float64 `json:"class_probs,omitempty"`
}

// NewForest returns an untrained forest for the given class count.
func NewForest(classes int) *Forest {
	return &Forest{
		Classes:     classes,
		TreeCount:   60,
		MaxDepth:    6,
		MinLeafSize: 5,
		Seed:        17,
	}
}

func (f *Forest) Fit(samples [][]float64, labels []int) error {
	if len(samples) == 0 || len(samples) != len(labels) {
		return models.ErrInsufficientData
	}

	featureCount := len(samples[0])
	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]*treeNode, 0, f.TreeCount)
	f.Importances = make([]float64, featureCount)

	subsetSize := int(math.Max(1, math.Sqrt(float64(featureCount))))

	for t := 0; t < f.TreeCount; t++ {
		indices := make([]int, len(samples))
		for i := range indices {
			indices[i] = rng.Intn(len(samples))
		}
		grower := &treeGrower{
			samples:     samples,
			labels:      labels,
			classes:     f.Classes,
			maxDepth:    f.MaxDepth,
			minLeafSize: f.MinLeafSize,
			subsetSize:  subsetSize,
			rng:         rng,
			importances: f.Importances,
		}
		f.Trees = append(f.Trees, grower.grow(indices, 0))
	}

	total := floats.Sum(f.Importances)
	if total > 0 {
		floats.Scale(1/total, f.Importances)
	}
	return nil
}

func (f *Forest) PredictProba(features []float64) []float64 {
	probs := make([]float64, f.Classes)
	for _, tree := range f.Trees {
		leaf := tree
		for !leaf.Leaf {
			if features[leaf.Feature] <= leaf.Threshold {
				leaf = leaf.Left
			} else {
				leaf = leaf.Right
			}
		}
		floats.Add(probs, leaf.ClassProbs)
	}
	if len(f.Trees) > 0 {
		floats.Scale(1/float64(len(f.Trees)), probs)
	}
	return probs
}

func (f *Forest) FeatureImportances() []float64 {
	return f.Importances
}

type treeGrower struct {
	samples     [][]float64
	labels      []int
	classes     int
	maxDepth    int
	minLeafSize int
	subsetSize  int
	rng         *rand.Rand
	importances []float64
}

func (g *treeGrower) grow(indices []int, depth int) *treeNode {
	counts := g.classCounts(indices)
	if depth >= g.maxDepth || len(indices) < 2*g.minLeafSize || isPure(counts) {
		return g.leaf(counts, len(indices))
	}

	feature, threshold, gain := g.bestSplit(indices, counts)
	if gain <= 0 {
		return g.leaf(counts, len(indices))
	}

	var left, right []int
	for _, idx := range indices {
		if g.samples[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	if len(left) < g.minLeafSize || len(right) < g.minLeafSize {
		return g.leaf(counts, len(indices))
	}

	g.importances[feature] += gain * float64(len(indices))

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      g.grow(left, depth+1),
		Right:     g.grow(right, depth+1),
	}
}

func (g *treeGrower) leaf(counts []int, total int) *treeNode {
	probs := make([]float64, g.classes)
	if total > 0 {
		for c, count := range counts {
			probs[c] = float64(count) / float64(total)
		}
	}
	return &treeNode{Leaf: true, ClassProbs: probs}
}

func (g *treeGrower) bestSplit(indices []int, counts []int) (int, float64, float64) {
	parentImpurity := gini(counts, len(indices))
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0

	featureCount := len(g.samples[0])
	for _, feature := range g.rng.Perm(featureCount)[:g.subsetSize] {
		thresholds := g.candidateThresholds(indices, feature)
		for _, threshold := range thresholds {
			leftCounts := make([]int, g.classes)
			leftTotal := 0
			for _, idx := range indices {
				if g.samples[idx][feature] <= threshold {
					leftCounts[g.labels[idx]]++
					leftTotal++
				}
			}
			rightTotal := len(indices) - leftTotal
			if leftTotal == 0 || rightTotal == 0 {
				continue
			}
			rightCounts := make([]int, g.classes)
			for c := range rightCounts {
				rightCounts[c] = counts[c] - leftCounts[c]
			}

			n := float64(len(indices))
			weighted := float64(leftTotal)/n*gini(leftCounts, leftTotal) +
				float64(rightTotal)/n*gini(rightCounts, rightTotal)
			if gain := parentImpurity - weighted; gain > bestGain {
				bestFeature, bestThreshold, bestGain = feature, threshold, gain
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

// candidateThresholds samples a handful of observed values rather than scanning
// every split point, which keeps training cost linear in the sample count.
func (g *treeGrower) candidateThresholds(indices []int, feature int) []float64 {
	const maxCandidates = 8
	seen := map[float64]struct{}{}
	var thresholds []float64
	for attempts := 0; attempts < 4*maxCandidates && len(thresholds) < maxCandidates; attempts++ {
		value := g.samples[indices[g.rng.Intn(len(indices))]][feature]
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		thresholds = append(thresholds, value)
	}
	return thresholds
}

func (g *treeGrower) classCounts(indices []int) []int {
	counts := make([]int, g.classes)
	for _, idx := range indices {
		counts[g.labels[idx]]++
	}
	return counts
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		impurity -= p * p
	}
	return impurity
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, count := range counts {
		if count > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}
