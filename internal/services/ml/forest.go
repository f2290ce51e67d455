package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// Forest is a random-forest regressor: bootstrap-sampled variance-reduction
// trees, each splitting on a sqrt-sized random feature subset.
type Forest struct {
	Trees          []*TreeNode
	NumTrees       int
	MaxDepth       int
	MinLeafSamples int
	Seed           int64
}

// NewForest builds an unfitted forest. Training is deterministic for a
// fixed seed.
func NewForest(numTrees int, seed int64) *Forest {
	if numTrees <= 0 {
		numTrees = 40
	}
	return &Forest{
		NumTrees:       numTrees,
		MaxDepth:       6,
		MinLeafSamples: 3,
		Seed:           seed,
	}
}

func (f *Forest) Name() string { return "random_forest" }

func (f *Forest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("forest: bad training shape %dx%d", len(X), len(y))
	}

	rng := rand.New(rand.NewSource(f.Seed))
	nFeatures := len(X[0])
	subset := int(math.Sqrt(float64(nFeatures)))
	if subset < 1 {
		subset = 1
	}
	if subset > nFeatures {
		subset = nFeatures
	}

	params := treeParams{
		maxDepth:       f.MaxDepth,
		minLeafSamples: f.MinLeafSamples,
		featureSubset:  subset,
	}

	f.Trees = make([]*TreeNode, 0, f.NumTrees)
	n := len(X)
	for t := 0; t < f.NumTrees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.Trees = append(f.Trees, buildTree(X, y, idx, 0, params, rng))
	}
	return nil
}

func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.Trees))
}
