package ml

import (
	"math"
	"math/rand"
)

// TreeNode is one node of a regression tree. Leaves carry the mean target
// of the samples that reached them.
type TreeNode struct {
	Feature   int
	Threshold float64
	Value     float64
	Left      *TreeNode
	Right     *TreeNode
}

func (n *TreeNode) leaf() bool {
	return n.Left == nil && n.Right == nil
}

func (n *TreeNode) predict(x []float64) float64 {
	node := n
	for !node.leaf() {
		if node.Feature < len(x) && x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

type treeParams struct {
	maxDepth       int
	minLeafSamples int
	featureSubset  int
}

// buildTree grows a variance-reduction regression tree on the index set idx.
// At each split a random subset of features is considered, which is what
// decorrelates the forest's trees.
func buildTree(X [][]float64, y []float64, idx []int, depth int, p treeParams, rng *rand.Rand) *TreeNode {
	node := &TreeNode{Value: meanAt(y, idx)}
	if depth >= p.maxDepth || len(idx) < p.minLeafSamples*2 {
		return node
	}

	bestFeature, bestThreshold, bestScore := -1, 0.0, math.Inf(1)
	parentVar := varianceAt(y, idx)
	if parentVar == 0 {
		return node
	}

	nFeatures := len(X[0])
	candidates := rng.Perm(nFeatures)[:p.featureSubset]

	for _, f := range candidates {
		thresholds := candidateThresholds(X, idx, f, rng)
		for _, th := range thresholds {
			score, ok := splitScore(X, y, idx, f, th, p.minLeafSamples)
			if ok && score < bestScore {
				bestFeature, bestThreshold, bestScore = f, th, score
			}
		}
	}

	if bestFeature < 0 || bestScore >= parentVar {
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	node.Feature = bestFeature
	node.Threshold = bestThreshold
	node.Left = buildTree(X, y, leftIdx, depth+1, p, rng)
	node.Right = buildTree(X, y, rightIdx, depth+1, p, rng)
	return node
}

// candidateThresholds samples up to 8 split points from the feature's
// values in this node.
func candidateThresholds(X [][]float64, idx []int, feature int, rng *rand.Rand) []float64 {
	const maxCandidates = 8
	n := len(idx)
	if n <= maxCandidates {
		out := make([]float64, 0, n)
		for _, i := range idx {
			out = append(out, X[i][feature])
		}
		return out
	}
	out := make([]float64, 0, maxCandidates)
	for k := 0; k < maxCandidates; k++ {
		out = append(out, X[idx[rng.Intn(n)]][feature])
	}
	return out
}

// splitScore returns the size-weighted child variance of the proposed split.
func splitScore(X [][]float64, y []float64, idx []int, feature int, threshold float64, minLeaf int) (float64, bool) {
	var leftSum, leftSq, rightSum, rightSq float64
	var leftN, rightN int
	for _, i := range idx {
		v := y[i]
		if X[i][feature] <= threshold {
			leftSum += v
			leftSq += v * v
			leftN++
		} else {
			rightSum += v
			rightSq += v * v
			rightN++
		}
	}
	if leftN < minLeaf || rightN < minLeaf {
		return 0, false
	}

	leftVar := leftSq/float64(leftN) - (leftSum/float64(leftN))*(leftSum/float64(leftN))
	rightVar := rightSq/float64(rightN) - (rightSum/float64(rightN))*(rightSum/float64(rightN))
	total := float64(leftN + rightN)
	return (float64(leftN)*leftVar + float64(rightN)*rightVar) / total, true
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func varianceAt(y []float64, idx []int) float64 {
	if len(idx) < 2 {
		return 0
	}
	m := meanAt(y, idx)
	var sum float64
	for _, i := range idx {
		d := y[i] - m
		sum += d * d
	}
	return sum / float64(len(idx))
}
