package gbt

import (
	"math"
	"sort"
)

// node is either a split on a single feature or a leaf holding the predicted value
type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

func (n *node) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func (n *node) depth() int {
	if n == nil || n.leaf {
		return 0
	}
	l, r := n.left.depth(), n.right.depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

type treeBuilder struct {
	x              [][]float64
	y              []float64
	maxDepth       int
	minSamplesLeaf int
}

// build fits a least squares regression tree over the rows in idx
func (b *treeBuilder) build(idx []int, depth int) *node {
	mean := 0.0
	for _, i := range idx {
		mean += b.y[i]
	}
	mean /= float64(len(idx))

	if depth >= b.maxDepth || len(idx) < 2*b.minSamplesLeaf {
		return &node{leaf: true, value: mean}
	}

	feat, threshold, ok := b.bestSplit(idx)
	if !ok {
		return &node{leaf: true, value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feat] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature:   feat,
		threshold: threshold,
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
	}
}

// bestSplit finds the feature and threshold with the largest reduction in squared error such
// that both sides keep at least minSamplesLeaf rows
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - total*total/float64(n)

	bestGain := 1e-12
	bestFeat := -1
	var bestThreshold float64

	sorted := make([]int, n)
	numFeat := len(b.x[idx[0]])
	for f := 0; f < numFeat; f++ {
		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[sorted[k]]
			leftSum += yi
			leftSq += yi * yi

			nl := k + 1
			nr := n - nl
			if nl < b.minSamplesLeaf || nr < b.minSamplesLeaf {
				continue
			}
			curr := b.x[sorted[k]][f]
			next := b.x[sorted[k+1]][f]
			if curr == next {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if gain := parentSSE - sse; gain > bestGain {
				bestGain = gain
				bestFeat = f
				bestThreshold = curr + (next-curr)/2
			}
		}
	}
	if bestFeat < 0 || math.IsNaN(bestThreshold) {
		return 0, 0, false
	}
	return bestFeat, bestThreshold, true
}
