package gbm

import (
	"fmt"
	"sort"
)

// Node is one node of a regression tree stored in a flat slice.
// Leaves carry Value, already scaled by the learning rate.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// Tree is a binary regression tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for x. Values below a threshold go left.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate reports nodes that would make Predict index out of range or
// revisit a node. Children always follow their parent in Nodes.
func (t *Tree) validate(nfeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("no nodes: %w", ErrMalformedTree)
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= nfeatures {
			return fmt.Errorf("node %d splits on feature %d of %d: %w", i, n.Feature, nfeatures, ErrMalformedTree)
		}
		for _, c := range []int{n.Left, n.Right} {
			if c <= i || c >= len(t.Nodes) {
				return fmt.Errorf("node %d has child %d outside (%d, %d): %w", i, c, i, len(t.Nodes), ErrMalformedTree)
			}
		}
	}
	return nil
}

// treeBuilder grows one tree by exact greedy split search over the sampled rows and columns.
type treeBuilder struct {
	x      [][]float64
	grad   []float64
	params Params
	cols   []int
	nodes  []Node
}

func (b *treeBuilder) build(idx []int, depth int) int {
	var g float64
	for _, i := range idx {
		g += b.grad[i]
	}
	h := float64(len(idx)) // squared error: unit hessian

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Leaf:  true,
		Value: -g / (h + b.params.Lambda) * b.params.LearningRate,
	})

	if depth >= b.params.MaxDepth || len(idx) < 2 {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx, g, h)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return id
}

func (b *treeBuilder) bestSplit(idx []int, g, h float64) (int, float64, bool) {
	lambda := b.params.Lambda
	parent := g * g / (h + lambda)

	bestGain := 1e-12
	bestFeature, bestThreshold := -1, 0.0

	sorted := make([]int, len(idx))
	for _, f := range b.cols {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })

		var gl, hl float64
		for j := 0; j < len(sorted)-1; j++ {
			gl += b.grad[sorted[j]]
			hl++

			v, next := b.x[sorted[j]][f], b.x[sorted[j+1]][f]
			if v == next {
				continue
			}
			hr := h - hl
			if hl < b.params.MinChildWeight || hr < b.params.MinChildWeight {
				continue
			}
			gr := g - gl
			gain := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (v + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}
