package gbm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var (
	// ErrDimension is returned when an input vector has the wrong width.
	ErrDimension = errors.New("feature dimension mismatch")

	// ErrMalformedTree is returned when a decoded tree cannot be walked safely.
	ErrMalformedTree = errors.New("malformed tree")
)

// Booster is a fitted ensemble. Features holds the column order the trees
// index into; inputs must be laid out identically.
type Booster struct {
	Features  []string `json:"features"`
	BaseScore float64  `json:"base_score"`
	Params    Params   `json:"params"`
	Trees     []Tree   `json:"trees"`
}

// Validate checks every tree's structure against the booster's feature count.
func (b *Booster) Validate() error {
	for i := range b.Trees {
		if err := b.Trees[i].validate(len(b.Features)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// Fit trains a booster on rows x (laid out per names) against targets y.
func Fit(x [][]float64, y []float64, names []string, p Params) (*Booster, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, errors.New("no training rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%d rows but %d targets", len(x), len(y))
	}
	for i, row := range x {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, want %d: %w", i, len(row), len(names), ErrDimension)
		}
	}

	n, nf := len(x), len(names)
	rng := rand.New(rand.NewSource(p.Seed))

	b := &Booster{
		Features:  append([]string(nil), names...),
		BaseScore: mean(y),
		Params:    p,
		Trees:     make([]Tree, 0, p.NEstimators),
	}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = b.BaseScore
	}
	grad := make([]float64, n)

	ncols := int(math.Round(p.ColsampleByTree * float64(nf)))
	if ncols < 1 {
		ncols = 1
	}

	for t := 0; t < p.NEstimators; t++ {
		for i := range grad {
			grad[i] = pred[i] - y[i]
		}

		rows := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if rng.Float64() < p.Subsample {
				rows = append(rows, i)
			}
		}
		if len(rows) == 0 {
			rows = append(rows, rng.Intn(n))
		}

		cols := rng.Perm(nf)[:ncols]
		sort.Ints(cols)

		tb := &treeBuilder{x: x, grad: grad, params: p, cols: cols}
		tb.build(rows, 0)
		tree := Tree{Nodes: tb.nodes}

		for i := range pred {
			pred[i] += tree.Predict(x[i])
		}
		b.Trees = append(b.Trees, tree)
	}

	return b, nil
}

// Predict returns the model output for one input laid out per b.Features.
func (b *Booster) Predict(x []float64) (float64, error) {
	if len(x) != len(b.Features) {
		return 0, fmt.Errorf("got %d values, want %d: %w", len(x), len(b.Features), ErrDimension)
	}
	out := b.BaseScore
	for i := range b.Trees {
		out += b.Trees[i].Predict(x)
	}
	return out, nil
}

// PredictBatch predicts every row of x.
func (b *Booster) PredictBatch(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		v, err := b.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// SplitCounts returns how often each feature is used as a split.
func (b *Booster) SplitCounts() map[string]int {
	counts := make(map[string]int, len(b.Features))
	for _, name := range b.Features {
		counts[name] = 0
	}
	for _, t := range b.Trees {
		for _, n := range t.Nodes {
			if !n.Leaf {
				counts[b.Features[n.Feature]]++
			}
		}
	}
	return counts
}

// RMSE is the root-mean-squared error between two equally long series.
func RMSE(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("%d actual vs %d predicted values", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return 0, errors.New("rmse of empty series")
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual))), nil
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
