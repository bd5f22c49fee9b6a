// Package gbm implements gradient-boosted regression trees with squared-error loss.
package gbm

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Params are the boosting hyperparameters.
type Params struct {
	NEstimators     int     `json:"n_estimators" yaml:"n_estimators"`
	LearningRate    float64 `json:"learning_rate" yaml:"learning_rate"`
	MaxDepth        int     `json:"max_depth" yaml:"max_depth"`
	Subsample       float64 `json:"subsample" yaml:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree" yaml:"colsample_bytree"`
	Lambda          float64 `json:"lambda" yaml:"lambda"`
	MinChildWeight  float64 `json:"min_child_weight" yaml:"min_child_weight"`
	Seed            int64   `json:"seed" yaml:"seed"`
}

// DefaultParams returns the fixed hyperparameters used for every training run.
func DefaultParams() Params {
	return Params{
		NEstimators:     200,
		LearningRate:    0.1,
		MaxDepth:        5,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		Lambda:          1,
		MinChildWeight:  1,
		Seed:            42,
	}
}

// Validate reports every out-of-range parameter.
func (p Params) Validate() error {
	var result *multierror.Error
	if p.NEstimators <= 0 {
		result = multierror.Append(result, fmt.Errorf("n_estimators must be positive, got %d", p.NEstimators))
	}
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		result = multierror.Append(result, fmt.Errorf("learning_rate must be in (0, 1], got %g", p.LearningRate))
	}
	if p.MaxDepth <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth))
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		result = multierror.Append(result, fmt.Errorf("subsample must be in (0, 1], got %g", p.Subsample))
	}
	if p.ColsampleByTree <= 0 || p.ColsampleByTree > 1 {
		result = multierror.Append(result, fmt.Errorf("colsample_bytree must be in (0, 1], got %g", p.ColsampleByTree))
	}
	if p.Lambda < 0 {
		result = multierror.Append(result, fmt.Errorf("lambda must be non-negative, got %g", p.Lambda))
	}
	if p.MinChildWeight < 0 {
		result = multierror.Append(result, fmt.Errorf("min_child_weight must be non-negative, got %g", p.MinChildWeight))
	}
	return result.ErrorOrNil()
}
