package gbt

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultNumEstimators  = 100
	DefaultLearningRate   = 0.1
	DefaultMaxDepth       = 3
	DefaultMinSamplesLeaf = 2
)

var (
	ErrNoRows             = errors.New("no training rows")
	ErrRowLenMismatch     = errors.New("rows have a different number of features")
	ErrTargetLenMismatch  = errors.New("target length does not match number of rows")
	ErrInvalidEstimators  = errors.New("number of estimators must be positive")
	ErrInvalidLearnRate   = errors.New("learning rate must be within (0, 1]")
	ErrInvalidMaxDepth    = errors.New("max depth must be positive")
	ErrInvalidLeafSamples = errors.New("min samples per leaf must be positive")
	ErrUntrainedRegressor = errors.New("regressor has not been trained yet")
)

// BoostOptions configures gradient boosting of regression trees with squared loss
type BoostOptions struct {
	NumEstimators  int     `json:"num_estimators"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
}

func NewDefaultBoostOptions() *BoostOptions {
	return &BoostOptions{
		NumEstimators:  DefaultNumEstimators,
		LearningRate:   DefaultLearningRate,
		MaxDepth:       DefaultMaxDepth,
		MinSamplesLeaf: DefaultMinSamplesLeaf,
	}
}

// Validate runs basic validation on boost options
func (o *BoostOptions) Validate() (*BoostOptions, error) {
	if o == nil {
		o = NewDefaultBoostOptions()
	}
	if o.NumEstimators <= 0 {
		return nil, ErrInvalidEstimators
	}
	if o.LearningRate <= 0 || o.LearningRate > 1 {
		return nil, ErrInvalidLearnRate
	}
	if o.MaxDepth <= 0 {
		return nil, ErrInvalidMaxDepth
	}
	if o.MinSamplesLeaf <= 0 {
		return nil, ErrInvalidLeafSamples
	}
	return o, nil
}

// Regressor is an ensemble of regression trees where each tree fits the residual of the
// ensemble before it
type Regressor struct {
	opt   *BoostOptions
	base  float64
	trees []*node
}

func NewRegressor(opt *BoostOptions) (*Regressor, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Regressor{opt: opt}, nil
}

// Fit trains the ensemble on rows of features x and targets y
func (r *Regressor) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return ErrNoRows
	}
	if len(x) != len(y) {
		return fmt.Errorf("got %d rows and %d targets, %w", len(x), len(y), ErrTargetLenMismatch)
	}
	numFeat := len(x[0])
	for i, row := range x {
		if len(row) != numFeat {
			return fmt.Errorf("row %d has %d features instead of %d, %w", i, len(row), numFeat, ErrRowLenMismatch)
		}
	}

	r.base = stat.Mean(y, nil)
	r.trees = make([]*node, 0, r.opt.NumEstimators)

	pred := make([]float64, len(y))
	floats.AddConst(r.base, pred)
	resid := make([]float64, len(y))

	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}

	for e := 0; e < r.opt.NumEstimators; e++ {
		floats.SubTo(resid, y, pred)
		b := &treeBuilder{
			x:              x,
			y:              resid,
			maxDepth:       r.opt.MaxDepth,
			minSamplesLeaf: r.opt.MinSamplesLeaf,
		}
		tree := b.build(idx, 0)
		r.trees = append(r.trees, tree)

		for i, row := range x {
			pred[i] += r.opt.LearningRate * tree.predict(row)
		}
	}
	return nil
}

// Predict returns the ensemble prediction for a single row of features
func (r *Regressor) Predict(row []float64) (float64, error) {
	if len(r.trees) == 0 {
		return 0, ErrUntrainedRegressor
	}
	res := r.base
	for _, tree := range r.trees {
		res += r.opt.LearningRate * tree.predict(row)
	}
	return res, nil
}

// NumTrees returns the number of fitted trees
func (r *Regressor) NumTrees() int {
	return len(r.trees)
}

// Depth returns the depth of the deepest fitted tree
func (r *Regressor) Depth() int {
	depth := 0
	for _, tree := range r.trees {
		if d := tree.depth(); d > depth {
			depth = d
		}
	}
	return depth
}
