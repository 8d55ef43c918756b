// Package models is a collection of linear regression fitting implementations used by the
// forecasting models
package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Model is a linear regression where x has one row per observation and one column per
// feature and y is a single column of targets
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

func validateTraining(x, y mat.Matrix) error {
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	return nil
}

// withOnes prepends a column of ones to the design matrix
func withOnes(x mat.Matrix) *mat.Dense {
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)

	var xWithOnes mat.Dense
	xWithOnes.Augment(mat.NewDense(m, 1, ones), x)
	return &xWithOnes
}

func predict(x mat.Matrix, intercept float64, coef []float64) ([]float64, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	m, n := x.Dims()
	if n != len(coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(coef), ErrFeatureLenMismatch)
	}

	res := make([]float64, m)
	if n > 0 {
		var resVec mat.VecDense
		resVec.MulVec(x, mat.NewVecDense(n, coef))
		copy(res, resVec.RawVector().Data)
	}
	floats.AddConst(intercept, res)
	return res, nil
}

func score(model Model, x, y mat.Matrix) (float64, error) {
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := model.Predict(x)
	if err != nil {
		return 0.0, err
	}

	r2 := stat.RSquaredFrom(res, mat.Col(nil, 0, y), nil)
	if math.IsNaN(r2) {
		return 1.0, nil
	}
	return r2, nil
}
