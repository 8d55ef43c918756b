package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLassoOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *LassoOptions
		err      error
		expected *LassoOptions
	}{
		"nil":                 {nil, nil, NewDefaultLassoOptions()},
		"negative lambda":     {&LassoOptions{Lambda: -1}, ErrNegativeLambda, nil},
		"negative iterations": {&LassoOptions{Iterations: -1}, ErrNegativeIterations, nil},
		"negative tolerance":  {&LassoOptions{Tolerance: -1}, ErrNegativeTolerance, nil},
		"valid": {
			&LassoOptions{Lambda: 0.5, Iterations: 10, Tolerance: 1e-3, FitIntercept: true}, nil,
			&LassoOptions{Lambda: 0.5, Iterations: 10, Tolerance: 1e-3, FitIntercept: true},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestLassoRegression(t *testing.T) {
	tol := 1e-3
	testData := map[string]struct {
		x         [][]float64
		y         []float64
		opt       *LassoOptions
		intercept float64
		coef      []float64
	}{
		"no regularization with intercept": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y: []float64{2, 31, 109, 62, 87},
			opt: &LassoOptions{
				Lambda:       0,
				Iterations:   100000,
				Tolerance:    1e-10,
				FitIntercept: true,
			},
			intercept: 2.0,
			coef:      []float64{3.0, 4.0},
		},
		"no regularization without intercept": {
			x: [][]float64{
				{1, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y: []float64{3, 29, 107, 60, 85},
			opt: &LassoOptions{
				Lambda:       0,
				Iterations:   100000,
				Tolerance:    1e-10,
				FitIntercept: false,
			},
			intercept: 0.0,
			coef:      []float64{3.0, 4.0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x := denseFromRows(td.x)
			y := mat.NewDense(len(td.y), 1, td.y)

			model, err := NewLassoRegression(td.opt)
			require.Nil(t, err)
			testModel(t, model, x, y, td.intercept, td.coef, tol)
		})
	}
}

func TestLassoShrinksIrrelevantFeature(t *testing.T) {
	// second feature is noise uncorrelated with the target
	x := denseFromRows([][]float64{
		{1, 1},
		{2, -1},
		{3, 1},
		{4, -1},
		{5, 1},
		{6, -1},
	})
	y := mat.NewDense(6, 1, []float64{2, 4, 6, 8, 10, 12})

	opt := NewDefaultLassoOptions()
	opt.Lambda = 5
	model, err := NewLassoRegression(opt)
	require.Nil(t, err)
	require.Nil(t, model.Fit(x, y))

	coef := model.Coef()
	require.Len(t, coef, 2)
	assert.Greater(t, coef[0], 1.5)
	assert.Equal(t, 0.0, coef[1])
}

func TestSoftThreshold(t *testing.T) {
	testData := map[string]struct {
		x        float64
		gamma    float64
		expected float64
	}{
		"within gamma":   {0.5, 1, 0},
		"positive":       {3, 1, 2},
		"negative":       {-3, 1, -2},
		"zero threshold": {-3, 0, -3},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, SoftThreshold(td.x, td.gamma))
		})
	}
}
