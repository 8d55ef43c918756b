// Package timedataset holds the univariate time series representation shared by every model
// along with the loaders and partitioning used before a fit.
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time `json:"time"`
	Y []float64   `json:"values"`
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
// Time points must be strictly increasing.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if i > 0 && !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

// Len returns the number of observations in the dataset
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.T)
}

func (td *TimeDataset) Copy() *TimeDataset {
	if td == nil {
		return nil
	}
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.Y))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// DropNan returns a copy of the dataset without any observations that have a NaN value
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}

	t := make([]time.Time, 0, len(td.T))
	y := make([]float64, 0, len(td.Y))
	for i := 0; i < len(td.T); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		t = append(t, td.T[i])
		y = append(y, td.Y[i])
	}
	return &TimeDataset{
		T: t,
		Y: y,
	}
}

// FillForward returns a copy of y with every NaN replaced by the previous observation. Leading
// NaNs take the first observed value.
func FillForward(y []float64) ([]float64, error) {
	res := make([]float64, len(y))
	copy(res, y)

	first := -1
	for i, v := range res {
		if !math.IsNaN(v) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, ErrNoTrainingData
	}
	for i := 0; i < first; i++ {
		res[i] = res[first]
	}
	for i := first + 1; i < len(res); i++ {
		if math.IsNaN(res[i]) {
			res[i] = res[i-1]
		}
	}
	return res, nil
}
