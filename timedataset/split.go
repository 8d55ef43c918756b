package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultTrainFraction is the share of observations kept for training when partitioning a
// series chronologically
const DefaultTrainFraction = 0.8

var ErrInvalidFraction = errors.New("train fraction must be within [0, 1]")

// SplitResult holds a chronological partition of a series. Train and Test are contiguous,
// do not overlap, and concatenate back into the original series.
type SplitResult struct {
	Train *TimeDataset `json:"train"`
	Test  *TimeDataset `json:"test"`
}

// SplitIndex returns floor(fraction * n), the index of the first test observation
func SplitIndex(n int, fraction float64) int {
	idx := int(math.Floor(float64(n) * fraction))
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}

// Split partitions the dataset into a training prefix [0, k) and a test suffix [k, n) where
// k = floor(fraction * n). Order is preserved and no observation is shuffled. Either side
// may be empty for very short series.
func Split(td *TimeDataset, fraction float64) (*SplitResult, error) {
	if td == nil {
		return nil, ErrNoTrainingData
	}
	if fraction < 0 || fraction > 1 || math.IsNaN(fraction) {
		return nil, fmt.Errorf("got %.3f, %w", fraction, ErrInvalidFraction)
	}

	k := SplitIndex(td.Len(), fraction)
	return &SplitResult{
		Train: td.slice(0, k),
		Test:  td.slice(k, td.Len()),
	}, nil
}

func (td *TimeDataset) slice(start, end int) *TimeDataset {
	t := make([]time.Time, end-start)
	y := make([]float64, end-start)
	copy(t, td.T[start:end])
	copy(y, td.Y[start:end])
	return &TimeDataset{T: t, Y: y}
}
