package feature

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Set is a collection of equal length feature columns keyed by the string representation of
// each feature. Columns shorter than the longest column are zero padded.
type Set struct {
	m      int
	set    map[string][]float64
	labels []Feature
}

func NewSet() *Set {
	return &Set{
		set: make(map[string][]float64),
	}
}

// Len returns the number of features in the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Rows returns the number of observations of every feature
func (s *Set) Rows() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Set stores a copy of data under the feature, replacing any prior value
func (s *Set) Set(f Feature, data []float64) *Set {
	if s == nil {
		s = NewSet()
	}
	if s.set == nil {
		s.set = make(map[string][]float64)
	}

	if len(data) > s.m {
		for label, vals := range s.set {
			s.set[label] = append(vals, make([]float64, len(data)-len(vals))...)
		}
		s.m = len(data)
	}

	vals := make([]float64, s.m)
	copy(vals, data)

	key := f.String()
	if _, exists := s.set[key]; !exists {
		s.labels = append(s.labels, f)
	}
	s.set[key] = vals
	return s
}

// Get returns the data for the feature and whether it exists in the set
func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	vals, exists := s.set[f.String()]
	return vals, exists
}

// Del removes the feature from the set if present
func (s *Set) Del(f Feature) *Set {
	if s == nil {
		return nil
	}
	key := f.String()
	if _, exists := s.set[key]; !exists {
		return s
	}
	delete(s.set, key)
	for i, label := range s.labels {
		if label.String() == key {
			s.labels = append(s.labels[:i], s.labels[i+1:]...)
			break
		}
	}
	return s
}

// Update merges every feature of other into the set, overwriting features with the same label
func (s *Set) Update(other *Set) *Set {
	if other == nil {
		return s
	}
	for _, f := range other.labels {
		s = s.Set(f, other.set[f.String()])
	}
	return s
}

// Filter returns a new set only containing features of the given types
func (s *Set) Filter(types ...FeatureType) *Set {
	res := NewSet()
	if s == nil {
		return res
	}
	for _, f := range s.labels {
		for _, ft := range types {
			if f.Type() == ft {
				res.Set(f, s.set[f.String()])
				break
			}
		}
	}
	return res
}

// RemoveZeroOnlyFeatures drops every feature whose values are all zero since they carry no
// information for a fit
func (s *Set) RemoveZeroOnlyFeatures() {
	if s == nil {
		return
	}
	for _, f := range s.Labels().Labels() {
		if allZero(s.set[f.String()]) {
			s.Del(f)
		}
	}
}

// Labels returns the features sorted by their string representation
func (s *Set) Labels() *Labels {
	if s == nil {
		return NewLabels(nil)
	}

	labels := make([]Feature, len(s.labels))
	copy(labels, s.labels)
	sort.Slice(
		labels,
		func(i, j int) bool {
			return labels[i].String() < labels[j].String()
		},
	)
	return NewLabels(labels)
}

// Matrix returns a matrix representation of the set to be used with matrix methods.
// The matrix has m rows representing the number of observations and n columns representing
// the number of features in sorted label order. An intercept column of ones is prepended
// when requested.
func (s *Set) Matrix(intercept bool) *mat.Dense {
	cols := s.MatrixSlice(intercept)
	if len(cols) == 0 || s.m == 0 {
		return nil
	}

	n := len(cols)
	obs := make([]float64, s.m*n)
	for j, col := range cols {
		for i := 0; i < s.m; i++ {
			obs[n*i+j] = col[i]
		}
	}
	return mat.NewDense(s.m, n, obs)
}

// MatrixSlice returns the set as a slice of columns in sorted label order, optionally
// prepending an intercept column of ones.
func (s *Set) MatrixSlice(intercept bool) [][]float64 {
	if s == nil || len(s.labels) == 0 {
		return nil
	}

	n := len(s.labels)
	if intercept {
		n++
	}

	obs := make([][]float64, 0, n)
	if intercept {
		ones := make([]float64, s.m)
		floats.AddConst(1.0, ones)
		obs = append(obs, ones)
	}
	for _, label := range s.Labels().Labels() {
		obs = append(obs, s.set[label.String()])
	}
	return obs
}

func allZero(vals []float64) bool {
	for _, v := range vals {
		if v != 0 {
			return false
		}
	}
	return true
}
