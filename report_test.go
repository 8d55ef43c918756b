package forecastlab

import (
	"bytes"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/aouyang1/forecastlab/sample"
	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSample(t *testing.T) *timedataset.TimeDataset {
	t.Helper()
	r, err := sample.Open("")
	require.NoError(t, err)
	defer r.Close()

	td, err := timedataset.LoadCSV(r, nil)
	require.NoError(t, err)
	return td
}

func TestRunGradientBoostedTreeSample(t *testing.T) {
	td := loadSample(t)
	require.Equal(t, 100, td.Len())

	r, err := NewPipeline(nil).Run(td, GradientBoostedTreeConfig{})
	require.NoError(t, err)

	assert.Equal(t, KindGradientBoostedTree, r.Kind)
	assert.Equal(t, 80, r.Split.Train.Len())
	assert.Equal(t, 20, r.Split.Test.Len())
	assert.Equal(t, td.T[80:], r.Results.T)
	assert.Len(t, r.Results.Forecast, 20)
	assert.False(t, math.IsNaN(r.MAE))
	assert.False(t, math.IsInf(r.MAE, 0))
	assert.GreaterOrEqual(t, r.MAE, 0.0)
	assert.Regexp(t, regexp.MustCompile(`^MAE: \d+\.\d{2}$`), r.MAEText())
	assert.Contains(t, r.Weights, "trend.slope")
}

func TestRunAllKinds(t *testing.T) {
	testData := map[string]struct {
		cfg ModelConfig
	}{
		"gbt":      {GradientBoostedTreeConfig{}},
		"additive": {AdditiveDecompositionConfig{}},
		"sarima":   {SeasonalARIMAConfig{Order: [3]int{1, 1, 1}, SeasonalOrder: [3]int{0, 1, 1}}},
	}

	td := loadSample(t)
	for name, tc := range testData {
		t.Run(name, func(t *testing.T) {
			r, err := Run(td, tc.cfg, NewDefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, tc.cfg.Kind(), r.Kind)
			assert.Equal(t, r.Split.Test.T, r.Results.T)
			assert.GreaterOrEqual(t, r.MAE, 0.0)
			assert.NotEmpty(t, r.Weights)
			assert.Equal(t, tc.cfg.Kind() == KindAdditiveDecomposition, r.Equation != "")
		})
	}
}

func TestRunErrors(t *testing.T) {
	_, err := Run(generateDailySeries(10), nil, nil)
	assert.ErrorIs(t, err, ErrNilModelConfig)

	_, err = Run(nil, GradientBoostedTreeConfig{}, nil)
	assert.ErrorIs(t, err, timedataset.ErrNoTrainingData)

	// a single observation leaves nothing to train on
	one := &timedataset.TimeDataset{T: []time.Time{seriesStart}, Y: []float64{1}}
	_, err = Run(one, GradientBoostedTreeConfig{}, nil)
	assert.Error(t, err)
}

func TestAligned(t *testing.T) {
	tSeries := timedataset.GenerateTFrom(seriesStart, 3, time.Hour)

	testData := map[string]struct {
		res      *Results
		expected bool
	}{
		"equal":          {&Results{T: tSeries, Forecast: []float64{1, 2, 3}}, true},
		"short":          {&Results{T: tSeries[:2], Forecast: []float64{1, 2}}, false},
		"missing values": {&Results{T: tSeries, Forecast: []float64{1}}, false},
		"shifted": {
			&Results{T: timedataset.GenerateTFrom(seriesStart.Add(time.Hour), 3, time.Hour), Forecast: []float64{1, 2, 3}},
			false,
		},
		"nil": {nil, false},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, aligned(td.res, tSeries))
		})
	}
}

func TestReportMAEText(t *testing.T) {
	testData := map[string]struct {
		mae      float64
		expected string
	}{
		"zero":     {0, "MAE: 0.00"},
		"round up": {1.236, "MAE: 1.24"},
		"large":    {1234.5, "MAE: 1234.50"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			r := &Report{MAE: td.mae}
			assert.Equal(t, td.expected, r.MAEText())
		})
	}
}

func TestReportRender(t *testing.T) {
	td := generateDailySeries(20)
	split, err := timedataset.Split(td, timedataset.DefaultTrainFraction)
	require.NoError(t, err)

	r := &Report{
		Kind:  KindGradientBoostedTree,
		Split: split,
		Results: &Results{
			T:        split.Test.T,
			Forecast: split.Test.Y,
			Stderr:   make([]float64, split.Test.Len()),
		},
	}

	line := r.Chart()
	require.Len(t, line.MultiSeries, 3)
	assert.Equal(t, "Train", line.MultiSeries[0].Name)
	assert.Equal(t, "Test", line.MultiSeries[1].Name)
	assert.Equal(t, "Forecast", line.MultiSeries[2].Name)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	assert.Contains(t, buf.String(), ChartTitle)
	assert.Contains(t, buf.String(), "2023-01-01")
}

func TestAxisLayout(t *testing.T) {
	daily := timedataset.GenerateTFrom(seriesStart, 3, 24*time.Hour)
	hourly := timedataset.GenerateTFrom(seriesStart, 3, time.Hour)
	assert.Equal(t, "2006-01-02", AxisLayout(daily))
	assert.Equal(t, "2006-01-02 15:04", AxisLayout(hourly))
}
