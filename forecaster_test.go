package forecastlab

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seriesStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// generateDailySeries builds a daily series with a trend, a weekly wave and a little noise
func generateDailySeries(n int) *timedataset.TimeDataset {
	t := timedataset.GenerateTFrom(seriesStart, n, 24*time.Hour)
	y := make(timedataset.Series, n)
	y.Add(timedataset.GenerateConstY(n, 50.0)).
		Add(timedataset.GenerateTrendY(n, 0.3)).
		Add(timedataset.GenerateWaveY(t, 5.0, 7*86400.0, 1.0, 0)).
		Add(timedataset.GenerateNoise(n, 0.5, 42))

	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		panic(err)
	}
	return td
}

func TestTrainForecastAlignment(t *testing.T) {
	testData := map[string]struct {
		cfg ModelConfig
	}{
		"gbt":              {GradientBoostedTreeConfig{}},
		"additive":         {AdditiveDecompositionConfig{}},
		"sarima inferred":  {SeasonalARIMAConfig{Order: [3]int{1, 1, 1}, SeasonalOrder: [3]int{0, 1, 1}}},
		"sarima explicit":  {SeasonalARIMAConfig{Order: [3]int{1, 1, 0}, SeasonalOrder: [3]int{1, 0, 0}, Period: 7}},
		"sarima no season": {SeasonalARIMAConfig{Order: [3]int{1, 1, 0}}},
	}

	td := generateDailySeries(100)
	train := &timedataset.TimeDataset{T: td.T[:80], Y: td.Y[:80]}
	test := td.T[80:]

	for name, tc := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := Train(train, tc.cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.cfg.Kind(), f.Kind())
			assert.Equal(t, td.T[79], f.TrainEndTime())

			res, err := f.Forecast(test)
			require.NoError(t, err)
			assert.Equal(t, test, res.T)
			require.Len(t, res.Forecast, len(test))
			require.Len(t, res.Stderr, len(test))
			for i, v := range res.Forecast {
				assert.False(t, math.IsNaN(v), "forecast %d is NaN", i)
				assert.False(t, math.IsInf(v, 0), "forecast %d is infinite", i)
			}
		})
	}
}

func TestTrainWeights(t *testing.T) {
	testData := map[string]struct {
		cfg      ModelConfig
		labels   []string
		equation bool
	}{
		"gbt":      {GradientBoostedTreeConfig{}, []string{"trend.intercept", "trend.slope"}, false},
		"additive": {AdditiveDecompositionConfig{}, []string{"intercept"}, true},
		"sarima": {
			SeasonalARIMAConfig{Order: [3]int{1, 1, 0}, SeasonalOrder: [3]int{0, 1, 1}, Period: 7},
			[]string{"intercept", "ar.L1", "ma.S.L7"}, false,
		},
	}

	td := generateDailySeries(100)
	for name, tc := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := Train(td, tc.cfg, nil)
			require.NoError(t, err)

			weights := f.Weights()
			for _, label := range tc.labels {
				_, exists := weights[label]
				assert.True(t, exists, label)
			}
			if tc.equation {
				assert.Contains(t, f.Equation(), "y ~ ")
				assert.Greater(t, len(weights), len(tc.labels))
			} else {
				assert.Empty(t, f.Equation())
			}

			// callers get a copy
			weights["intercept"] = math.NaN()
			assert.False(t, math.IsNaN(f.Weights()["intercept"]))
		})
	}
}

func TestTrainLogsAdditiveModel(t *testing.T) {
	std := logrus.StandardLogger()
	level, out := std.GetLevel(), std.Out
	defer func() {
		std.SetLevel(level)
		std.SetOutput(out)
	}()

	var buf bytes.Buffer
	std.SetOutput(&buf)
	std.SetLevel(logrus.DebugLevel)

	_, err := Train(generateDailySeries(100), AdditiveDecompositionConfig{}, nil)
	require.NoError(t, err)

	logged := buf.String()
	assert.Contains(t, logged, "fit additive model")
	assert.Contains(t, logged, "model=series")
	assert.Contains(t, logged, "Weights:")
	assert.Contains(t, logged, "Training Window:")
}

func TestTrainErrors(t *testing.T) {
	td := generateDailySeries(30)

	_, err := Train(nil, GradientBoostedTreeConfig{}, nil)
	assert.ErrorIs(t, err, timedataset.ErrNoTrainingData)

	_, err = Train(td, nil, nil)
	assert.ErrorIs(t, err, ErrNilModelConfig)

	// 30 points cannot support a weekly seasonal difference of this order
	_, err = Train(td, SeasonalARIMAConfig{Order: [3]int{1, 1, 1}, SeasonalOrder: [3]int{1, 1, 1}, Period: 7}, nil)
	assert.Error(t, err)

	f, err := Train(td, GradientBoostedTreeConfig{}, nil)
	require.NoError(t, err)
	_, err = f.Forecast(td.T[:1])
	assert.Error(t, err)
}

func TestInferPeriod(t *testing.T) {
	testData := map[string]struct {
		freq     time.Duration
		expected int
	}{
		"minutely":  {time.Minute, 60},
		"hourly":    {time.Hour, 24},
		"daily":     {24 * time.Hour, 7},
		"weekly":    {7 * 24 * time.Hour, 52},
		"monthly":   {31 * 24 * time.Hour, 12},
		"february":  {28 * 24 * time.Hour, 12},
		"quarterly": {92 * 24 * time.Hour, 4},
		"secondly":  {time.Second, 1},
		"5 minutes": {5 * time.Minute, 1},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, InferPeriod(td.freq))
		})
	}
}
