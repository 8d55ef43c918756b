package forecast

import (
	"bytes"
	"testing"
	"time"

	"github.com/aouyang1/forecastlab/feature"
	"github.com/aouyang1/forecastlab/stats"
	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateDailySeries(n int) ([]time.Time, []float64) {
	t := timedataset.GenerateTFrom(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), n, 24*time.Hour)
	y := timedataset.GenerateConstY(n, 10).
		Add(timedataset.GenerateTrendY(n, 0.05)).
		Add(timedataset.GenerateWaveY(t, 2.0, 7*86400, 1, 0)).
		Add(timedataset.GenerateNoise(n, 0.1, 1))
	return t, y
}

func TestForecastFit(t *testing.T) {
	tSeries, y := generateDailySeries(200)

	f, err := New(nil)
	require.NoError(t, err)

	_, _, err = f.Predict(tSeries)
	assert.ErrorIs(t, err, ErrUntrainedForecast)

	require.NoError(t, f.Fit(tSeries[:180], y[:180]))

	scores := f.Scores()
	assert.Greater(t, scores.R2, 0.9)

	pred, comp, err := f.Predict(tSeries[180:])
	require.NoError(t, err)
	require.Len(t, pred, 20)
	require.Len(t, comp.Trend, 20)

	mae, err := stats.MAE(pred, y[180:])
	require.NoError(t, err)
	assert.Less(t, mae, 1.0)

	coef, err := f.Coefficients()
	require.NoError(t, err)
	_, exists := coef[feature.NewSeasonality(LabelSeasWeekly, feature.FourierCompSin, 1).String()]
	assert.True(t, exists)

	// daily seasonality cannot be resolved from daily samples
	_, exists = coef[feature.NewSeasonality(LabelSeasDaily, feature.FourierCompSin, 1).String()]
	assert.False(t, exists)

	eq, err := f.ModelEq()
	require.NoError(t, err)
	assert.Contains(t, eq, "y ~ ")

	assert.Equal(t, tSeries[179], f.TrainEndTime())
	assert.Len(t, f.Residuals(), 180)
}

func TestForecastFitErrors(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	err = f.Fit(nil, nil)
	assert.ErrorIs(t, err, timedataset.ErrNoTrainingData)

	err = f.Fit([]time.Time{time.Unix(0, 0)}, []float64{1})
	assert.ErrorIs(t, err, ErrInsufficientTrainingData)

	_, err = New(&Options{Regularization: -1})
	assert.Error(t, err)

	var nilForecast *Forecast
	assert.ErrorIs(t, nilForecast.Fit(nil, nil), ErrUninitializedForecast)
}

func TestModelTablePrint(t *testing.T) {
	tSeries, y := generateDailySeries(60)
	f, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, f.Fit(tSeries, y))

	m, err := f.Model()
	require.NoError(t, err)
	assert.Equal(t, tSeries[0], m.TrainStartTime)
	assert.Equal(t, len(f.FeatureLabels()), len(m.Weights.Coef))

	var buf bytes.Buffer
	require.NoError(t, m.TablePrint(&buf, "", "  "))
	out := buf.String()
	assert.Contains(t, out, "Forecast:")
	assert.Contains(t, out, "Weights:")
	assert.Contains(t, out, "seasonality")
}

func TestResolveSeasonality(t *testing.T) {
	testData := map[string]struct {
		freq     time.Duration
		window   time.Duration
		expected []SeasonalityConfig
	}{
		"hourly over a month": {
			freq:   time.Hour,
			window: 30 * 24 * time.Hour,
			expected: []SeasonalityConfig{
				NewSeasonalityConfig(LabelSeasDaily, 24*time.Hour, DefaultDailyOrders),
				NewSeasonalityConfig(LabelSeasWeekly, 7*24*time.Hour, DefaultWeeklyOrders),
			},
		},
		"daily over two years": {
			freq:   24 * time.Hour,
			window: 730 * 24 * time.Hour,
			expected: []SeasonalityConfig{
				NewSeasonalityConfig(LabelSeasWeekly, 7*24*time.Hour, 3),
				NewSeasonalityConfig(LabelSeasYearly, 8766*time.Hour, DefaultYearlyOrders),
			},
		},
		"weekly samples": {
			freq:     7 * 24 * time.Hour,
			window:   365 * 24 * time.Hour,
			expected: nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := NewDefaultSeasonalityOptions().resolve(td.freq, td.window)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestGenerateChangepoints(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(100 * 24 * time.Hour)

	opt := ChangepointOptions{
		Changepoints: []Changepoint{
			NewChangepoint("inside", start.Add(50*24*time.Hour)),
			NewChangepoint("outside", end.Add(time.Hour)),
		},
		Auto:                true,
		AutoNumChangepoints: 3,
		AutoRange:           0.8,
	}
	chpts := opt.generateChangepoints(start, end)
	require.Len(t, chpts, 4)
	assert.Equal(t, "inside", chpts[0].Name)
	assert.Equal(t, start.Add(20*24*time.Hour), chpts[1].T)
	assert.Equal(t, start.Add(60*24*time.Hour), chpts[3].T)

	opt.Auto = false
	assert.Len(t, opt.generateChangepoints(start, end), 1)
}

func TestHolidayEvents(t *testing.T) {
	events := Holiday(USHolidays[len(USHolidays)-1], 2023, 2024, time.UTC)
	require.Len(t, events, 2)
	assert.Equal(t, "Christmas_Day", events[0].Name)
	assert.Equal(t, time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC), events[0].Start)
	assert.Equal(t, time.Date(2023, 12, 26, 0, 0, 0, 0, time.UTC), events[0].End)
	assert.True(t, events[0].Contains(time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC)))
	assert.False(t, events[0].Contains(time.Date(2023, 12, 26, 0, 0, 0, 0, time.UTC)))
}

func TestEventValid(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	testData := map[string]struct {
		ev  Event
		err error
	}{
		"valid":           {NewEvent("launch", start, start.Add(time.Hour)), nil},
		"unset":           {NewEvent("launch", time.Time{}, start), ErrUnsetTime},
		"start after end": {NewEvent("launch", start.Add(time.Hour), start), ErrStartAfterEnd},
		"no name":         {NewEvent("", start, start.Add(time.Hour)), ErrNoEventName},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.ev.Valid()
			if td.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestEventFeatures(t *testing.T) {
	tSeries := timedataset.GenerateTFrom(time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC), 10, 24*time.Hour)
	spec := featureSpec{
		trainStart: tSeries[0],
		trainEnd:   tSeries[len(tSeries)-1],
		events: EventOptions{
			Holidays: true,
			Events: []Event{
				NewEvent("promo", tSeries[1], tSeries[3]),
				NewEvent("", tSeries[1], tSeries[3]),
			},
		},
	}
	x := spec.generate(tSeries)

	promo, exists := x.Get(feature.NewEvent("promo"))
	require.True(t, exists)
	assert.Equal(t, []float64{0, 1, 1, 0, 0, 0, 0, 0, 0, 0}, promo)

	xmas, exists := x.Get(feature.NewEvent("Christmas_Day"))
	require.True(t, exists)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 1, 0, 0, 0, 0}, xmas)
}
