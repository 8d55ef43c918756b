// Package gbt forecasts a univariate series with gradient boosted regression trees. The series
// is detrended with a least squares line, the trees learn the detrended value from its own lags
// and calendar attributes, and forecasts are produced recursively one step at a time.
package gbt

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/forecastlab/feature"
	"github.com/aouyang1/forecastlab/models"
	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	MaxAutoLags       = 14
	AutoLagsDivisor   = 4
	MinTrainingPoints = 3
)

var (
	ErrInsufficientTrainingData = errors.New("insufficient training data for lags")
	ErrNegativeLags             = errors.New("lags must be non-negative")
	ErrUntrainedForecaster      = errors.New("forecaster has not been trained yet")
	ErrTimeNotAfterTraining     = errors.New("forecast time is not after the end of training")
)

// Options configures the gbt forecaster. A zero Lags picks min(14, n/4) lags, at least one.
type Options struct {
	Lags          int           `json:"lags"`
	CalendarNames []string      `json:"calendar_features"`
	BoostOptions  *BoostOptions `json:"boost_options"`
}

func NewDefaultOptions() *Options {
	return &Options{
		CalendarNames: []string{
			feature.TimeHourOfDay,
			feature.TimeDayOfWeek,
			feature.TimeDayOfMonth,
			feature.TimeMonth,
		},
		BoostOptions: NewDefaultBoostOptions(),
	}
}

// Forecaster is a trained gradient boosted tree forecaster
type Forecaster struct {
	opt *Options

	labels []feature.Feature
	reg    *Regressor

	// linear trend over the step index of the training data
	trendIntercept float64
	trendSlope     float64

	freq     time.Duration
	trainEnd time.Time
	n        int
	history  []float64
	residStd float64
}

func New(opt *Options) (*Forecaster, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if opt.Lags < 0 {
		return nil, ErrNegativeLags
	}
	boostOpt, err := opt.BoostOptions.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid boost options, %w", err)
	}
	resolved := *opt
	resolved.BoostOptions = boostOpt
	return &Forecaster{opt: &resolved}, nil
}

// Lags returns the number of lags used for the given training size
func (f *Forecaster) Lags(n int) int {
	if f.opt.Lags > 0 {
		return f.opt.Lags
	}
	lags := n / AutoLagsDivisor
	if lags > MaxAutoLags {
		lags = MaxAutoLags
	}
	if lags < 1 {
		lags = 1
	}
	return lags
}

// Fit trains the forecaster on the series. Missing values are filled with the previous
// observation.
func (f *Forecaster) Fit(t []time.Time, y []float64) error {
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return err
	}
	n := td.Len()
	lags := f.Lags(n)
	if n < MinTrainingPoints || n-lags < 2 {
		return fmt.Errorf("%d points for %d lags, %w", n, lags, ErrInsufficientTrainingData)
	}

	freq, err := timedataset.TimeSlice(td.T).EstimateFreq()
	if err != nil {
		return fmt.Errorf("unable to estimate training frequency, %w", err)
	}

	yFilled, err := timedataset.FillForward(td.Y)
	if err != nil {
		return fmt.Errorf("no observed values, %w", ErrInsufficientTrainingData)
	}

	if err := f.fitTrend(yFilled); err != nil {
		return err
	}
	detrended := make([]float64, n)
	for i := 0; i < n; i++ {
		detrended[i] = yFilled[i] - f.trend(i)
	}

	f.labels = f.featureLabels(lags)
	x := make([][]float64, 0, n-lags)
	target := make([]float64, 0, n-lags)
	for i := lags; i < n; i++ {
		x = append(x, f.row(detrended[:i], td.T[i]))
		target = append(target, detrended[i])
	}

	reg, err := NewRegressor(f.opt.BoostOptions)
	if err != nil {
		return err
	}
	if err := reg.Fit(x, target); err != nil {
		return fmt.Errorf("unable to fit boosted trees, %w", err)
	}
	f.reg = reg

	fitResid := make([]float64, len(target))
	for i, row := range x {
		pred, err := reg.Predict(row)
		if err != nil {
			return err
		}
		fitResid[i] = target[i] - pred
	}
	f.residStd = stat.PopStdDev(fitResid, nil)

	f.freq = freq
	f.trainEnd = td.T[n-1]
	f.n = n
	f.history = detrended

	logrus.WithFields(logrus.Fields{
		"points": n,
		"lags":   lags,
		"trees":  reg.NumTrees(),
		"depth":  reg.Depth(),
		"freq":   freq.String(),
	}).Debug("fit gradient boosted trees")
	return nil
}

func (f *Forecaster) fitTrend(y []float64) error {
	n := len(y)
	steps := make([]float64, n)
	for i := range steps {
		steps[i] = float64(i)
	}
	ols, err := models.NewOLSRegression(nil)
	if err != nil {
		return err
	}
	if err := ols.Fit(mat.NewDense(n, 1, steps), mat.NewDense(n, 1, y)); err != nil {
		return fmt.Errorf("unable to fit trend, %w", err)
	}
	f.trendIntercept = ols.Intercept()
	f.trendSlope = ols.Coef()[0]
	return nil
}

func (f *Forecaster) trend(step int) float64 {
	return f.trendIntercept + f.trendSlope*float64(step)
}

func (f *Forecaster) featureLabels(lags int) []feature.Feature {
	set := feature.NewSet()
	for l := 1; l <= lags; l++ {
		set.Set(feature.NewLag(l), nil)
	}
	for _, name := range f.opt.CalendarNames {
		set.Set(feature.NewTime(name), nil)
	}
	return set.Labels().Labels()
}

// row builds the feature row for the point following history at time tPnt
func (f *Forecaster) row(history []float64, tPnt time.Time) []float64 {
	row := make([]float64, len(f.labels))
	for j, label := range f.labels {
		switch feat := label.(type) {
		case *feature.Lag:
			row[j] = history[len(history)-feat.Order]
		case *feature.Time:
			row[j] = feat.Value(tPnt)
		}
	}
	return row
}

// Forecast predicts the given number of steps past the end of training. The standard error
// grows with the square root of the horizon.
func (f *Forecaster) Forecast(steps int) ([]float64, []float64, error) {
	if f.reg == nil {
		return nil, nil, ErrUntrainedForecaster
	}

	history := make([]float64, len(f.history), len(f.history)+steps)
	copy(history, f.history)

	values := make([]float64, steps)
	stderr := make([]float64, steps)
	for s := 1; s <= steps; s++ {
		tPnt := f.trainEnd.Add(time.Duration(s) * f.freq)
		pred, err := f.reg.Predict(f.row(history, tPnt))
		if err != nil {
			return nil, nil, err
		}
		history = append(history, pred)
		values[s-1] = pred + f.trend(f.n-1+s)
		stderr[s-1] = f.residStd * math.Sqrt(float64(s))
	}
	return values, stderr, nil
}

// Predict returns the forecast and standard error at each time point. Every point must lie
// after the end of training and is rounded to the nearest step of the training frequency.
func (f *Forecaster) Predict(t []time.Time) ([]float64, []float64, error) {
	if f.reg == nil {
		return nil, nil, ErrUntrainedForecaster
	}

	steps := timedataset.TimeSlice(t).StepsAfter(f.trainEnd, f.freq)
	maxStep := 0
	for i, s := range steps {
		if s < 1 {
			return nil, nil, fmt.Errorf("time %s, %w", t[i], ErrTimeNotAfterTraining)
		}
		if s > maxStep {
			maxStep = s
		}
	}

	values, stderr, err := f.Forecast(maxStep)
	if err != nil {
		return nil, nil, err
	}

	res := make([]float64, len(t))
	resStderr := make([]float64, len(t))
	for i, s := range steps {
		res[i] = values[s-1]
		resStderr[i] = stderr[s-1]
	}
	return res, resStderr, nil
}

// Weights returns the intercept and slope of the linear trend removed before boosting
func (f *Forecaster) Weights() map[string]float64 {
	return map[string]float64{
		"trend.intercept": f.trendIntercept,
		"trend.slope":     f.trendSlope,
	}
}

// TrainEndTime returns the last training time
func (f *Forecaster) TrainEndTime() time.Time {
	return f.trainEnd
}

// Freq returns the estimated sampling interval of the training data
func (f *Forecaster) Freq() time.Duration {
	return f.freq
}
