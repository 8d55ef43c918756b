// Package forecastlab trains one of several forecasting model families on a univariate series,
// evaluates it against a held out chronological split and renders the result.
package forecastlab

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/forecastlab/forecast"
	"github.com/aouyang1/forecastlab/gbt"
	"github.com/aouyang1/forecastlab/sarima"
	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/sirupsen/logrus"
)

// predictor is the common surface of the trained models
type predictor interface {
	Predict(t []time.Time) ([]float64, []float64, error)
}

type additivePredictor struct {
	*forecast.Additive
}

func (a additivePredictor) Predict(t []time.Time) ([]float64, []float64, error) {
	res, err := a.Additive.Predict(t)
	if err != nil {
		return nil, nil, err
	}
	return res.Forecast, res.Stderr, nil
}

// Forecaster is a trained model of any kind
type Forecaster struct {
	kind  ModelKind
	model predictor

	weights  map[string]float64
	equation string
	trainEnd time.Time
}

// Train fits the model selected by cfg on the full dataset. A nil opt uses the defaults.
func Train(td *timedataset.TimeDataset, cfg ModelConfig, opt *Options) (*Forecaster, error) {
	if td.Len() == 0 {
		return nil, timedataset.ErrNoTrainingData
	}
	if cfg == nil {
		return nil, ErrNilModelConfig
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}

	var (
		model    predictor
		weights  map[string]float64
		equation string
	)
	switch c := cfg.(type) {
	case GradientBoostedTreeConfig:
		f, err := gbt.New(opt.GBT)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize gradient boosted trees, %w", err)
		}
		if err := f.Fit(td.T, td.Y); err != nil {
			return nil, fmt.Errorf("unable to fit gradient boosted trees, %w", err)
		}
		model = f
		weights = f.Weights()
	case AdditiveDecompositionConfig:
		a, err := forecast.NewAdditive(opt.Additive)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize additive model, %w", err)
		}
		if err := a.Fit(td.T, td.Y); err != nil {
			return nil, fmt.Errorf("unable to fit additive model, %w", err)
		}
		model = additivePredictor{a}
		weights, equation = describeAdditive(a)
	case SeasonalARIMAConfig:
		period := c.Period
		if period == 0 && hasSeasonal(c) {
			freq, err := timedataset.TimeSlice(td.T).EstimateFreq()
			if err != nil {
				return nil, fmt.Errorf("unable to infer season length, %w", err)
			}
			period = InferPeriod(freq)
			logrus.WithFields(logrus.Fields{
				"freq":   freq.String(),
				"period": period,
			}).Debug("inferred sarima season length")
		}
		m, err := sarima.New(opt.sarimaOptions(c, period))
		if err != nil {
			return nil, fmt.Errorf("unable to initialize sarima, %w", err)
		}
		if err := m.Fit(td.T, td.Y); err != nil {
			return nil, fmt.Errorf("unable to fit sarima, %w", err)
		}
		model = m
		weights = m.Weights()
	default:
		return nil, fmt.Errorf("%T, %w", cfg, ErrUnknownModelKind)
	}

	return &Forecaster{
		kind:     cfg.Kind(),
		model:    model,
		weights:  weights,
		equation: equation,
		trainEnd: td.T[td.Len()-1],
	}, nil
}

// describeAdditive returns the series model weights and equation and logs both fitted models at
// debug level. A model without coefficients is described as empty.
func describeAdditive(a *forecast.Additive) (map[string]float64, string) {
	series := a.SeriesForecast()
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logForecastModel("series", series)
		logForecastModel("residual", a.ResidualForecast())
	}

	weights, err := series.Coefficients()
	if err != nil {
		logrus.WithError(err).Debug("additive series model has no coefficients")
		return nil, ""
	}
	weights["intercept"] = series.Intercept()

	eq, err := series.ModelEq()
	if err != nil {
		return weights, ""
	}
	return weights, eq
}

func logForecastModel(name string, f *forecast.Forecast) {
	m, err := f.Model()
	if err != nil {
		logrus.WithError(err).WithField("model", name).Debug("unable to describe additive model")
		return
	}
	var buf bytes.Buffer
	if err := m.TablePrint(&buf, "", "  "); err != nil {
		logrus.WithError(err).WithField("model", name).Debug("unable to print additive model")
		return
	}
	eq, _ := f.ModelEq()
	logrus.WithFields(logrus.Fields{
		"model":    name,
		"equation": eq,
		"table":    buf.String(),
	}).Debug("fit additive model")
}

func hasSeasonal(c SeasonalARIMAConfig) bool {
	return c.SeasonalOrder[0] > 0 || c.SeasonalOrder[1] > 0 || c.SeasonalOrder[2] > 0
}

// Forecast predicts a value for exactly the given time points
func (f *Forecaster) Forecast(t []time.Time) (*Results, error) {
	values, stderr, err := f.model.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast %s, %w", f.kind.Label(), err)
	}

	tRes := make([]time.Time, len(t))
	copy(tRes, t)
	return &Results{
		T:        tRes,
		Forecast: values,
		Stderr:   stderr,
	}, nil
}

// Weights returns the fitted parameters keyed by name. The additive model reports its feature
// coefficients, SARIMA its lag coefficients and gradient boosted trees the removed trend.
func (f *Forecaster) Weights() map[string]float64 {
	res := make(map[string]float64, len(f.weights))
	for k, v := range f.weights {
		res[k] = v
	}
	return res
}

// Equation returns the linear equation of the additive model or an empty string for other kinds
func (f *Forecaster) Equation() string {
	return f.equation
}

// Kind returns the model kind that was trained
func (f *Forecaster) Kind() ModelKind {
	return f.kind
}

// TrainEndTime returns the last training time
func (f *Forecaster) TrainEndTime() time.Time {
	return f.trainEnd
}

const (
	month   = 30 * 24 * time.Hour
	quarter = 91 * 24 * time.Hour
)

// InferPeriod maps a sampling frequency onto the number of samples in its natural season
func InferPeriod(freq time.Duration) int {
	switch {
	case freq == time.Minute:
		return 60
	case freq == time.Hour:
		return 24
	case freq == 24*time.Hour:
		return 7
	case freq == 7*24*time.Hour:
		return 52
	case within(freq, month, 3*24*time.Hour):
		return 12
	case within(freq, quarter, 3*24*time.Hour):
		return 4
	default:
		return 1
	}
}

func within(d, target, tol time.Duration) bool {
	return math.Abs(float64(d-target)) <= float64(tol)
}
