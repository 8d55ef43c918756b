// Package forecast implements the additive decomposition model. A series is decomposed into an
// intercept, linear growth with changepoints, fourier seasonality and event jumps fitted with a
// lasso regression, while a second model over the rolling residual spread gives the uncertainty.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/forecastlab/feature"
	"github.com/aouyang1/forecastlab/models"
	"github.com/aouyang1/forecastlab/stats"
	"github.com/aouyang1/forecastlab/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrUninitializedForecast    = errors.New("uninitialized forecast")
	ErrInsufficientTrainingData = errors.New("insufficient training data after removing Nans")
	ErrNoModelCoefficients      = errors.New("no model coefficients from fit")
	ErrUntrainedForecast        = errors.New("forecast has not been trained yet")
)

// Forecast represents a single linear forecast model of a time series. This is a linear model
// using coordinate descent to calculate the weights.
type Forecast struct {
	opt    *Options
	scores *stats.Scores

	spec    featureSpec
	fLabels *feature.Labels

	residual []float64

	coef      []float64
	intercept float64
	trained   bool
}

// New creates a new forecast instance with the given options. If none are provided, a default
// is used
func New(opt *Options) (*Forecast, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if opt.Regularization < 0 {
		return nil, models.ErrNegativeLambda
	}
	return &Forecast{opt: opt}, nil
}

// Fit takes the input training data and fits a forecast model for possible changepoints,
// seasonal components, events and intercept. NaN observations are ignored.
func (f *Forecast) Fit(t []time.Time, y []float64) error {
	if f == nil {
		return ErrUninitializedForecast
	}

	trainingData, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return err
	}
	valid := trainingData.DropNan()
	if valid.Len() <= 1 {
		return ErrInsufficientTrainingData
	}

	trainStart := valid.T[0]
	trainEnd := valid.T[valid.Len()-1]
	freq, err := timedataset.TimeSlice(valid.T).EstimateFreq()
	if err != nil {
		return fmt.Errorf("unable to estimate training frequency, %w", err)
	}

	f.spec = featureSpec{
		growth:       f.opt.GrowthType,
		trainStart:   trainStart,
		trainEnd:     trainEnd,
		changepoints: f.opt.ChangepointOptions.generateChangepoints(trainStart, trainEnd),
		seasonality:  f.opt.SeasonalityOptions.resolve(freq, trainEnd.Sub(trainStart)),
		events:       f.opt.EventOptions,
	}

	x := f.spec.generate(valid.T)
	x.RemoveZeroOnlyFeatures()
	f.fLabels = x.Labels()

	// fit on a unit scale so the regularization is independent of the magnitude of the series
	scale := stat.PopStdDev(valid.Y, nil)
	if scale == 0 || math.IsNaN(scale) {
		scale = 1.0
	}
	yScaled := make([]float64, valid.Len())
	floats.ScaleTo(yScaled, 1/scale, valid.Y)

	if x.Len() == 0 {
		f.intercept = stat.Mean(valid.Y, nil)
		f.coef = nil
	} else {
		lassoOpt := models.NewDefaultLassoOptions()
		lassoOpt.Lambda = f.opt.Regularization
		if f.opt.Iterations > 0 {
			lassoOpt.Iterations = f.opt.Iterations
		}
		if f.opt.Tolerance > 0 {
			lassoOpt.Tolerance = f.opt.Tolerance
		}
		reg, err := models.NewLassoRegression(lassoOpt)
		if err != nil {
			return fmt.Errorf("unable to initialize lasso regression, %w", err)
		}
		if err := reg.Fit(x.Matrix(false), mat.NewDense(len(yScaled), 1, yScaled)); err != nil {
			return fmt.Errorf("unable to fit lasso regression, %w", err)
		}
		f.intercept = reg.Intercept() * scale
		f.coef = reg.Coef()
		floats.Scale(scale, f.coef)
	}
	f.trained = true

	// use input training to include NaNs
	predicted, _, err := f.Predict(trainingData.T)
	if err != nil {
		return err
	}

	scores, err := stats.NewScores(predicted, trainingData.Y)
	if err != nil {
		return err
	}
	f.scores = scores

	residual := make([]float64, len(trainingData.T))
	floats.SubTo(residual, trainingData.Y, predicted)
	f.residual = residual

	return nil
}

// Predict takes a slice of times in any order and produces the predicted value for those
// times given a pre-trained model.
func (f *Forecast) Predict(t []time.Time) ([]float64, Components, error) {
	if f == nil {
		return nil, Components{}, ErrUninitializedForecast
	}
	if !f.trained {
		return nil, Components{}, ErrUntrainedForecast
	}

	x := f.spec.generate(t)

	comp := Components{
		Trend:       f.runInference(x, len(t), true, feature.FeatureTypeGrowth, feature.FeatureTypeChangepoint),
		Seasonality: f.runInference(x, len(t), false, feature.FeatureTypeSeasonality),
		Event:       f.runInference(x, len(t), false, feature.FeatureTypeEvent),
	}

	res := make([]float64, len(t))
	floats.Add(res, comp.Trend)
	floats.Add(res, comp.Seasonality)
	floats.Add(res, comp.Event)
	return res, comp, nil
}

// runInference sums the weighted features of the given types. Features unseen at training time
// carry no weight.
func (f *Forecast) runInference(x *feature.Set, n int, withIntercept bool, types ...feature.FeatureType) []float64 {
	res := make([]float64, n)
	if withIntercept {
		floats.AddConst(f.intercept, res)
	}

	sub := x.Filter(types...)
	for _, label := range sub.Labels().Labels() {
		wIdx, exists := f.fLabels.Index(label)
		if !exists {
			continue
		}
		vals, _ := sub.Get(label)
		floats.AddScaled(res, f.coef[wIdx], vals)
	}
	return res
}

// FeatureLabels returns the slice of feature labels in the order of the coefficients
func (f *Forecast) FeatureLabels() []feature.Feature {
	if f == nil {
		return nil
	}
	return f.fLabels.Labels()
}

// Coefficients returns a forecast model map of coefficients keyed by the string
// representation of each feature label
func (f *Forecast) Coefficients() (map[string]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}

	labels := f.fLabels.Labels()
	if len(labels) == 0 || len(f.coef) == 0 {
		return nil, ErrNoModelCoefficients
	}
	coef := make(map[string]float64)
	for i := 0; i < len(f.coef); i++ {
		coef[labels[i].String()] = f.coef[i]
	}
	return coef, nil
}

// Intercept returns the intercept of the forecast model
func (f *Forecast) Intercept() float64 {
	if f == nil {
		return 0
	}
	return f.intercept
}

// TrainEndTime returns the last observed time used in training
func (f *Forecast) TrainEndTime() time.Time {
	if f == nil {
		return time.Time{}
	}
	return f.spec.trainEnd
}

// Model returns the serializeable format of the forecast model composing of the
// forecast options, intercept, coefficients with their feature labels, and the
// model fit scores
func (f *Forecast) Model() (Model, error) {
	if f == nil {
		return Model{}, ErrUninitializedForecast
	}
	if !f.trained {
		return Model{}, ErrUntrainedForecast
	}

	labels := f.fLabels.Labels()
	fws := make([]FeatureWeight, 0, len(f.coef))
	for i, c := range f.coef {
		fws = append(fws, NewFeatureWeight(labels[i], c))
	}
	return Model{
		TrainStartTime: f.spec.trainStart,
		TrainEndTime:   f.spec.trainEnd,
		Options:        f.opt,
		Scores:         f.scores,
		Weights: Weights{
			Intercept: f.intercept,
			Coef:      fws,
		},
	}, nil
}

// ModelEq returns a string representation of the model linear equation in the format of
// y ~ b + m1x1 + m2x2 + ...
func (f *Forecast) ModelEq() (string, error) {
	if f == nil {
		return "", ErrUninitializedForecast
	}

	coef, err := f.Coefficients()
	if err != nil {
		return "", err
	}

	eq := fmt.Sprintf("y ~ %.2f", f.Intercept())
	for _, label := range f.fLabels.Labels() {
		w := coef[label.String()]
		if w == 0 {
			continue
		}
		eq += fmt.Sprintf("+%.2f*%s", w, label)
	}
	return eq, nil
}

// Scores returns the fit scores for evaluating how well the resulting model
// fit the training data
func (f *Forecast) Scores() stats.Scores {
	if f == nil || f.scores == nil {
		return stats.Scores{}
	}
	return *f.scores
}

// Residuals returns a slice of values representing the difference between the
// training data and the fit data
func (f *Forecast) Residuals() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}
