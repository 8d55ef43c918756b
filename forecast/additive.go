package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/forecastlab/stats"
	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrInsufficientResidual = errors.New("insufficient samples from residual after outlier removal")

const (
	DefaultResidualWindow   = 100
	DefaultResidualZscore   = 1.96
	MinResidualWindow       = 2
	MinResidualSize         = 2
	MinResidualWindowFactor = 4
)

// AdditiveOptions configures the series model, the residual spread model and outlier removal
type AdditiveOptions struct {
	SeriesOptions   *Options        `json:"series_options"`
	ResidualOptions *Options        `json:"residual_options"`
	OutlierOptions  *OutlierOptions `json:"outlier_options"`

	// ResidualWindow is the number of residual points used for each rolling standard deviation
	ResidualWindow int `json:"residual_window"`

	// ResidualZscore scales the standard error into the upper and lower bands
	ResidualZscore float64 `json:"residual_zscore"`
}

func NewDefaultAdditiveOptions() *AdditiveOptions {
	return &AdditiveOptions{
		SeriesOptions:   NewDefaultOptions(),
		ResidualOptions: NewDefaultResidualOptions(),
		OutlierOptions:  NewOutlierOptions(),
		ResidualWindow:  DefaultResidualWindow,
		ResidualZscore:  DefaultResidualZscore,
	}
}

// Results holds the forecast for each requested time point along with the standard error and
// the bands it implies
type Results struct {
	T                []time.Time `json:"time"`
	Forecast         []float64   `json:"forecast"`
	Stderr           []float64   `json:"stderr"`
	Upper            []float64   `json:"upper"`
	Lower            []float64   `json:"lower"`
	SeriesComponents Components  `json:"series_components"`
}

// Additive fits a forecast of the series and a forecast of the rolling residual spread
type Additive struct {
	opt *AdditiveOptions

	seriesForecast   *Forecast
	residualForecast *Forecast

	residual []float64
}

// NewAdditive creates a new instance of an additive model using the provided options. If no
// options are provided a default is used.
func NewAdditive(opt *AdditiveOptions) (*Additive, error) {
	if opt == nil {
		opt = NewDefaultAdditiveOptions()
	}

	seriesForecast, err := New(opt.SeriesOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast series, %w", err)
	}
	residualForecast, err := New(opt.ResidualOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast residual, %w", err)
	}
	return &Additive{
		opt:              opt,
		seriesForecast:   seriesForecast,
		residualForecast: residualForecast,
	}, nil
}

// Fit uses the input time dataset and fits the series and uncertainty models
func (a *Additive) Fit(t []time.Time, y []float64) error {
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}

	residual, err := a.fitSeriesWithOutliers(td.T, td.Y)
	if err != nil {
		return err
	}
	a.residual = residual

	if err := a.fitResidual(td.T, residual); err != nil {
		return err
	}
	return nil
}

func (a *Additive) fitSeriesWithOutliers(t []time.Time, y []float64) ([]float64, error) {
	// iterate to remove outliers
	numPasses := 0
	if a.opt.OutlierOptions != nil {
		numPasses = a.opt.OutlierOptions.NumPasses
	}

	var residual []float64
	for i := 0; i <= numPasses; i++ {
		if err := a.seriesForecast.Fit(t, y); err != nil {
			return nil, fmt.Errorf("unable to forecast series, %w", err)
		}
		residual = a.seriesForecast.Residuals()

		// break out if no outlier options provided or this was the last pass
		if a.opt.OutlierOptions == nil || i == numPasses {
			break
		}

		outlierIdxs := stats.DetectOutliers(
			residual,
			a.opt.OutlierOptions.LowerPercentile,
			a.opt.OutlierOptions.UpperPercentile,
			a.opt.OutlierOptions.TukeyFactor,
		)

		// no more outliers detected with outlier options so break early
		if len(outlierIdxs) == 0 {
			break
		}

		remaining := 0
		for _, v := range y {
			if !math.IsNaN(v) {
				remaining++
			}
		}
		if remaining-len(outlierIdxs) < MinResidualSize {
			logrus.WithFields(logrus.Fields{
				"outliers":  len(outlierIdxs),
				"remaining": remaining,
			}).Warn("skipping outlier removal that would leave too few observations")
			break
		}
		for _, idx := range outlierIdxs {
			y[idx] = math.NaN()
		}
	}
	return residual, nil
}

func (a *Additive) fitResidual(t []time.Time, residual []float64) error {
	validT := make([]time.Time, 0, len(residual))
	validRes := make([]float64, 0, len(residual))
	for i, r := range residual {
		if math.IsNaN(r) {
			continue
		}
		validT = append(validT, t[i])
		validRes = append(validRes, r)
	}
	if len(validRes) < MinResidualSize {
		return ErrInsufficientResidual
	}

	// compute rolling window standard deviation of residual for uncertainty bands. The window
	// is not necessarily a block of continuous time but could jump across outlier points.
	window := a.opt.ResidualWindow
	if len(validRes)/MinResidualWindowFactor < window {
		window = len(validRes) / MinResidualWindowFactor
	}
	if window < MinResidualWindow {
		window = MinResidualWindow
	}

	numWindows := len(validRes) - window + 1
	stddevSeries := make([]float64, numWindows)
	for i := 0; i < numWindows; i++ {
		stddevSeries[i] = stat.PopStdDev(validRes[i:i+window], nil)
	}

	// shifting by half the residual window since computing the residual series is similar to a
	// finite impulse response filtering having a group delay of window/2.
	start := window / 2
	residualT := validT[start : start+numWindows]

	if len(residualT) < MinResidualSize {
		// too short to model, fall back to a constant spread
		residualT = []time.Time{validT[0], validT[len(validT)-1]}
		_, sd := stat.PopMeanStdDev(validRes, nil)
		stddevSeries = []float64{sd, sd}
	}

	if err := a.residualForecast.Fit(residualT, stddevSeries); err != nil {
		return fmt.Errorf("unable to forecast residual, %w", err)
	}
	return nil
}

// Predict takes in any set of time samples and generates a forecast, standard error, upper and
// lower values per time point
func (a *Additive) Predict(t []time.Time) (*Results, error) {
	seriesRes, seriesComp, err := a.seriesForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict series forecasts, %w", err)
	}
	stderr, _, err := a.residualForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict residual forecasts, %w", err)
	}

	// cap residual predictions to be greater than or equal to 0
	for i := 0; i < len(stderr); i++ {
		if stderr[i] < 0.0 {
			stderr[i] = 0.0
		}
	}

	band := make([]float64, len(stderr))
	floats.ScaleTo(band, a.opt.ResidualZscore, stderr)

	upper := make([]float64, len(seriesRes))
	lower := make([]float64, len(seriesRes))
	floats.AddTo(upper, seriesRes, band)
	floats.SubTo(lower, seriesRes, band)

	return &Results{
		T:                t,
		Forecast:         seriesRes,
		Stderr:           stderr,
		Upper:            upper,
		Lower:            lower,
		SeriesComponents: seriesComp,
	}, nil
}

// Residuals returns the difference between the final series fit against the training data
func (a *Additive) Residuals() []float64 {
	res := make([]float64, len(a.residual))
	copy(res, a.residual)
	return res
}

// SeriesForecast returns the underlying forecast of the series
func (a *Additive) SeriesForecast() *Forecast {
	return a.seriesForecast
}

// ResidualForecast returns the underlying forecast of the residual spread
func (a *Additive) ResidualForecast() *Forecast {
	return a.residualForecast
}
