package forecastlab

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/forecastlab/stats"
	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyTestSplit     = errors.New("test split has no observations")
	ErrForecastMisaligned = errors.New("forecast time points do not match the test split")
)

// Report is the outcome of one evaluated run
type Report struct {
	Kind    ModelKind                `json:"kind"`
	Config  ModelConfig              `json:"config"`
	Split   *timedataset.SplitResult `json:"split"`
	Results *Results                 `json:"results"`
	MAE     float64                  `json:"mae"`
	Elapsed time.Duration            `json:"elapsed"`

	Weights  map[string]float64 `json:"weights,omitempty"`
	Equation string             `json:"equation,omitempty"`
}

// MAEText formats the mean absolute error with two decimals
func (r *Report) MAEText() string {
	return fmt.Sprintf("MAE: %.2f", r.MAE)
}

// Pipeline runs the split, fit, forecast and evaluation with a fixed set of engine options
type Pipeline struct {
	Options *Options
}

func NewPipeline(opt *Options) *Pipeline {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	return &Pipeline{Options: opt}
}

// Run evaluates cfg on td using the default 80/20 chronological split
func (p *Pipeline) Run(td *timedataset.TimeDataset, cfg ModelConfig) (*Report, error) {
	return Run(td, cfg, p.Options)
}

// Run trains cfg on the first 80% of td, forecasts the remaining 20% and scores the forecast
// with the mean absolute error
func Run(td *timedataset.TimeDataset, cfg ModelConfig, opt *Options) (*Report, error) {
	if cfg == nil {
		return nil, ErrNilModelConfig
	}
	start := time.Now()

	split, err := timedataset.Split(td, timedataset.DefaultTrainFraction)
	if err != nil {
		return nil, fmt.Errorf("unable to split dataset, %w", err)
	}
	if split.Test.Len() == 0 {
		return nil, fmt.Errorf("%d observations, %w", td.Len(), ErrEmptyTestSplit)
	}

	f, err := Train(split.Train, cfg, opt)
	if err != nil {
		return nil, err
	}

	res, err := f.Forecast(split.Test.T)
	if err != nil {
		return nil, err
	}
	if !aligned(res, split.Test.T) {
		return nil, fmt.Errorf(
			"%d forecasts for %d test points, %w",
			len(res.Forecast), split.Test.Len(), ErrForecastMisaligned,
		)
	}

	mae, err := stats.MAE(res.Forecast, split.Test.Y)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}

	r := &Report{
		Kind:    cfg.Kind(),
		Config:  cfg,
		Split:   split,
		Results: res,
		MAE:     mae,
		Elapsed: time.Since(start),

		Weights:  f.Weights(),
		Equation: f.Equation(),
	}
	logrus.WithFields(logrus.Fields{
		"kind":    r.Kind,
		"train":   split.Train.Len(),
		"test":    split.Test.Len(),
		"mae":     r.MAE,
		"elapsed": r.Elapsed.String(),
	}).Info("evaluated forecast")
	return r, nil
}

func aligned(res *Results, t []time.Time) bool {
	if res.Len() != len(t) || len(res.Forecast) != len(t) {
		return false
	}
	for i := range t {
		if !res.T[i].Equal(t[i]) {
			return false
		}
	}
	return true
}
