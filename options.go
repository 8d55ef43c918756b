package forecastlab

import (
	"github.com/aouyang1/forecastlab/forecast"
	"github.com/aouyang1/forecastlab/gbt"
	"github.com/aouyang1/forecastlab/sarima"
)

// SARIMAOptions tunes the conditional sum of squares optimizer. The orders come from the
// SeasonalARIMAConfig.
type SARIMAOptions struct {
	MaxIterations int     `json:"max_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	Momentum      float64 `json:"momentum"`
	Decay         float64 `json:"decay"`
}

func NewDefaultSARIMAOptions() *SARIMAOptions {
	return &SARIMAOptions{
		MaxIterations: sarima.DefaultMaxIterations,
		LearningRate:  sarima.DefaultLearningRate,
		Momentum:      sarima.DefaultMomentum,
		Decay:         sarima.DefaultDecay,
	}
}

// Options holds the engine settings of every model kind. Train only reads the settings of the
// kind it is asked to fit.
type Options struct {
	GBT      *gbt.Options              `json:"gbt"`
	Additive *forecast.AdditiveOptions `json:"additive"`
	SARIMA   *SARIMAOptions            `json:"sarima"`
}

func NewDefaultOptions() *Options {
	return &Options{
		GBT:      gbt.NewDefaultOptions(),
		Additive: forecast.NewDefaultAdditiveOptions(),
		SARIMA:   NewDefaultSARIMAOptions(),
	}
}

func (o *Options) sarimaOptions(cfg SeasonalARIMAConfig, period int) *sarima.Options {
	opt := sarima.NewDefaultOptions(cfg.Order, cfg.SeasonalOrder, period)
	if o.SARIMA != nil {
		opt.MaxIterations = o.SARIMA.MaxIterations
		opt.LearningRate = o.SARIMA.LearningRate
		opt.Momentum = o.SARIMA.Momentum
		opt.Decay = o.SARIMA.Decay
	}
	return opt
}
