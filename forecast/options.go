package forecast

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/forecastlab/feature"
)

const (
	LabelSeasDaily  = "daily"
	LabelSeasWeekly = "weekly"
	LabelSeasYearly = "yearly"

	DefaultAutoNumChangepoints = 10
	DefaultChangepointRange    = 0.8
	DefaultRegularization      = 0.5

	DefaultDailyOrders  = 6
	DefaultWeeklyOrders = 3
	DefaultYearlyOrders = 10
)

// Options configures a single linear forecast fit by specifying growth, changepoints, seasonality
// orders, events and the regularization parameter where higher values removes more features
// that contribute the least to the fit.
type Options struct {
	GrowthType string `json:"growth_type"`

	ChangepointOptions ChangepointOptions `json:"changepoint_options"`
	SeasonalityOptions SeasonalityOptions `json:"seasonality_options"`
	EventOptions       EventOptions       `json:"event_options"`

	// Lasso related options
	Regularization float64 `json:"regularization"`
	Iterations     int     `json:"iterations"`
	Tolerance      float64 `json:"tolerance"`
}

// NewDefaultOptions returns linear growth with automatic changepoints, daily, weekly and yearly
// seasonality and no events
func NewDefaultOptions() *Options {
	return &Options{
		GrowthType:         feature.GrowthLinear,
		ChangepointOptions: NewDefaultChangepointOptions(),
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		Regularization:     DefaultRegularization,
	}
}

// NewDefaultResidualOptions returns the options used to model the spread of the residual. The
// spread only carries seasonality on top of a constant level.
func NewDefaultResidualOptions() *Options {
	return &Options{
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		Regularization:     DefaultRegularization,
	}
}

// Changepoint describes a point in time that will change the ongoing trend
type Changepoint struct {
	T    time.Time `json:"time"`
	Name string    `json:"name"`
}

func NewChangepoint(name string, t time.Time) Changepoint {
	return Changepoint{t, name}
}

// ChangepointOptions configures the changepoint fit to either use auto-detection
// by evenly placing N changepoints in the first portion of the training window or a set
// of known changepoints.
type ChangepointOptions struct {
	Changepoints        []Changepoint `json:"changepoints"`
	Auto                bool          `json:"auto"`
	AutoNumChangepoints int           `json:"auto_num_changepoints"`
	AutoRange           float64       `json:"auto_range"`
}

// NewDefaultChangepointOptions generates a set of default changepoint options
func NewDefaultChangepointOptions() ChangepointOptions {
	return ChangepointOptions{
		Auto:                true,
		AutoNumChangepoints: DefaultAutoNumChangepoints,
		AutoRange:           DefaultChangepointRange,
	}
}

// generateChangepoints returns the explicit changepoints within the training window plus the
// auto generated ones if enabled
func (c ChangepointOptions) generateChangepoints(start, end time.Time) []Changepoint {
	var chpts []Changepoint
	for _, chpt := range c.Changepoints {
		if chpt.T.After(start) && chpt.T.Before(end) {
			chpts = append(chpts, chpt)
		}
	}
	if !c.Auto {
		return chpts
	}

	n := c.AutoNumChangepoints
	if n <= 0 {
		n = DefaultAutoNumChangepoints
	}
	autoRange := c.AutoRange
	if autoRange <= 0 || autoRange > 1 {
		autoRange = DefaultChangepointRange
	}

	window := float64(end.Sub(start)) * autoRange
	for i := 1; i <= n; i++ {
		offset := time.Duration(window * float64(i) / float64(n+1))
		chpts = append(chpts, NewChangepoint(fmt.Sprintf("auto_%02d", i), start.Add(offset)))
	}
	return chpts
}

// SeasonalityConfig represents a single seasonality configuration to model. This will generate
// Fourier series of the specified period and number of orders. E.g. a period of 24*time.Hour
// with 3 orders will create 6 Fourier series of order 1, 2, 3 and for the sine/cosine components
// where order 1 will have a period of 1 day and order 2 will have a period of 12 hours.
type SeasonalityConfig struct {
	Name   string        `json:"name"`
	Orders int           `json:"orders"`
	Period time.Duration `json:"period"`
}

// NewSeasonalityConfig creates a new seasonality config given a name, period and orders
func NewSeasonalityConfig(name string, period time.Duration, orders int) SeasonalityConfig {
	if orders < 0 {
		orders = 0
	}
	return SeasonalityConfig{
		Name:   name,
		Orders: orders,
		Period: period,
	}
}

// Seasonality options configures the seasonality components to fit for
type SeasonalityOptions struct {
	SeasonalityConfigs []SeasonalityConfig `json:"seasonality_configs"`
}

// NewDefaultSeasonalityOptions generates a daily, weekly and yearly seasonality. Components
// that the sampling frequency or the training window cannot resolve are dropped at fit time.
func NewDefaultSeasonalityOptions() SeasonalityOptions {
	return SeasonalityOptions{
		SeasonalityConfigs: []SeasonalityConfig{
			NewSeasonalityConfig(LabelSeasDaily, 24*time.Hour, DefaultDailyOrders),
			NewSeasonalityConfig(LabelSeasWeekly, 7*24*time.Hour, DefaultWeeklyOrders),
			NewSeasonalityConfig(LabelSeasYearly, 8766*time.Hour, DefaultYearlyOrders),
		},
	}
}

// resolve keeps the seasonalities that can be estimated from data sampled at freq over the
// training window. Orders are capped so every component spans at least two samples per cycle.
func (s SeasonalityOptions) resolve(freq, window time.Duration) []SeasonalityConfig {
	var res []SeasonalityConfig
	for _, cfg := range s.SeasonalityConfigs {
		if cfg.Name == "" || cfg.Orders <= 0 || cfg.Period <= 0 {
			continue
		}
		if cfg.Period < 2*freq || cfg.Period > window {
			continue
		}
		maxOrders := int(cfg.Period / (2 * freq))
		if cfg.Orders > maxOrders {
			cfg.Orders = maxOrders
		}
		if cfg.Orders == 0 {
			continue
		}
		res = append(res, cfg)
	}
	return res
}

// OutlierOptions configures the passes to remove outliers from the residual before refitting
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes"`
	UpperPercentile float64 `json:"upper_percentile"`
	LowerPercentile float64 `json:"lower_percentile"`
	TukeyFactor     float64 `json:"tukey_factor"`
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// TablePrint writes a human readable summary of the options
func (o *Options) TablePrint(w io.Writer, prefix, indent string) error {
	if o == nil {
		return nil
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sGrowth:\t%s\t\n", prefix, indent, orNone(o.GrowthType)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%sRegularization:\t%.3f\t\n", prefix, indent, o.Regularization); err != nil {
		return err
	}
	seas := make([]string, 0, len(o.SeasonalityOptions.SeasonalityConfigs))
	for _, cfg := range o.SeasonalityOptions.SeasonalityConfigs {
		seas = append(seas, fmt.Sprintf("%s(%s x%d)", cfg.Name, cfg.Period, cfg.Orders))
	}
	if _, err := fmt.Fprintf(tbl, "%s%sSeasonality:\t%s\t\n", prefix, indent, orNone(strings.Join(seas, " "))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%sChangepoints:\t%d explicit, auto=%t\t\n",
		prefix, indent, len(o.ChangepointOptions.Changepoints), o.ChangepointOptions.Auto); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%sEvents:\t%d explicit, holidays=%t\t\n",
		prefix, indent, len(o.EventOptions.Events), o.EventOptions.Holidays); err != nil {
		return err
	}
	return tbl.Flush()
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
