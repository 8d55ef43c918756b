package forecast

import (
	"math"
	"strings"
	"time"

	"github.com/aouyang1/forecastlab/feature"
)

// featureSpec is the resolved set of features a forecast generates. It is fixed at training
// time so inference produces the same columns.
type featureSpec struct {
	growth       string
	trainStart   time.Time
	trainEnd     time.Time
	changepoints []Changepoint
	seasonality  []SeasonalityConfig
	events       EventOptions
}

func (fs featureSpec) span() float64 {
	return fs.trainEnd.Sub(fs.trainStart).Seconds()
}

func (fs featureSpec) generate(t []time.Time) *feature.Set {
	x := feature.NewSet()
	if len(t) == 0 {
		return x
	}
	span := fs.span()

	if fs.growth == feature.GrowthLinear && span > 0 {
		growth := make([]float64, len(t))
		for i, tPnt := range t {
			growth[i] = tPnt.Sub(fs.trainStart).Seconds() / span
		}
		x.Set(feature.Linear(), growth)
	}

	if span > 0 {
		for _, chpt := range fs.changepoints {
			slope := make([]float64, len(t))
			for i, tPnt := range t {
				if tPnt.Before(chpt.T) {
					continue
				}
				slope[i] = tPnt.Sub(chpt.T).Seconds() / span
			}
			x.Set(feature.NewChangepoint(chpt.Name, feature.ChangepointCompSlope), slope)
		}
	}

	for _, cfg := range fs.seasonality {
		for order := 1; order <= cfg.Orders; order++ {
			sinFeat, cosFeat := generateFourierComponent(t, order, cfg.Period)
			x.Set(feature.NewSeasonality(cfg.Name, feature.FourierCompSin, order), sinFeat)
			x.Set(feature.NewSeasonality(cfg.Name, feature.FourierCompCos, order), cosFeat)
		}
	}

	masks := make(map[string][]float64)
	var names []string
	for _, ev := range fs.events.events(t) {
		name := strings.ReplaceAll(ev.Name, " ", "_")
		mask, exists := masks[name]
		if !exists {
			mask = make([]float64, len(t))
			masks[name] = mask
			names = append(names, name)
		}
		for i, tPnt := range t {
			if ev.Contains(tPnt) {
				mask[i] = 1.0
			}
		}
	}
	for _, name := range names {
		x.Set(feature.NewEvent(name), masks[name])
	}

	return x
}

// generateFourierComponent returns the sine and cosine of the phase of each time point within
// the period for the given order
func generateFourierComponent(t []time.Time, order int, period time.Duration) ([]float64, []float64) {
	periodSec := int64(period / time.Second)
	if periodSec <= 0 {
		periodSec = 1
	}
	omega := 2.0 * math.Pi * float64(order) / float64(periodSec)

	sinFeat := make([]float64, len(t))
	cosFeat := make([]float64, len(t))
	for i, tPnt := range t {
		phase := float64(tPnt.Unix()%periodSec) + float64(tPnt.Nanosecond())/1e9
		rad := omega * phase
		sinFeat[i] = math.Sin(rad)
		cosFeat[i] = math.Cos(rad)
	}
	return sinFeat, cosFeat
}
