// Package sarima fits seasonal ARIMA models by conditional sum of squares. The series is
// differenced d times and then seasonally differenced D times at lag m, an ARMA model with
// additive seasonal terms is fit to what remains, and forecasts are integrated back onto the
// original scale.
package sarima

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultMaxIterations = 200
	DefaultLearningRate  = 0.005
	DefaultMomentum      = 0.9
	DefaultDecay         = 0.99
	DefaultTolerance     = 1e-8

	// MinExtraPoints is the number of points required on top of the model orders
	MinExtraPoints = 20

	// maxCoef bounds every coefficient to keep the recursion stable
	maxCoef = 0.99

	// maxNoImprove stops the descent after this many iterations without a better fit
	maxNoImprove = 20
)

var (
	ErrNegativeOrder            = errors.New("model orders must be non-negative")
	ErrInvalidPeriod            = errors.New("seasonal terms require a period of at least 2")
	ErrInvalidOptimizer         = errors.New("optimizer settings must be positive")
	ErrInsufficientTrainingData = errors.New("insufficient training data for model order")
	ErrUntrainedModel           = errors.New("model has not been trained yet")
	ErrTimeNotAfterTraining     = errors.New("forecast time is not after the end of training")
)

// Options configures a seasonal ARIMA model of order (p, d, q) x (P, D, Q, m)
type Options struct {
	Order         [3]int `json:"order"`
	SeasonalOrder [3]int `json:"seasonal_order"`
	Period        int    `json:"period"`

	MaxIterations int     `json:"max_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	Momentum      float64 `json:"momentum"`
	Decay         float64 `json:"decay"`
}

// NewDefaultOptions returns options for the given orders with the default optimizer
func NewDefaultOptions(order, seasonalOrder [3]int, period int) *Options {
	return &Options{
		Order:         order,
		SeasonalOrder: seasonalOrder,
		Period:        period,
		MaxIterations: DefaultMaxIterations,
		LearningRate:  DefaultLearningRate,
		Momentum:      DefaultMomentum,
		Decay:         DefaultDecay,
	}
}

func (o *Options) hasSeasonal() bool {
	return o.SeasonalOrder[0] > 0 || o.SeasonalOrder[1] > 0 || o.SeasonalOrder[2] > 0
}

// Validate checks the options. A period is only required when a seasonal order is non-zero.
func (o *Options) Validate() error {
	for _, v := range append(o.Order[:], o.SeasonalOrder[:]...) {
		if v < 0 {
			return fmt.Errorf("order %v x %v, %w", o.Order, o.SeasonalOrder, ErrNegativeOrder)
		}
	}
	if o.hasSeasonal() && o.Period < 2 {
		return fmt.Errorf("period of %d, %w", o.Period, ErrInvalidPeriod)
	}
	if o.MaxIterations <= 0 || o.LearningRate <= 0 || o.Momentum < 0 || o.Decay <= 0 {
		return ErrInvalidOptimizer
	}
	return nil
}

// MinPoints returns the number of training points needed to fit the configured orders
func (o *Options) MinPoints() int {
	p, d, q := o.Order[0], o.Order[1], o.Order[2]
	sp, sd, sq := o.SeasonalOrder[0], o.SeasonalOrder[1], o.SeasonalOrder[2]
	return p + d + q + (sp+sd+sq)*o.Period + MinExtraPoints
}

type termKind int

const (
	termAR termKind = iota
	termMA
)

// term is a single autoregressive or moving average coefficient at a lag
type term struct {
	kind     termKind
	lag      int
	seasonal bool
	coef     float64
}

func (t term) label() string {
	name := "ar"
	if t.kind == termMA {
		name = "ma"
	}
	if t.seasonal {
		name += ".S"
	}
	return fmt.Sprintf("%s.L%d", name, t.lag)
}

// Model is a seasonal ARIMA model
type Model struct {
	opt *Options

	terms     []term
	intercept float64
	variance  float64

	// levels holds the series after each differencing step with the original at index 0
	levels    [][]float64
	lags      []int
	residuals []float64

	freq     time.Duration
	trainEnd time.Time
}

func New(opt *Options) (*Model, error) {
	if opt == nil {
		return nil, fmt.Errorf("nil options, %w", ErrInvalidOptimizer)
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	m := &Model{opt: opt}
	for l := 1; l <= opt.Order[0]; l++ {
		m.terms = append(m.terms, term{kind: termAR, lag: l})
	}
	for l := 1; l <= opt.SeasonalOrder[0]; l++ {
		m.terms = append(m.terms, term{kind: termAR, lag: l * opt.Period, seasonal: true})
	}
	for l := 1; l <= opt.Order[2]; l++ {
		m.terms = append(m.terms, term{kind: termMA, lag: l})
	}
	for l := 1; l <= opt.SeasonalOrder[2]; l++ {
		m.terms = append(m.terms, term{kind: termMA, lag: l * opt.Period, seasonal: true})
	}
	return m, nil
}

// Fit trains the model on the series. Missing values are filled with the previous observation.
func (m *Model) Fit(t []time.Time, y []float64) error {
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return err
	}
	n := td.Len()
	if minPnts := m.opt.MinPoints(); n < minPnts {
		return fmt.Errorf("%d points, need %d, %w", n, minPnts, ErrInsufficientTrainingData)
	}

	freq, err := timedataset.TimeSlice(td.T).EstimateFreq()
	if err != nil {
		return fmt.Errorf("unable to estimate training frequency, %w", err)
	}

	yFilled, err := timedataset.FillForward(td.Y)
	if err != nil {
		return fmt.Errorf("no observed values, %w", ErrInsufficientTrainingData)
	}

	levels := [][]float64{yFilled}
	var lags []int
	for i := 0; i < m.opt.Order[1]; i++ {
		levels = append(levels, Diff(levels[len(levels)-1], 1))
		lags = append(lags, 1)
	}
	for i := 0; i < m.opt.SeasonalOrder[1]; i++ {
		levels = append(levels, Diff(levels[len(levels)-1], m.opt.Period))
		lags = append(lags, m.opt.Period)
	}
	w := levels[len(levels)-1]
	if len(w) < 2 {
		return fmt.Errorf("differencing left %d points, %w", len(w), ErrInsufficientTrainingData)
	}

	m.levels = levels
	m.lags = lags
	m.fitCSS(w)

	m.freq = freq
	m.trainEnd = td.T[n-1]

	logrus.WithFields(logrus.Fields{
		"points":         n,
		"order":          m.opt.Order,
		"seasonal_order": m.opt.SeasonalOrder,
		"period":         m.opt.Period,
		"variance":       m.variance,
	}).Debug("fit seasonal arima")
	return nil
}

func (m *Model) maxLag() int {
	maxLag := 0
	for _, tm := range m.terms {
		if tm.lag > maxLag {
			maxLag = tm.lag
		}
	}
	return maxLag
}

// residualsFor evaluates the one step ahead residuals of w from start onward and returns the
// residuals along with their sum of squares
func (m *Model) residualsFor(w []float64, start int) ([]float64, float64) {
	resid := make([]float64, len(w))
	sse := 0.0
	for t := start; t < len(w); t++ {
		pred := m.intercept
		for _, tm := range m.terms {
			if t-tm.lag < 0 {
				continue
			}
			switch tm.kind {
			case termAR:
				pred += tm.coef * (w[t-tm.lag] - m.intercept)
			case termMA:
				pred += tm.coef * resid[t-tm.lag]
			}
		}
		resid[t] = w[t] - pred
		sse += resid[t] * resid[t]
	}
	return resid, sse
}

// fitCSS minimizes the conditional sum of squares with momentum gradient descent and keeps
// the best coefficients seen
func (m *Model) fitCSS(w []float64) {
	n := len(w)
	m.intercept = stat.Mean(w, nil)

	acf := ACF(w, m.maxLag())
	for i, tm := range m.terms {
		switch tm.kind {
		case termAR:
			m.terms[i].coef = acf[tm.lag] * 0.5
		case termMA:
			m.terms[i].coef = 0.1
		}
	}

	start := m.maxLag()
	if start >= n-10 {
		start = 0
	}

	lr := m.opt.LearningRate
	velocity := make([]float64, len(m.terms))
	best := m.coefs()
	bestSSE := math.Inf(1)
	noImprove := 0

	for iter := 0; iter < m.opt.MaxIterations && len(m.terms) > 0; iter++ {
		resid, sse := m.residualsFor(w, start)
		if sse < bestSSE {
			bestSSE = sse
			best = m.coefs()
			noImprove = 0
		} else {
			noImprove++
		}
		if noImprove > maxNoImprove {
			break
		}

		grad := make([]float64, len(m.terms))
		for t := start; t < n; t++ {
			for i, tm := range m.terms {
				if t-tm.lag < 0 {
					continue
				}
				switch tm.kind {
				case termAR:
					grad[i] -= 2 * resid[t] * (w[t-tm.lag] - m.intercept)
				case termMA:
					grad[i] -= 2 * resid[t] * resid[t-tm.lag]
				}
			}
		}

		for i := range m.terms {
			velocity[i] = m.opt.Momentum*velocity[i] + lr*grad[i]/float64(n)
			m.terms[i].coef = clamp(m.terms[i].coef-velocity[i], -maxCoef, maxCoef)
		}
		lr *= m.opt.Decay

		if iter > 0 && math.Abs(sse-bestSSE) < DefaultTolerance {
			break
		}
	}
	m.setCoefs(best)

	resid, sse := m.residualsFor(w, 0)
	m.residuals = resid

	count := 0
	sse = 0
	for t := start; t < n; t++ {
		sse += resid[t] * resid[t]
		count++
	}
	numParams := len(m.terms) + 1
	if count > numParams {
		m.variance = sse / float64(count-numParams)
	} else {
		m.variance = sse / float64(count)
	}
}

func (m *Model) coefs() []float64 {
	res := make([]float64, len(m.terms))
	for i, tm := range m.terms {
		res[i] = tm.coef
	}
	return res
}

func (m *Model) setCoefs(c []float64) {
	for i := range m.terms {
		m.terms[i].coef = c[i]
	}
}

// Forecast predicts the given number of steps past the end of training on the original scale
// along with the standard error of each step
func (m *Model) Forecast(steps int) ([]float64, []float64, error) {
	if m.levels == nil {
		return nil, nil, ErrUntrainedModel
	}
	if steps < 1 {
		return []float64{}, []float64{}, nil
	}

	w := m.levels[len(m.levels)-1]
	n := len(w)
	ext := make([]float64, n+steps)
	copy(ext, w)
	resid := make([]float64, n+steps)
	copy(resid, m.residuals)

	for t := n; t < n+steps; t++ {
		pred := m.intercept
		for _, tm := range m.terms {
			if t-tm.lag < 0 {
				continue
			}
			switch tm.kind {
			case termAR:
				pred += tm.coef * (ext[t-tm.lag] - m.intercept)
			case termMA:
				// future shocks are zero
				pred += tm.coef * resid[t-tm.lag]
			}
		}
		ext[t] = pred
	}

	values := make([]float64, steps)
	copy(values, ext[n:])
	for i := len(m.lags) - 1; i >= 0; i-- {
		values = Undiff(m.levels[i], values, m.lags[i])
	}

	psi := m.PsiWeights(steps)
	sigma := math.Sqrt(m.variance)
	stderr := make([]float64, steps)
	cum := 0.0
	for h := 0; h < steps; h++ {
		cum += psi[h] * psi[h]
		stderr[h] = sigma * math.Sqrt(cum)
	}
	return values, stderr, nil
}

// PsiWeights returns the first k weights of the model's infinite moving average
// representation, including the differencing operators
func (m *Model) PsiWeights(k int) []float64 {
	// ar(B) = 1 - sum phi_i B^i, ma(B) = 1 + sum theta_i B^i
	ar := []float64{1}
	ma := []float64{1}
	for _, tm := range m.terms {
		switch tm.kind {
		case termAR:
			ar = growTo(ar, tm.lag+1)
			ar[tm.lag] -= tm.coef
		case termMA:
			ma = growTo(ma, tm.lag+1)
			ma[tm.lag] += tm.coef
		}
	}
	for _, lag := range m.lags {
		diffPoly := make([]float64, lag+1)
		diffPoly[0] = 1
		diffPoly[lag] = -1
		ar = polyMul(ar, diffPoly)
	}

	psi := make([]float64, k)
	for j := 0; j < k; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for i := 1; i <= j && i < len(ar); i++ {
			v -= ar[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

// Predict returns the forecast and standard error at each time point. Every point must lie
// after the end of training and is rounded to the nearest step of the training frequency.
func (m *Model) Predict(t []time.Time) ([]float64, []float64, error) {
	if m.levels == nil {
		return nil, nil, ErrUntrainedModel
	}

	steps := timedataset.TimeSlice(t).StepsAfter(m.trainEnd, m.freq)
	maxStep := 0
	for i, s := range steps {
		if s < 1 {
			return nil, nil, fmt.Errorf("time %s, %w", t[i], ErrTimeNotAfterTraining)
		}
		if s > maxStep {
			maxStep = s
		}
	}

	values, stderr, err := m.Forecast(maxStep)
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

// Coefficients returns the fitted AR, seasonal AR, MA and seasonal MA coefficients in that order
func (m *Model) Coefficients() []float64 {
	return m.coefs()
}

// Weights returns the intercept and every coefficient keyed by its term, e.g. ar.L1 or ma.S.L7
func (m *Model) Weights() map[string]float64 {
	res := make(map[string]float64, len(m.terms)+1)
	res["intercept"] = m.intercept
	for _, tm := range m.terms {
		res[tm.label()] = tm.coef
	}
	return res
}

// Intercept returns the mean of the differenced series
func (m *Model) Intercept() float64 {
	return m.intercept
}

// Variance returns the innovation variance estimated from the fit residuals
func (m *Model) Variance() float64 {
	return m.variance
}

// Residuals returns the one step ahead residuals on the differenced scale
func (m *Model) Residuals() []float64 {
	res := make([]float64, len(m.residuals))
	copy(res, m.residuals)
	return res
}

// TrainEndTime returns the last training time
func (m *Model) TrainEndTime() time.Time {
	return m.trainEnd
}

// Diff returns y[i] - y[i-lag] for every i at or past lag
func Diff(y []float64, lag int) []float64 {
	if lag < 1 || len(y) <= lag {
		return []float64{}
	}
	res := make([]float64, len(y)-lag)
	floats.SubTo(res, y[lag:], y[:len(y)-lag])
	return res
}

// Undiff inverts Diff for values that continue past the end of history
func Undiff(history, diffs []float64, lag int) []float64 {
	ext := make([]float64, len(history), len(history)+len(diffs))
	copy(ext, history)
	res := make([]float64, len(diffs))
	for i, d := range diffs {
		prev := 0.0
		if idx := len(ext) - lag; idx >= 0 {
			prev = ext[idx]
		}
		v := d + prev
		ext = append(ext, v)
		res[i] = v
	}
	return res
}

// ACF returns the sample autocorrelation of y for lags 0 through maxLag. A constant series has
// zero autocorrelation past lag 0.
func ACF(y []float64, maxLag int) []float64 {
	res := make([]float64, maxLag+1)
	res[0] = 1
	n := len(y)
	if n == 0 {
		return res
	}
	mean := stat.Mean(y, nil)
	denom := 0.0
	for _, v := range y {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return res
	}
	for lag := 1; lag <= maxLag && lag < n; lag++ {
		num := 0.0
		for t := lag; t < n; t++ {
			num += (y[t] - mean) * (y[t-lag] - mean)
		}
		res[lag] = num / denom
	}
	return res
}

func growTo(p []float64, n int) []float64 {
	if len(p) >= n {
		return p
	}
	res := make([]float64, n)
	copy(res, p)
	return res
}

func polyMul(a, b []float64) []float64 {
	res := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			res[i+j] += av * bv
		}
	}
	return res
}

func clamp(v, lower, upper float64) float64 {
	return math.Max(lower, math.Min(upper, v))
}
