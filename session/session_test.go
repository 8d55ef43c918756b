package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/forecastlab"
	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = "date,value\n2024-01-01,1\n2024-01-02,2\n2024-01-03,3\n2024-01-04,4\n2024-01-05,5\n"

var errRunFailed = errors.New("run failed")

// countingRunner records every call and returns a fixed report or error
type countingRunner struct {
	calls   int
	lastCfg forecastlab.ModelConfig
	err     error
}

func (c *countingRunner) Run(td *timedataset.TimeDataset, cfg forecastlab.ModelConfig) (*forecastlab.Report, error) {
	c.calls++
	c.lastCfg = cfg
	if c.err != nil {
		return nil, c.err
	}
	return &forecastlab.Report{
		Kind:     cfg.Kind(),
		MAE:      1.5,
		Weights:  map[string]float64{"intercept": 2},
		Equation: "y ~ 2.00",
	}, nil
}

func newTestSession(runner Runner) *Session {
	return New("test", &Options{Runner: runner})
}

func loadedSession(t *testing.T, runner Runner) *Session {
	t.Helper()
	s := newTestSession(runner)
	require.NoError(t, s.LoadUpload("test.csv", strings.NewReader(testCSV)))
	return s
}

func TestSessionLoad(t *testing.T) {
	s := newTestSession(&countingRunner{})
	assert.Equal(t, StateNoData, s.State())

	err := s.LoadUpload("bad.csv", strings.NewReader("date,value\nnot a date,1\n"))
	assert.ErrorIs(t, err, timedataset.ErrUnparsableTime)
	assert.Equal(t, StateNoData, s.State())

	require.NoError(t, s.LoadUpload("test.csv", strings.NewReader(testCSV)))
	snap := s.Snapshot()
	assert.Equal(t, "data_loaded", snap.State)
	assert.Equal(t, 5, snap.Rows)
	assert.Equal(t, "test.csv", snap.Source)

	// a failed reload keeps the previous series
	err = s.LoadUpload("bad.csv", strings.NewReader(""))
	assert.Error(t, err)
	assert.Equal(t, 5, s.Snapshot().Rows)
}

func TestSessionLoadSample(t *testing.T) {
	s := newTestSession(&countingRunner{})
	require.NoError(t, s.LoadSample())
	snap := s.Snapshot()
	assert.Equal(t, 100, snap.Rows)
	assert.Equal(t, "sample.csv", snap.Source)

	s = New("missing", &Options{SamplePath: "/does/not/exist.csv"})
	assert.Error(t, s.LoadSample())
	assert.Equal(t, StateNoData, s.State())
}

func TestSessionSelectRequiresData(t *testing.T) {
	s := newTestSession(&countingRunner{})
	assert.ErrorIs(t, s.Select(forecastlab.KindGradientBoostedTree, ""), ErrNoData)

	_, err := s.Submit()
	assert.ErrorIs(t, err, ErrNoData)

	s = loadedSession(t, &countingRunner{})
	_, err = s.Submit()
	assert.ErrorIs(t, err, ErrNoModelSelected)

	assert.ErrorIs(t, s.Select("unknown", ""), forecastlab.ErrUnknownModelKind)
}

func TestSessionSubmitIncompleteSARIMA(t *testing.T) {
	runner := &countingRunner{}
	s := loadedSession(t, runner)

	require.NoError(t, s.Select(forecastlab.KindSeasonalARIMA, ""))
	report, err := s.Submit()
	assert.ErrorIs(t, err, forecastlab.ErrConfigIncomplete)
	assert.Nil(t, report)
	assert.Equal(t, 0, runner.calls)

	snap := s.Snapshot()
	assert.Equal(t, "config_incomplete", snap.State)
	assert.Equal(t, IncompleteConfigWarning, snap.Warning)
	assert.True(t, snap.Confirmed)
	assert.False(t, snap.HasReport)
}

func TestSessionSubmit(t *testing.T) {
	testData := map[string]struct {
		kind     forecastlab.ModelKind
		raw      string
		expected forecastlab.ModelConfig
	}{
		"gbt":      {forecastlab.KindGradientBoostedTree, "", forecastlab.GradientBoostedTreeConfig{}},
		"additive": {forecastlab.KindAdditiveDecomposition, "ignored", forecastlab.AdditiveDecompositionConfig{}},
		"sarima": {
			forecastlab.KindSeasonalARIMA, "1 1 1 0 1 1 7",
			forecastlab.SeasonalARIMAConfig{Order: [3]int{1, 1, 1}, SeasonalOrder: [3]int{0, 1, 1}, Period: 7},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			runner := &countingRunner{}
			s := loadedSession(t, runner)

			require.NoError(t, s.Select(td.kind, td.raw))
			assert.False(t, s.Snapshot().Confirmed)

			report, err := s.Submit()
			require.NoError(t, err)
			assert.Equal(t, 1, runner.calls)
			assert.Equal(t, td.expected, runner.lastCfg)
			assert.Equal(t, report, s.Report())

			snap := s.Snapshot()
			assert.Equal(t, "rendered", snap.State)
			assert.True(t, snap.HasReport)
			assert.Equal(t, "MAE: 1.50", snap.MAEText)
			assert.Equal(t, map[string]float64{"intercept": 2}, snap.Weights)
			assert.Equal(t, "y ~ 2.00", snap.Equation)
			assert.Equal(t, td.kind.Label(), snap.KindLabel)
		})
	}
}

func TestSessionSubmitFailure(t *testing.T) {
	runner := &countingRunner{err: errRunFailed}
	s := loadedSession(t, runner)

	_, err := s.SelectAndSubmit(forecastlab.KindGradientBoostedTree, "")
	assert.ErrorIs(t, err, errRunFailed)
	snap := s.Snapshot()
	assert.Equal(t, "awaiting_confirmation", snap.State)
	assert.Equal(t, errRunFailed.Error(), snap.Error)
	assert.False(t, snap.HasReport)

	// an invalid order fails without running
	_, err = s.SelectAndSubmit(forecastlab.KindSeasonalARIMA, "1 1")
	assert.ErrorIs(t, err, forecastlab.ErrInvalidSeasonalOrder)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, StateAwaitingConfirmation, s.State())
}

func TestSessionConfigRetained(t *testing.T) {
	runner := &countingRunner{}
	s := loadedSession(t, runner)

	require.NoError(t, s.Select(forecastlab.KindSeasonalARIMA, "1 0 0 0 0 0"))
	require.NoError(t, s.SelectKind(forecastlab.KindGradientBoostedTree))
	require.NoError(t, s.SelectKind(forecastlab.KindSeasonalARIMA))
	assert.Equal(t, "1 0 0 0 0 0", s.Snapshot().RawConfig)

	_, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, forecastlab.SeasonalARIMAConfig{Order: [3]int{1, 0, 0}}, runner.lastCfg)

	_, err = s.SelectKindAndSubmit(forecastlab.KindSeasonalARIMA)
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)
}

func TestSessionConfigCleared(t *testing.T) {
	testData := map[string]struct {
		cleared string
	}{
		"empty":      {""},
		"whitespace": {"   "},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			runner := &countingRunner{}
			s := loadedSession(t, runner)

			_, err := s.SelectAndSubmit(forecastlab.KindSeasonalARIMA, "1 0 0 0 0 0")
			require.NoError(t, err)
			require.Equal(t, 1, runner.calls)

			report, err := s.SelectAndSubmit(forecastlab.KindSeasonalARIMA, td.cleared)
			assert.ErrorIs(t, err, forecastlab.ErrConfigIncomplete)
			assert.Nil(t, report)
			assert.Equal(t, 1, runner.calls)

			snap := s.Snapshot()
			assert.Equal(t, "config_incomplete", snap.State)
			assert.Equal(t, IncompleteConfigWarning, snap.Warning)
			assert.Equal(t, td.cleared, snap.RawConfig)
			assert.False(t, snap.HasReport)
			assert.Nil(t, s.Report())
		})
	}
}

func TestSessionLoadResets(t *testing.T) {
	s := loadedSession(t, &countingRunner{})
	_, err := s.SelectAndSubmit(forecastlab.KindGradientBoostedTree, "")
	require.NoError(t, err)
	require.True(t, s.Snapshot().HasReport)

	require.NoError(t, s.LoadUpload("again.csv", strings.NewReader(testCSV)))
	snap := s.Snapshot()
	assert.Equal(t, "data_loaded", snap.State)
	assert.False(t, snap.Confirmed)
	assert.False(t, snap.HasReport)
	assert.Nil(t, s.Report())
	assert.Equal(t, forecastlab.KindGradientBoostedTree, snap.Kind)
}

func TestSessionWithPipeline(t *testing.T) {
	s := New("pipeline", nil)
	require.NoError(t, s.LoadSample())

	report, err := s.SelectAndSubmit(forecastlab.KindGradientBoostedTree, "")
	require.NoError(t, err)
	assert.Equal(t, 20, report.Results.Len())
	assert.Equal(t, StateRendered, s.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "no_data", StateNoData.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestStore(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute, &Options{Runner: &countingRunner{}})
	store.now = func() time.Time { return now }

	a := store.Create()
	b, created := store.GetOrCreate("")
	assert.True(t, created)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, store.Len())

	got, created := store.GetOrCreate(a.ID())
	assert.False(t, created)
	assert.Same(t, a, got)

	_, exists := store.Get("unknown")
	assert.False(t, exists)

	// touch a so only b expires
	now = now.Add(45 * time.Second)
	_, exists = store.Get(a.ID())
	require.True(t, exists)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, exists = store.Get(b.ID())
	assert.False(t, exists)

	now = now.Add(2 * time.Minute)
	_, exists = store.Get(a.ID())
	assert.False(t, exists)
	assert.Equal(t, 0, store.Len())
}
