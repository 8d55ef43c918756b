// Package session tracks the workflow of a single browser: the loaded series, the selected model,
// its configuration and the last evaluated report.
package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aouyang1/forecastlab"
	"github.com/aouyang1/forecastlab/sample"
	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoData          = errors.New("no data loaded")
	ErrNoModelSelected = errors.New("no model selected")
)

// IncompleteConfigWarning is shown when SARIMA is submitted without orders
const IncompleteConfigWarning = "Enter configuration for SARIMA model and press Select again"

// State is the position of a session in the workflow
type State int

const (
	StateNoData State = iota
	StateDataLoaded
	StateAwaitingConfirmation
	StateConfigIncomplete
	StateRunning
	StateRendered
)

func (s State) String() string {
	switch s {
	case StateNoData:
		return "no_data"
	case StateDataLoaded:
		return "data_loaded"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateConfigIncomplete:
		return "config_incomplete"
	case StateRunning:
		return "running"
	case StateRendered:
		return "rendered"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Runner evaluates a model configuration on a series
type Runner interface {
	Run(td *timedataset.TimeDataset, cfg forecastlab.ModelConfig) (*forecastlab.Report, error)
}

// Options are shared by every session of a store
type Options struct {
	Runner     Runner
	SamplePath string
	CSVOptions *timedataset.CSVOptions
	Logger     logrus.FieldLogger
}

// Session is the state of one browser. Every operation holds the session lock so requests of
// the same browser run one at a time.
type Session struct {
	mu sync.Mutex

	id     string
	opt    *Options
	runner Runner
	log    logrus.FieldLogger

	series    *timedataset.TimeDataset
	source    string
	kind      forecastlab.ModelKind
	confirmed bool
	rawConfig string
	state     State
	report    *forecastlab.Report
	warning   string
	lastErr   error
}

func New(id string, opt *Options) *Session {
	if opt == nil {
		opt = &Options{}
	}
	var runner Runner = forecastlab.NewPipeline(nil)
	if opt.Runner != nil {
		runner = opt.Runner
	}
	log := opt.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		id:     id,
		opt:    opt,
		runner: runner,
		log:    log.WithField("session", id),
		state:  StateNoData,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// LoadUpload replaces the series with the csv read from r. A failed load leaves the session
// untouched.
func (s *Session) LoadUpload(name string, r io.Reader) error {
	td, err := timedataset.LoadCSV(r, s.opt.CSVOptions)
	if err != nil {
		return fmt.Errorf("unable to load %s, %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(name, td)
	return nil
}

// LoadSample replaces the series with the configured sample file
func (s *Session) LoadSample() error {
	r, err := sample.Open(s.opt.SamplePath)
	if err != nil {
		return fmt.Errorf("unable to open sample, %w", err)
	}
	defer r.Close()

	name := s.opt.SamplePath
	if name == "" {
		name = sample.Name
	}
	return s.LoadUpload(name, r)
}

func (s *Session) load(name string, td *timedataset.TimeDataset) {
	s.series = td
	s.source = name
	s.confirmed = false
	s.report = nil
	s.warning = ""
	s.lastErr = nil
	s.state = StateDataLoaded

	s.log.WithFields(logrus.Fields{
		"source": name,
		"rows":   td.Len(),
	}).Info("loaded series")
}

// Select chooses the model kind and stores raw as the SARIMA configuration, replacing any
// earlier value. An empty raw clears it, so a later SARIMA submission warns instead of running.
func (s *Session) Select(kind forecastlab.ModelKind, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectKind(kind, &raw)
}

// SelectKind chooses the model kind and keeps the stored configuration
func (s *Session) SelectKind(kind forecastlab.ModelKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectKind(kind, nil)
}

func (s *Session) selectKind(kind forecastlab.ModelKind, raw *string) error {
	if s.series == nil {
		return ErrNoData
	}
	if !kind.Valid() {
		return fmt.Errorf("%q, %w", kind.String(), forecastlab.ErrUnknownModelKind)
	}

	s.kind = kind
	if raw != nil {
		s.rawConfig = *raw
	}
	s.confirmed = false
	s.warning = ""
	s.lastErr = nil
	s.state = StateAwaitingConfirmation
	return nil
}

// Submit confirms the selection and evaluates it. SARIMA without a configuration sets a warning
// and returns ErrConfigIncomplete without running anything. A failed run leaves the session
// awaiting confirmation.
func (s *Session) Submit() (*forecastlab.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submit()
}

// SelectAndSubmit performs Select followed by Submit under a single lock
func (s *Session) SelectAndSubmit(kind forecastlab.ModelKind, raw string) (*forecastlab.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectKind(kind, &raw); err != nil {
		return nil, err
	}
	return s.submit()
}

// SelectKindAndSubmit performs SelectKind followed by Submit under a single lock
func (s *Session) SelectKindAndSubmit(kind forecastlab.ModelKind) (*forecastlab.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectKind(kind, nil); err != nil {
		return nil, err
	}
	return s.submit()
}

func (s *Session) submit() (*forecastlab.Report, error) {
	if s.series == nil {
		return nil, ErrNoData
	}
	if s.kind == "" {
		return nil, ErrNoModelSelected
	}
	s.confirmed = true
	s.report = nil
	s.warning = ""
	s.lastErr = nil

	cfg, err := forecastlab.ParseModelConfig(s.kind, s.rawConfig)
	if errors.Is(err, forecastlab.ErrConfigIncomplete) {
		s.state = StateConfigIncomplete
		s.warning = IncompleteConfigWarning
		return nil, err
	}
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.state = StateRunning
	report, err := s.runner.Run(s.series, cfg)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.report = report
	s.state = StateRendered
	return report, nil
}

func (s *Session) fail(err error) {
	s.lastErr = err
	s.state = StateAwaitingConfirmation
	s.log.WithFields(logrus.Fields{
		"kind":  s.kind,
		"error": err,
	}).Warn("forecast run failed")
}

// Report returns the last rendered report or nil
func (s *Session) Report() *forecastlab.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Snapshot is a read only view of a session
type Snapshot struct {
	ID        string                `json:"id"`
	State     string                `json:"state"`
	Source    string                `json:"source,omitempty"`
	Rows      int                   `json:"rows"`
	Kind      forecastlab.ModelKind `json:"kind,omitempty"`
	KindLabel string                `json:"kind_label,omitempty"`
	Confirmed bool                  `json:"confirmed"`
	RawConfig string                `json:"raw_config,omitempty"`
	Warning   string                `json:"warning,omitempty"`
	Error     string                `json:"error,omitempty"`
	HasReport bool                  `json:"has_report"`
	MAE       *float64              `json:"mae,omitempty"`
	MAEText   string                `json:"mae_text,omitempty"`
	Elapsed   time.Duration         `json:"elapsed,omitempty"`
	Weights   map[string]float64    `json:"weights,omitempty"`
	Equation  string                `json:"equation,omitempty"`
}

// Snapshot copies the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        s.id,
		State:     s.state.String(),
		Source:    s.source,
		Rows:      s.series.Len(),
		Kind:      s.kind,
		Confirmed: s.confirmed,
		RawConfig: s.rawConfig,
		Warning:   s.warning,
		HasReport: s.report != nil,
	}
	if s.kind != "" {
		snap.KindLabel = s.kind.Label()
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if s.report != nil {
		mae := s.report.MAE
		snap.MAE = &mae
		snap.MAEText = s.report.MAEText()
		snap.Elapsed = s.report.Elapsed
		snap.Equation = s.report.Equation
		if len(s.report.Weights) > 0 {
			snap.Weights = make(map[string]float64, len(s.report.Weights))
			for k, v := range s.report.Weights {
				snap.Weights[k] = v
			}
		}
	}
	return snap
}

// State returns the current workflow state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
