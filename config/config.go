// Package config loads the server configuration from an optional yaml file and FORECASTLAB_
// prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aouyang1/forecastlab"
	"github.com/aouyang1/forecastlab/forecast"
	"github.com/aouyang1/forecastlab/gbt"
	"github.com/aouyang1/forecastlab/timedataset"
	"github.com/spf13/viper"
)

const EnvPrefix = "FORECASTLAB"

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sample  SampleConfig  `mapstructure:"sample"`
	CSV     CSVConfig     `mapstructure:"csv"`
	Logging LoggingConfig `mapstructure:"logging"`
	Profile ProfileConfig `mapstructure:"profile"`
	Model   ModelConfig   `mapstructure:"model"`
}

// ServerConfig holds the http listener and session settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SampleConfig points at the series offered by the sample button. An empty path uses the
// bundled series.
type SampleConfig struct {
	Path string `mapstructure:"path"`
}

// CSVConfig controls how uploaded files are parsed
type CSVConfig struct {
	Delimiter string `mapstructure:"delimiter"`
	Location  string `mapstructure:"location"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProfileConfig enables cpu or memory profiling of the process
type ProfileConfig struct {
	Mode string `mapstructure:"mode"`
	Path string `mapstructure:"path"`
}

// ModelConfig holds the engine settings of every model kind
type ModelConfig struct {
	GBT      GBTConfig      `mapstructure:"gbt"`
	Additive AdditiveConfig `mapstructure:"additive"`
	SARIMA   SARIMAConfig   `mapstructure:"sarima"`
}

type GBTConfig struct {
	Lags           int     `mapstructure:"lags"`
	Estimators     int     `mapstructure:"estimators"`
	LearningRate   float64 `mapstructure:"learning_rate"`
	MaxDepth       int     `mapstructure:"max_depth"`
	MinSamplesLeaf int     `mapstructure:"min_samples_leaf"`
}

type AdditiveConfig struct {
	Holidays       bool    `mapstructure:"holidays"`
	Changepoints   int     `mapstructure:"changepoints"`
	Regularization float64 `mapstructure:"regularization"`
	OutlierPasses  int     `mapstructure:"outlier_passes"`
	ResidualWindow int     `mapstructure:"residual_window"`
	ResidualZscore float64 `mapstructure:"residual_zscore"`
}

type SARIMAConfig struct {
	MaxIterations int     `mapstructure:"max_iterations"`
	LearningRate  float64 `mapstructure:"learning_rate"`
	Momentum      float64 `mapstructure:"momentum"`
	Decay         float64 `mapstructure:"decay"`
}

// Load reads configuration from the file at path, if any, and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.session_ttl", "30m")
	v.SetDefault("server.sweep_interval", "1m")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("sample.path", "")

	v.SetDefault("csv.delimiter", ",")
	v.SetDefault("csv.location", "UTC")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("profile.mode", "")
	v.SetDefault("profile.path", ".")

	boost := gbt.NewDefaultBoostOptions()
	v.SetDefault("model.gbt.lags", 0)
	v.SetDefault("model.gbt.estimators", boost.NumEstimators)
	v.SetDefault("model.gbt.learning_rate", boost.LearningRate)
	v.SetDefault("model.gbt.max_depth", boost.MaxDepth)
	v.SetDefault("model.gbt.min_samples_leaf", boost.MinSamplesLeaf)

	additive := forecast.NewDefaultAdditiveOptions()
	v.SetDefault("model.additive.holidays", false)
	v.SetDefault("model.additive.changepoints", forecast.DefaultAutoNumChangepoints)
	v.SetDefault("model.additive.regularization", forecast.DefaultRegularization)
	v.SetDefault("model.additive.outlier_passes", additive.OutlierOptions.NumPasses)
	v.SetDefault("model.additive.residual_window", additive.ResidualWindow)
	v.SetDefault("model.additive.residual_zscore", additive.ResidualZscore)

	sarimaOpt := forecastlab.NewDefaultSARIMAOptions()
	v.SetDefault("model.sarima.max_iterations", sarimaOpt.MaxIterations)
	v.SetDefault("model.sarima.learning_rate", sarimaOpt.LearningRate)
	v.SetDefault("model.sarima.momentum", sarimaOpt.Momentum)
	v.SetDefault("model.sarima.decay", sarimaOpt.Decay)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be at least 1")
	}
	if c.Server.SessionTTL < time.Minute {
		return fmt.Errorf("server.session_ttl must be at least 1 minute")
	}
	if c.Server.SweepInterval <= 0 {
		return fmt.Errorf("server.sweep_interval must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if utf8.RuneCountInString(c.CSV.Delimiter) != 1 {
		return fmt.Errorf("csv.delimiter must be a single character")
	}
	if _, err := time.LoadLocation(c.CSV.Location); err != nil {
		return fmt.Errorf("csv.location is not a known time zone: %w", err)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	validProfiles := map[string]bool{"": true, "cpu": true, "mem": true}
	if !validProfiles[c.Profile.Mode] {
		return fmt.Errorf("profile.mode must be one of: cpu, mem or empty")
	}

	if _, err := c.EngineOptions(); err != nil {
		return err
	}
	return nil
}

// EngineOptions maps the model section onto the options used by every training run
func (c *Config) EngineOptions() (*forecastlab.Options, error) {
	opt := forecastlab.NewDefaultOptions()

	g := c.Model.GBT
	if g.Lags < 0 {
		return nil, fmt.Errorf("model.gbt.lags must be non-negative")
	}
	opt.GBT.Lags = g.Lags
	opt.GBT.BoostOptions = &gbt.BoostOptions{
		NumEstimators:  g.Estimators,
		LearningRate:   g.LearningRate,
		MaxDepth:       g.MaxDepth,
		MinSamplesLeaf: g.MinSamplesLeaf,
	}
	if _, err := opt.GBT.BoostOptions.Validate(); err != nil {
		return nil, fmt.Errorf("model.gbt is invalid: %w", err)
	}

	a := c.Model.Additive
	if a.Regularization < 0 {
		return nil, fmt.Errorf("model.additive.regularization must be non-negative")
	}
	if a.Changepoints < 0 || a.OutlierPasses < 0 {
		return nil, fmt.Errorf("model.additive changepoints and outlier_passes must be non-negative")
	}
	if a.ResidualWindow < forecast.MinResidualWindow || a.ResidualZscore <= 0 {
		return nil, fmt.Errorf("model.additive residual_window must be at least %d and residual_zscore positive", forecast.MinResidualWindow)
	}
	series := opt.Additive.SeriesOptions
	series.Regularization = a.Regularization
	series.ChangepointOptions.Auto = a.Changepoints > 0
	series.ChangepointOptions.AutoNumChangepoints = a.Changepoints
	series.EventOptions.Holidays = a.Holidays
	opt.Additive.OutlierOptions.NumPasses = a.OutlierPasses
	opt.Additive.ResidualWindow = a.ResidualWindow
	opt.Additive.ResidualZscore = a.ResidualZscore

	s := c.Model.SARIMA
	if s.MaxIterations < 1 || s.LearningRate <= 0 || s.Momentum < 0 || s.Decay <= 0 {
		return nil, fmt.Errorf("model.sarima optimizer settings must be positive")
	}
	opt.SARIMA = &forecastlab.SARIMAOptions{
		MaxIterations: s.MaxIterations,
		LearningRate:  s.LearningRate,
		Momentum:      s.Momentum,
		Decay:         s.Decay,
	}
	return opt, nil
}

// CSVOptions returns the parser settings for uploaded files
func (c *Config) CSVOptions() (*timedataset.CSVOptions, error) {
	opt := timedataset.NewDefaultCSVOptions()
	if c.CSV.Delimiter != "" {
		r, _ := utf8.DecodeRuneInString(c.CSV.Delimiter)
		opt.Delimiter = r
	}
	if c.CSV.Location != "" {
		loc, err := time.LoadLocation(c.CSV.Location)
		if err != nil {
			return nil, fmt.Errorf("unable to load csv.location, %w", err)
		}
		opt.Location = loc
	}
	return opt, nil
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
