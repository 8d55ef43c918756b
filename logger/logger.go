// Package logger configures logrus loggers from the logging section of the configuration.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a logger at the given level writing json or text to stdout. An unknown level
// falls back to info.
func New(level string, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput is New writing to w
func NewWithOutput(level string, format string, w io.Writer) *logrus.Logger {
	log := logrus.New()
	Configure(log, level, format)
	log.SetOutput(w)
	return log
}

// Configure applies the level and format to an existing logger, such as the standard logger used
// by the model packages
func Configure(log *logrus.Logger, level string, format string) {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		parsedLevel = logrus.InfoLevel
	}
	log.SetLevel(parsedLevel)

	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	}
}
