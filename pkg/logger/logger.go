// Package logger wraps logrus with the engine's service-scoped logging
// conventions: a named service field on every entry, JSON or text output
// selected by configuration, and small helpers for the engine's lifecycle
// and error logging.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger with a fixed service name.
type Logger struct {
	*logrus.Logger
	service string
}

// Config controls logger construction.
type Config struct {
	Level   string
	Format  string
	Service string
}

// New builds a Logger from Config, defaulting to info level and text
// output on unrecognized values.
func New(cfg Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.SetOutput(os.Stdout)

	return &Logger{Logger: l, service: cfg.Service}
}

// NewDefault builds a Logger at info level with text output.
func NewDefault(service string) *Logger {
	return New(Config{Level: "info", Format: "text", Service: service})
}

func (l *Logger) base() *logrus.Entry {
	if l.service == "" {
		return logrus.NewEntry(l.Logger)
	}
	return l.Logger.WithField("service", l.service)
}

// WithField returns a log entry carrying the service field plus key.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.base().WithField(key, value)
}

// WithFields returns a log entry carrying the service field plus fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.base().WithFields(fields)
}

// WithError returns a log entry carrying the service field plus an error.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.base().WithError(err)
}

// LogExecution logs one execution lifecycle transition.
func (l *Logger) LogExecution(executionID, scenarioID, status string) {
	l.WithFields(logrus.Fields{
		"executionId": executionID,
		"scenarioId":  scenarioID,
		"status":      status,
	}).Info("execution transition")
}

// LogStepOutcome logs one step's terminal outcome.
func (l *Logger) LogStepOutcome(executionID, stepID, status string, attempts int) {
	l.WithFields(logrus.Fields{
		"executionId": executionID,
		"stepId":      stepID,
		"status":      status,
		"attempts":    attempts,
	}).Info("step outcome")
}

// LogSubscriberFailure logs (never propagates) an event-subscriber delivery
// failure.
func (l *Logger) LogSubscriberFailure(topic string, err error) {
	l.WithField("topic", topic).WithError(err).Warn("event subscriber delivery failed")
}
