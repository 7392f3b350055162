// ABOUTME: Logrus-backed logger implementation with structured field support
// ABOUTME: Adapts logrus to the Logger interface used across the core packages

package logrus

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger implements the Logger interface using logrus
type Logger struct {
	log *logrus.Logger
}

// New creates a logger writing text-formatted entries to out
func New(out io.Writer, level string) *Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return &Logger{log: log}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.entry(fields).Debug(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.entry(fields).Info(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.entry(fields).Warn(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.entry(fields).Error(msg)
}

func (l *Logger) entry(fields map[string]interface{}) *logrus.Entry {
	if len(fields) == 0 {
		return logrus.NewEntry(l.log)
	}
	return l.log.WithFields(logrus.Fields(fields))
}
