package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config holds logger configuration.
type Config struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
}

// Logger is a thin wrapper around a logrus entry, giving the rest of
// the gateway a small leveled-logging surface with structured fields
// and per-component child loggers.
type Logger struct {
	entry *logrus.Entry
}

// Field represents a structured logging key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

// New creates a new logger from cfg.
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	base := logrus.New()
	base.SetOutput(output)
	base.SetLevel(parseLevel(cfg.Level))

	if strings.EqualFold(cfg.Format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	return &Logger{entry: logrus.NewEntry(base)}
}

// WithComponent creates a child logger that tags every line with a
// "component" field.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{entry: l.entry.WithField("component", component)}
}

// Debug logs a debug-level message.
func (l *Logger) Debug(msg string, fields ...Field) {
	l.withFields(fields).Debug(msg)
}

// Info logs an info-level message.
func (l *Logger) Info(msg string, fields ...Field) {
	l.withFields(fields).Info(msg)
}

// Warn logs a warning-level message.
func (l *Logger) Warn(msg string, fields ...Field) {
	l.withFields(fields).Warn(msg)
}

// Error logs an error-level message.
func (l *Logger) Error(msg string, fields ...Field) {
	l.withFields(fields).Error(msg)
}

func (l *Logger) withFields(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	logrusFields := make(logrus.Fields, len(fields))
	for _, f := range fields {
		logrusFields[f.Key] = f.Value
	}
	return l.entry.WithFields(logrusFields)
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Field constructors.

func String(key, val string) Field       { return Field{Key: key, Value: val} }
func Int(key string, val int) Field      { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field  { return Field{Key: key, Value: val} }
func Uint64(key string, val uint64) Field { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field    { return Field{Key: key, Value: val} }
func Uint(key string, val uint) Field    { return Field{Key: key, Value: val} }
func Uint32(key string, val uint32) Field { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "nil"}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }
