package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every component depends on.
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(err error)
	WithFields(fields map[string]any) Logger
}

// LogrusLogger implements Logger using logrus.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a JSON logrus logger writing to stdout and, when
// filepath is non-empty, appending to that file as well.
func NewLogrusLogger(filepath, level string) (Logger, error) {
	return NewLogrusLoggerTo(os.Stdout, filepath, level)
}

// NewLogrusLoggerTo is NewLogrusLogger with a different console stream.
// CLI commands log to stderr so stdout stays machine-readable.
func NewLogrusLoggerTo(console io.Writer, filepath, level string) (Logger, error) {
	out := console
	if filepath != "" {
		file, err := os.OpenFile(filepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(console, file)
	}

	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}

	return newLogger(out, lvl), nil
}

// Discard returns a Logger that drops everything. Used by tests and by
// commands whose stdout carries machine-readable output.
func Discard() Logger {
	return newLogger(io.Discard, logrus.PanicLevel)
}

func newLogger(w io.Writer, lvl logrus.Level) *LogrusLogger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05.000000",
	})
	base.SetLevel(lvl)
	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

func (l *LogrusLogger) Info(msg string) {
	l.entry.Info(msg)
}

func (l *LogrusLogger) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *LogrusLogger) Error(err error) {
	l.entry.Error(err)
}

func (l *LogrusLogger) WithFields(fields map[string]any) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}
