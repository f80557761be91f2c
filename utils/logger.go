package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// LoggerOptions selects level, format and destination of a Logger.
type LoggerOptions struct {
	Level      string // debug | info | warn | error
	Format     string // text | json
	File       string // empty logs to stdout
	MaxAgeDays int
}

// Logger provides structured, leveled logging throughout the application.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a text Logger writing to stdout at info level.
func NewLogger() *Logger {
	l, _ := NewLoggerWith(LoggerOptions{})
	return l
}

// NewLoggerWith builds a Logger from opts. Unknown levels fall back to info;
// an unknown format is an error.
func NewLoggerWith(opts LoggerOptions) (*Logger, error) {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		return &Logger{entry: logrus.NewEntry(base)}, fmt.Errorf("invalid log format %q", opts.Format)
	}

	out, err := logOutput(opts)
	if err != nil {
		return &Logger{entry: logrus.NewEntry(base)}, err
	}
	base.SetOutput(out)

	return &Logger{entry: logrus.NewEntry(base)}, nil
}

func logOutput(opts LoggerOptions) (io.Writer, error) {
	switch opts.File {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return os.Stdout, fmt.Errorf("log: create dir: %w", err)
	}
	return &lumberjack.Logger{
		Filename: opts.File,
		MaxAge:   opts.MaxAgeDays,
		MaxSize:  100,
		Compress: true,
	}, nil
}

// With returns a child logger carrying the given fields on every line.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// Component tags every line with the emitting component.
func (l *Logger) Component(name string) *Logger {
	return &Logger{entry: l.entry.WithField("component", name)}
}

// SetOutput redirects the logger, mainly for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

func (l *Logger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}
