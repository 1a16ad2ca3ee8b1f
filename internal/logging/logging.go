// Package logging provides the leveled, structured logger used across the service.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logging severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Fields carries structured key/value pairs attached to a log line
type Fields map[string]interface{}

// WithField returns a single-entry Fields
func WithField(key string, value interface{}) Fields {
	return Fields{key: value}
}

// WithFields converts a plain map into Fields
func WithFields(fields map[string]interface{}) Fields {
	return Fields(fields)
}

// Logger writes JSON log lines at or above its configured level
type Logger struct {
	zl    zerolog.Logger
	level Level
}

// New creates a logger writing to stdout
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(level Level, w io.Writer) *Logger {
	zl := zerolog.New(w).
		Level(toZerolog(level)).
		With().
		Timestamp().
		Logger()
	return &Logger{zl: zl, level: level}
}

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Level returns the configured minimum level
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.write(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.write(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.write(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.write(l.zl.Error(), msg, fields)
}

func (l *Logger) write(ev *zerolog.Event, msg string, fields []Fields) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		for k, v := range f {
			switch val := v.(type) {
			case error:
				ev = ev.Str(k, val.Error())
			case time.Duration:
				ev = ev.Dur(k, val)
			default:
				ev = ev.Interface(k, val)
			}
		}
	}
	ev.Msg(msg)
}

func toZerolog(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
