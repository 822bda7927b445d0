// Package logger provides structured JSON logging for venue-events.
//
// The logger supports multiple log levels (DEBUG, INFO, WARN, ERROR) and writes
// one JSON object per line through zerolog. Every entry carries a timestamp,
// the level, the message, and any structured fields. Console output for local
// runs is available with FormatConsole.
//
// Example usage:
//
//	logger.Info("Venue scraped", logger.Fields{
//	    "venue": "the-camel",
//	    "events": 14,
//	})
//
//	logger.Error("Genre source failed", logger.Fields{
//	    "source": "spotify",
//	    "artist": "Big Thief",
//	}, err)
//
// Counters and timings live in the metrics package.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Output formats
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger provides structured logging
type Logger struct {
	zl zerolog.Logger
}

// Fields represents structured log fields
type Fields map[string]interface{}

var defaultLogger *Logger

func init() {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		return strings.ToUpper(l.String())
	}
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	defaultLogger = New(LevelInfo, os.Stdout)
}

// New creates a JSON logger with the specified minimum log level and output destination.
// Messages below the minimum level will be discarded.
func New(level Level, output io.Writer) *Logger {
	zl := zerolog.New(output).Level(zerologLevel(level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// NewWithFormat creates a logger that writes either JSON or human-readable console lines
func NewWithFormat(level Level, format string, output io.Writer) *Logger {
	if strings.EqualFold(format, FormatConsole) {
		cw := zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05", NoColor: output != os.Stdout}
		return New(level, cw)
	}
	return New(level, output)
}

// ParseLevel converts a LOG_LEVEL value to a Level, defaulting to INFO
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetDefault sets the default package-level logger used by the convenience functions
// (Debug, Info, Warn, Error). This allows centralizing logger configuration.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Default returns the package-level logger
func Default() *Logger {
	return defaultLogger
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{zl: l.zl.With().Fields(map[string]interface{}(fields)).Logger()}
}

func zerologLevel(level Level) zerolog.Level {
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

// log writes a structured log entry
func (l *Logger) log(level Level, message string, fields Fields, err error) {
	e := l.zl.WithLevel(zerologLevel(level))
	if e == nil {
		return
	}
	if len(fields) > 0 {
		e = e.Fields(map[string]interface{}(fields))
	}
	if err != nil {
		e = e.Err(err)
	}
	e.Msg(message)
}

// Debug logs a debug message with optional structured fields.
func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

// Info logs an informational message with optional structured fields.
func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

// Warn logs a warning message with optional structured fields.
// Warning messages indicate potential issues that don't prevent operation.
func (l *Logger) Warn(message string, fields Fields) {
	l.log(LevelWarn, message, fields, nil)
}

// Error logs an error message with optional structured fields and an error object.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

// Package-level convenience functions using default logger

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	defaultLogger.Debug(message, fields)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	defaultLogger.Info(message, fields)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields) {
	defaultLogger.Warn(message, fields)
}

// Error logs an error message with the default logger
func Error(message string, fields Fields, err error) {
	defaultLogger.Error(message, fields, err)
}
