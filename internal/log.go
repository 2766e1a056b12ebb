package internal

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// zerolog levels indexed by LogLevel
var zerologLevels = [...]zerolog.Level{
	LogLevelError: zerolog.ErrorLevel,
	LogLevelWarn:  zerolog.WarnLevel,
	LogLevelInfo:  zerolog.InfoLevel,
	LogLevelDebug: zerolog.DebugLevel,
	LogLevelTrace: zerolog.TraceLevel,
}

// per-logger levels do the filtering
func init() {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	zerolog.TimeFieldFormat = time.RFC3339
}

// Logger provides leveled logging
type Logger struct {
	level LogLevel
	zl    zerolog.Logger
}

// NewLogger creates a JSON logger on stderr with the specified level
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a JSON logger writing to w
func NewLoggerTo(w io.Writer, level LogLevel) *Logger {
	zl := zerolog.New(w).Level(zerologLevels[level]).With().Timestamp().Logger()
	return &Logger{level: level, zl: zl}
}

// NewConsoleLogger creates a human readable logger for terminal use
func NewConsoleLogger(level LogLevel) *Logger {
	return NewLoggerTo(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, level)
}

// ParseLogLevel maps a LOG_LEVEL value to a LogLevel, defaulting to info
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")))
}

// With returns a child logger carrying an extra field
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{level: l.level, zl: l.zl.With().Interface(key, value).Logger()}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	l.zl.Trace().Msgf(format, args...)
}

// Zerolog exposes the underlying logger for structured events
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Global logger instance
var DefaultLogger = NewDefaultLogger()
