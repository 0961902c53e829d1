package core

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// LogLevel orders log severities for threshold filtering.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

// ParseLogLevel maps a config string to a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "fatal":
		return LogLevelFatal
	default:
		return LogLevelInfo
	}
}

var loggerInstance = *NewDevelopmentLogger(LogLevelInfo)

// SetLogger sets the global logger instance.
func SetLogger(logger *Logger) {
	loggerInstance = *logger
}

// GetLogger retrieves the global logger instance.
func GetLogger() *Logger {
	return &loggerInstance
}

// Logger is a small leveled logger with fixed attributes. The handler
// function receives every record that passes the threshold filter, which
// keeps the sink swappable in tests.
type Logger struct {
	handlerFunc func(level LogLevel, msg string, attrs map[string]any)
	attrs       map[string]any
	minLevel    LogLevel
}

func NewLogger(minLevel LogLevel, handler func(level LogLevel, msg string, attrs map[string]any)) *Logger {
	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]any),
		minLevel:    minLevel,
	}
}

// NewDevelopmentLogger creates a logger with plain console output.
func NewDevelopmentLogger(minLevel LogLevel) *Logger {
	handler := func(level LogLevel, msg string, attrs map[string]any) {
		attrStr := ""
		for k, v := range attrs {
			attrStr += fmt.Sprintf(" %s=%v", k, v)
		}
		line := fmt.Sprintf("%s [%s] %s%s\n", time.Now().Format(time.RFC3339), level, msg, attrStr)
		if level >= LogLevelError {
			fmt.Fprint(os.Stderr, line)
		} else {
			fmt.Print(line)
		}
		if level == LogLevelFatal {
			os.Exit(1)
		}
	}
	return NewLogger(minLevel, handler)
}

// NewNopLogger creates a logger that discards everything. Useful in tests.
func NewNopLogger() *Logger {
	return NewLogger(LogLevelFatal+1, func(LogLevel, string, map[string]any) {})
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	if l.handlerFunc == nil || level < l.minLevel {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.handlerFunc(level, msg, l.attrs)
}

func (l *Logger) Debug(msg string)                  { l.log(LogLevelDebug, msg) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LogLevelDebug, format, args...) }
func (l *Logger) Info(msg string)                   { l.log(LogLevelInfo, msg) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LogLevelInfo, format, args...) }
func (l *Logger) Warn(msg string)                   { l.log(LogLevelWarn, msg) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LogLevelWarn, format, args...) }
func (l *Logger) Error(msg string)                  { l.log(LogLevelError, msg) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LogLevelError, format, args...) }
func (l *Logger) Fatal(msg string)                  { l.log(LogLevelFatal, msg) }
func (l *Logger) Fatalf(format string, args ...any) { l.log(LogLevelFatal, format, args...) }

// With returns a child logger carrying additional fixed attributes.
func (l *Logger) With(attrs map[string]any) *Logger {
	combined := make(map[string]any, len(l.attrs)+len(attrs))
	for k, v := range l.attrs {
		combined[k] = v
	}
	for k, v := range attrs {
		combined[k] = v
	}
	return &Logger{
		handlerFunc: l.handlerFunc,
		attrs:       combined,
		minLevel:    l.minLevel,
	}
}
