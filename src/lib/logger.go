package lib

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of log messages
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerologLevel() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLogLevel converts a level name to a LogLevel.
// Returns INFO and false if the name is not recognised.
func ParseLogLevel(name string) (LogLevel, bool) {
	for _, level := range []LogLevel{DEBUG, INFO, WARN, ERROR, FATAL} {
		if level.String() == name {
			return level, true
		}
	}
	return INFO, false
}

// Logger provides structured JSON logging with context
type Logger struct {
	component string
	level     LogLevel
	writer    io.Writer
	zl        zerolog.Logger
}

// NewLogger creates a new logger for the specified component
func NewLogger(component string) *Logger {
	l := &Logger{
		component: component,
		level:     getDefaultLevel(),
	}
	l.SetOutput(getDefaultWriter())
	return l
}

var (
	defaultWriter    io.Writer = os.Stderr
	defaultLevel               = INFO
	defaultWriterMux sync.RWMutex
)

func getDefaultWriter() io.Writer {
	defaultWriterMux.RLock()
	defer defaultWriterMux.RUnlock()
	return defaultWriter
}

func setDefaultWriter(writer io.Writer) {
	if writer == nil {
		writer = io.Discard
	}
	defaultWriterMux.Lock()
	defer defaultWriterMux.Unlock()
	defaultWriter = writer
}

func getDefaultLevel() LogLevel {
	defaultWriterMux.RLock()
	defer defaultWriterMux.RUnlock()
	return defaultLevel
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// SetOutput sets the destination writer for this logger instance
func (l *Logger) SetOutput(writer io.Writer) {
	if writer == nil {
		writer = io.Discard
	}
	l.writer = writer
	l.zl = zerolog.New(writer).With().Timestamp().Str("component", l.component).Logger()
}

// Debug logs a debug message with optional context
func (l *Logger) Debug(message string, context ...map[string]interface{}) {
	l.log(DEBUG, message, context...)
}

// Info logs an info message with optional context
func (l *Logger) Info(message string, context ...map[string]interface{}) {
	l.log(INFO, message, context...)
}

// Warn logs a warning message with optional context
func (l *Logger) Warn(message string, context ...map[string]interface{}) {
	l.log(WARN, message, context...)
}

// Error logs an error message with optional context
func (l *Logger) Error(message string, context ...map[string]interface{}) {
	l.log(ERROR, message, context...)
}

// Fatal logs a fatal message and exits the program
func (l *Logger) Fatal(message string, context ...map[string]interface{}) {
	l.log(FATAL, message, context...)
	os.Exit(1)
}

func (l *Logger) log(level LogLevel, message string, context ...map[string]interface{}) {
	if level < l.level {
		return
	}

	// WithLevel never exits, even at FatalLevel; Fatal handles that itself.
	event := l.zl.WithLevel(level.zerologLevel())
	for _, ctx := range context {
		event = event.Fields(ctx)
	}
	event.Msg(message)
}

// WithContext creates a convenience function for logging with common context
func (l *Logger) WithContext(context map[string]interface{}) func(LogLevel, string) {
	return func(level LogLevel, message string) {
		l.log(level, message, context)
	}
}

// Global logger instance for convenience
var globalLogger = NewLogger("screentime-bar")

// SetGlobalLevel sets the global logger level and the level for future loggers
func SetGlobalLevel(level LogLevel) {
	defaultWriterMux.Lock()
	defaultLevel = level
	defaultWriterMux.Unlock()
	globalLogger.SetLevel(level)
}

// SetGlobalOutput sets the output writer for global logging and future loggers
func SetGlobalOutput(writer io.Writer) {
	setDefaultWriter(writer)
	globalLogger.SetOutput(writer)
}

// GetGlobalOutput returns the writer new loggers are created with
func GetGlobalOutput() io.Writer {
	return getDefaultWriter()
}

// Debug logs using the global logger
func Debug(message string, context ...map[string]interface{}) {
	globalLogger.Debug(message, context...)
}

// Info logs using the global logger
func Info(message string, context ...map[string]interface{}) {
	globalLogger.Info(message, context...)
}

// Warn logs using the global logger
func Warn(message string, context ...map[string]interface{}) {
	globalLogger.Warn(message, context...)
}

// Error logs using the global logger
func Error(message string, context ...map[string]interface{}) {
	globalLogger.Error(message, context...)
}

// Fatal logs using the global logger and exits
func Fatal(message string, context ...map[string]interface{}) {
	globalLogger.Fatal(message, context...)
}
