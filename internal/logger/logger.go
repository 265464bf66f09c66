package logger

import (
	"io"
	"os"
	"syscall"
	"time"

	"codeberg.org/mutker/labctl/internal/errors"
	"github.com/rs/zerolog"
)

var log = &zlog{zerolog.New(os.Stdout).With().Timestamp().Logger()}

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// zlog is the zerolog-backed Logger implementation.
type zlog struct {
	zerolog.Logger
}

func (l *zlog) Debug() *LogEvent {
	return &LogEvent{l.Logger.Debug()}
}

func (l *zlog) Info() *LogEvent {
	return &LogEvent{l.Logger.Info()}
}

func (l *zlog) Warn() *LogEvent {
	return &LogEvent{l.Logger.Warn()}
}

func (l *zlog) Error() *LogEvent {
	return &LogEvent{l.Logger.Error()}
}

func (l *zlog) ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{l.Logger.Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

func (l *zlog) With(component string) Logger {
	return &zlog{l.Logger.With().Str("component", component).Logger()}
}

// Init initializes the logger based on the given configuration
func Init(level string, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = &zlog{zerolog.New(output).With().Timestamp().Logger()}

	SetLogLevel(ParseLevel(level))
}

// New returns a Logger writing JSON lines to w. Used by tests and by
// callers that need their own sink.
func New(w io.Writer) Logger {
	return &zlog{zerolog.New(w).With().Timestamp().Logger()}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zlog{zerolog.Nop()}
}

// Default returns the process-wide logger configured by Init.
func Default() Logger {
	return log
}

// ParseLevel maps a configured level name to a LogLevel. Unknown names
// map to InfoLevel; config validation rejects them earlier.
func ParseLevel(level string) LogLevel {
	switch level {
	case "debug":
		return DebugLevel
	case "warning", "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return log.Debug()
}

// Info logs an info message
func Info() *LogEvent {
	return log.Info()
}

// Warn logs a warning message
func Warn() *LogEvent {
	return log.Warn()
}

// Error logs an error message
func Error() *LogEvent {
	return log.Error()
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return log.ErrorWithCode(err)
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Logger.Fatal()}
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	return &LogEvent{log.Logger.Fatal().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}
