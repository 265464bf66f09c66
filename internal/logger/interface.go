package logger

import "codeberg.org/mutker/labctl/internal/errors"

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
	// With returns a child logger tagged with a component name.
	With(component string) Logger
}
