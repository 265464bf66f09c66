package config

import "codeberg.org/mutker/labctl/internal/errors"

const (
	ErrInvalidRunMode  = errors.ErrorCode("invalid_run_mode")
	ErrInvalidDuration = errors.ErrorCode("invalid_duration")
	ErrInvalidFormat   = errors.ErrorCode("invalid_export_format")
)

func init() {
	errors.RegisterMessage(ErrInvalidRunMode, "Invalid run mode")
	errors.RegisterMessage(ErrInvalidDuration, "Duration must not be negative")
	errors.RegisterMessage(ErrInvalidFormat, "Invalid export format")
}
