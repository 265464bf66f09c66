package experiment

import "codeberg.org/mutker/labctl/internal/errors"

const (
	ErrUnknownExperiment = errors.ErrorCode("experiment_unknown")
	ErrUnknownKind       = errors.ErrorCode("experiment_unknown_kind")
	ErrInvalidDescriptor = errors.ErrorCode("experiment_invalid_descriptor")
	ErrCatalogRead       = errors.ErrorCode("experiment_catalog_read_failed")
)

func init() {
	errors.RegisterMessage(ErrUnknownExperiment, "Unknown experiment")
	errors.RegisterMessage(ErrUnknownKind, "Unknown experiment kind")
	errors.RegisterMessage(ErrInvalidDescriptor, "Invalid experiment descriptor")
	errors.RegisterMessage(ErrCatalogRead, "Failed to read experiment catalog")
}
