package export

import "codeberg.org/mutker/labctl/internal/errors"

const (
	ErrEncodingFailure = errors.ErrorCode("export_encoding_failed")
	ErrWriteFailure    = errors.ErrorCode("export_write_failed")
	ErrUnknownFormat   = errors.ErrorCode("export_unknown_format")
)

func init() {
	errors.RegisterMessage(ErrEncodingFailure, "Export record cannot be encoded as UTF-8")
	errors.RegisterMessage(ErrWriteFailure, "Failed to write export artifact")
	errors.RegisterMessage(ErrUnknownFormat, "Unknown export format")
}
