// Package export serializes captured series into portable artifacts.
package export

import (
	"math"
	"os"
	"strconv"
	"strings"

	"codeberg.org/mutker/labctl/internal/errors"
	"codeberg.org/mutker/labctl/internal/logger"
	"codeberg.org/mutker/labctl/internal/series"
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// Encoder writes series to a single artifact and returns its path.
// Failures are returned once; callers decide whether to retry.
type Encoder interface {
	Encode(all []series.Series, name string) (string, error)
}

// Artifact formats
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// New returns the encoder for format, writing into dir.
func New(format, dir string, log logger.Logger) (Encoder, error) {
	switch format {
	case FormatCSV, "":
		return NewCSV(dir), nil
	case FormatSQLite:
		return NewSQLite(dir, log), nil
	default:
		return nil, errors.New().WithData(ErrUnknownFormat, format)
	}
}

// ensureDir creates the output directory if it does not exist yet.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return errors.New().Wrap(ErrWriteFailure, err)
	}

	return nil
}

// formatFloat renders a value the way the record format expects: the
// shortest exact decimal, always with a fractional part ("0.0", "1.5").
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.ContainsRune(s, '.') {
		return s
	}

	return s + ".0"
}
