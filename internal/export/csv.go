package export

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"codeberg.org/mutker/labctl/internal/errors"
	"codeberg.org/mutker/labctl/internal/series"
)

// Header is the first row of every CSV record.
const Header = "time,value,label"

// CSV writes a row-oriented text record to Dir/<name>.csv. Labels are
// written verbatim; embedded commas are not escaped.
type CSV struct {
	Dir string
}

// NewCSV returns a CSV encoder writing into dir, or the OS temp directory
// when dir is empty.
func NewCSV(dir string) *CSV {
	if dir == "" {
		dir = os.TempDir()
	}

	return &CSV{Dir: dir}
}

// Record assembles the text record for all series: the header, then one
// row per sample in series order then sample order.
func Record(all []series.Series) (string, error) {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')

	for _, s := range all {
		for _, sample := range s.Samples {
			b.WriteString(formatFloat(sample.Timestamp))
			b.WriteByte(',')
			b.WriteString(formatFloat(sample.Value))
			b.WriteByte(',')
			b.WriteString(s.Label)
			b.WriteByte('\n')
		}
	}

	record := b.String()
	if !utf8.ValidString(record) {
		return "", errors.New().New(ErrEncodingFailure)
	}

	return record, nil
}

func (c *CSV) Encode(all []series.Series, name string) (string, error) {
	record, err := Record(all)
	if err != nil {
		return "", err
	}

	if err := ensureDir(c.Dir); err != nil {
		return "", err
	}

	path := filepath.Join(c.Dir, name+".csv")
	if err := os.WriteFile(path, []byte(record), defaultFilePerm); err != nil {
		return "", errors.New().Wrap(ErrWriteFailure, err)
	}

	return path, nil
}
