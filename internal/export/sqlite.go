package export

import (
	"database/sql"
	"os"
	"path/filepath"
	"unicode/utf8"

	"codeberg.org/mutker/labctl/internal/errors"
	"codeberg.org/mutker/labctl/internal/logger"
	"codeberg.org/mutker/labctl/internal/series"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite writes series into a self-contained database file at
// Dir/<name>.db, replacing any previous file of that name.
type SQLite struct {
	Dir string
	log logger.Logger
}

func NewSQLite(dir string, log logger.Logger) *SQLite {
	if dir == "" {
		dir = os.TempDir()
	}
	if log == nil {
		log = logger.Nop()
	}

	return &SQLite{Dir: dir, log: log.With("export")}
}

func (e *SQLite) Encode(all []series.Series, name string) (string, error) {
	errFactory := errors.New()

	for _, s := range all {
		if !utf8.ValidString(s.Label) {
			return "", errFactory.WithData(ErrEncodingFailure, s.ID.String())
		}
	}

	if err := ensureDir(e.Dir); err != nil {
		return "", err
	}

	path := filepath.Join(e.Dir, name+".db")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", errFactory.Wrap(ErrWriteFailure, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return "", errFactory.Wrap(ErrWriteFailure, err)
	}
	defer db.Close()

	if err := e.write(db, all); err != nil {
		return "", err
	}

	e.log.Debug().
		Str("path", path).
		Int("series", len(all)).
		Int("samples", series.TotalSamples(all)).
		Msg("SQLite artifact written")

	return path, nil
}

func (e *SQLite) write(db *sql.DB, all []series.Series) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrWriteFailure, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				e.log.Debug().Err(err).Msg("Failed to rollback export transaction")
			}
		}
	}()

	if err := initSchema(tx); err != nil {
		return err
	}

	seriesStmt, err := tx.Prepare(insertSeriesSQL)
	if err != nil {
		return errFactory.Wrap(ErrWriteFailure, err)
	}
	defer seriesStmt.Close()

	sampleStmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		return errFactory.Wrap(ErrWriteFailure, err)
	}
	defer sampleStmt.Close()

	for pos, s := range all {
		if _, err := seriesStmt.Exec(pos, s.ID.String(), s.Label); err != nil {
			return errFactory.Wrap(ErrWriteFailure, err)
		}

		for seq, sample := range s.Samples {
			if _, err := sampleStmt.Exec(pos, seq, sample.Timestamp, sample.Value); err != nil {
				return errFactory.Wrap(ErrWriteFailure, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrWriteFailure, err)
	}
	committed = true

	return nil
}
