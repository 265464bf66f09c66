package export

import (
	"database/sql"

	"codeberg.org/mutker/labctl/internal/errors"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS series (
	       position INTEGER PRIMARY KEY,
	       id       TEXT NOT NULL,
	       label    TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS samples (
	       series    INTEGER NOT NULL REFERENCES series(position),
	       seq       INTEGER NOT NULL,
	       timestamp REAL NOT NULL CHECK (timestamp >= 0),
	       value     REAL NOT NULL,
	       PRIMARY KEY (series, seq)
	   );`

	insertSeriesSQL = `INSERT INTO series (position, id, label) VALUES (?, ?, ?)`

	insertSampleSQL = `
    INSERT INTO samples (series, seq, timestamp, value)
    VALUES (?, ?, ?, ?)`
)

// initSchema creates the artifact schema and records its version
func initSchema(tx *sql.Tx) error {
	errFactory := errors.New()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrWriteFailure, struct {
			Phase string
			Error string
		}{
			Phase: "create_tables",
			Error: err.Error(),
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrWriteFailure, struct {
			Phase string
			Error string
		}{
			Phase: "record_version",
			Error: err.Error(),
		})
	}

	return nil
}
