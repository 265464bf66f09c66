package export_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/labctl/internal/errors"
	"codeberg.org/mutker/labctl/internal/export"
	"codeberg.org/mutker/labctl/internal/logger"
	"codeberg.org/mutker/labctl/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labeled(label string, samples ...series.Sample) series.Series {
	s := series.New(label)
	s.Samples = samples
	return s
}

func TestRecordSingleSample(t *testing.T) {
	record, err := export.Record([]series.Series{
		labeled("A", series.Sample{Timestamp: 0, Value: 1.0}),
	})
	require.NoError(t, err)
	assert.Equal(t, "time,value,label\n0.0,1.0,A\n", record)
}

func TestRecordEmpty(t *testing.T) {
	record, err := export.Record(nil)
	require.NoError(t, err)
	assert.Equal(t, "time,value,label\n", record)

	record, err = export.Record([]series.Series{labeled("A")})
	require.NoError(t, err)
	assert.Equal(t, "time,value,label\n", record)
}

func TestRecordOrderAndFormatting(t *testing.T) {
	record, err := export.Record([]series.Series{
		labeled("x, raw",
			series.Sample{Timestamp: 1.0 / 60.0, Value: 0.98},
			series.Sample{Timestamp: 0.5, Value: -2},
		),
		labeled("B", series.Sample{Timestamp: 12, Value: 1e21}),
	})
	require.NoError(t, err)

	assert.Equal(t, "time,value,label\n"+
		"0.016666666666666666,0.98,x, raw\n"+
		"0.5,-2.0,x, raw\n"+
		"12.0,1000000000000000000000.0,B\n", record)
}

func TestRecordRejectsInvalidUTF8(t *testing.T) {
	_, err := export.Record([]series.Series{
		labeled("bad\xff", series.Sample{Timestamp: 0, Value: 1}),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, export.ErrEncodingFailure))
}

func TestCSVEncodeWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	enc := export.NewCSV(dir)

	path, err := enc.Encode([]series.Series{
		labeled("A", series.Sample{Timestamp: 0, Value: 1.0}),
	}, "Accelerometer_Magnitude")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Accelerometer_Magnitude.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "time,value,label\n0.0,1.0,A\n", string(data))
}

func TestCSVEncodeWriteFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := export.NewCSV(blocker).Encode(nil, "out")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, export.ErrWriteFailure))
}

func TestCSVDefaultsToTempDir(t *testing.T) {
	assert.Equal(t, os.TempDir(), export.NewCSV("").Dir)
}

func TestSQLiteEncode(t *testing.T) {
	dir := t.TempDir()
	enc := export.NewSQLite(dir, logger.Nop())
	all := []series.Series{
		labeled("A",
			series.Sample{Timestamp: 0, Value: 1},
			series.Sample{Timestamp: 0.5, Value: 2},
		),
		labeled("B", series.Sample{Timestamp: 0.25, Value: 3}),
	}

	path, err := enc.Encode(all, "run")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run.db"), path)

	// A second export replaces the first artifact.
	path, err = enc.Encode(all, "run")
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.QueryRow(`SELECT version FROM schema_versions`).Scan(&version))
	assert.Equal(t, export.SchemaVersion, version)

	var seriesCount, sampleCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM series`).Scan(&seriesCount))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&sampleCount))
	assert.Equal(t, 2, seriesCount)
	assert.Equal(t, 3, sampleCount)

	var label, id string
	require.NoError(t, db.QueryRow(`SELECT label, id FROM series WHERE position = 1`).Scan(&label, &id))
	assert.Equal(t, "B", label)
	assert.Equal(t, all[1].ID.String(), id)

	rows, err := db.Query(`SELECT timestamp, value FROM samples WHERE series = 0 ORDER BY seq`)
	require.NoError(t, err)
	defer rows.Close()

	var got []series.Sample
	for rows.Next() {
		var s series.Sample
		require.NoError(t, rows.Scan(&s.Timestamp, &s.Value))
		got = append(got, s)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, all[0].Samples, got)
}

func TestSQLiteRejectsInvalidUTF8(t *testing.T) {
	_, err := export.NewSQLite(t.TempDir(), nil).Encode([]series.Series{labeled("\xfe")}, "run")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, export.ErrEncodingFailure))
}

func TestNewSelectsFormat(t *testing.T) {
	dir := t.TempDir()

	enc, err := export.New(export.FormatCSV, dir, nil)
	require.NoError(t, err)
	assert.IsType(t, &export.CSV{}, enc)

	enc, err = export.New(export.FormatSQLite, dir, nil)
	require.NoError(t, err)
	assert.IsType(t, &export.SQLite{}, enc)

	_, err = export.New("parquet", dir, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, export.ErrUnknownFormat))
}
