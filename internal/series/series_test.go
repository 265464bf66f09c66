package series_test

import (
	"testing"

	"codeberg.org/mutker/labctl/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearedKeepsIdentity(t *testing.T) {
	s := series.New("Acceleration Magnitude")
	s.Samples = append(s.Samples, series.Sample{Timestamp: 0.1, Value: 1.2})

	c := s.Cleared()
	assert.Equal(t, s.ID, c.ID)
	assert.Equal(t, s.Label, c.Label)
	assert.Zero(t, c.Len())
}

func TestCloneIsIndependent(t *testing.T) {
	s := series.New("A")
	s.Samples = append(s.Samples, series.Sample{Timestamp: 0, Value: 1})

	c := s.Clone()
	s.Samples[0].Value = 42
	s.Samples = append(s.Samples, series.Sample{Timestamp: 1, Value: 2})

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 1.0, c.Samples[0].Value)
}

func TestLast(t *testing.T) {
	s := series.New("A")
	_, ok := s.Last()
	assert.False(t, ok)

	s.Samples = append(s.Samples,
		series.Sample{Timestamp: 0, Value: 1},
		series.Sample{Timestamp: 0.5, Value: 3},
	)
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, series.Sample{Timestamp: 0.5, Value: 3}, last)
}

func TestCloneAllAndTotal(t *testing.T) {
	a := series.New("A")
	a.Samples = []series.Sample{{Timestamp: 0, Value: 1}, {Timestamp: 1, Value: 2}}
	b := series.New("B")
	b.Samples = []series.Sample{{Timestamp: 0, Value: 3}}

	all := series.CloneAll([]series.Series{a, b})
	assert.Equal(t, 3, series.TotalSamples(all))

	a.Samples[0].Value = 99
	assert.Equal(t, 1.0, all[0].Samples[0].Value)
	assert.Empty(t, series.CloneAll(nil))
}

func TestViewSharesStorageWithoutSeeingAppends(t *testing.T) {
	s := series.New("A")
	s.Samples = make([]series.Sample, 1, 8)
	s.Samples[0] = series.Sample{Timestamp: 0, Value: 1}

	v := s.View()
	assert.Equal(t, s.ID, v.ID)
	assert.Same(t, &s.Samples[0], &v.Samples[0], "no copy is made")

	s.Samples = append(s.Samples, series.Sample{Timestamp: 1, Value: 2})
	assert.Equal(t, 1, v.Len())

	// Appending through the view cannot overwrite the owner's samples.
	v.Samples = append(v.Samples, series.Sample{Timestamp: 9, Value: 9})
	assert.Equal(t, 2.0, s.Samples[1].Value)
}
