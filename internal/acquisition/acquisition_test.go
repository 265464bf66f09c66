package acquisition_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/labctl/internal/acquisition"
	"codeberg.org/mutker/labctl/internal/runloop"
	"codeberg.org/mutker/labctl/internal/series"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const interval = 100 * time.Millisecond

// scriptedSource replays values; NaN entries simulate a missing reading.
// It is only touched from the run loop.
type scriptedSource struct {
	values        []float64
	next          int
	missing       map[int]bool
	activations   int
	deactivations int
}

func (s *scriptedSource) Activate()   { s.activations++ }
func (s *scriptedSource) Deactivate() { s.deactivations++ }

func (s *scriptedSource) CurrentReading() (float64, bool) {
	i := s.next
	s.next++
	if s.missing[i] || len(s.values) == 0 {
		return 0, false
	}
	return s.values[i%len(s.values)], true
}

type fixture struct {
	t      *testing.T
	mock   *clock.Mock
	run    *runloop.Loop
	source *scriptedSource
	loop   *acquisition.Loop
	notes  int
}

func newFixture(t *testing.T, source *scriptedSource) *fixture {
	t.Helper()

	mock := clock.NewMock()
	run := runloop.New(mock)
	t.Cleanup(run.Close)

	f := &fixture{t: t, mock: mock, run: run, source: source}
	run.Do(func() {
		f.loop = acquisition.New(run, source, acquisition.Options{
			Label:            "Acceleration Magnitude",
			SamplingInterval: interval,
		})
		f.loop.OnSample(func() { f.notes++ })
	})

	return f
}

func (f *fixture) start() {
	f.run.Do(func() { f.loop.Start(f.run.NewEpoch()) })
}

func (f *fixture) series() []series.Series {
	var out []series.Series
	f.run.Do(func() { out = f.loop.Series() })
	return out
}

func (f *fixture) samples() int {
	return f.series()[0].Len()
}

// tick advances the clock one interval and waits for the sample job.
func (f *fixture) tick() {
	f.t.Helper()

	var before int
	f.run.Do(func() { before = f.source.next })
	f.mock.Add(interval)
	require.Eventually(f.t, func() bool {
		var polled int
		f.run.Do(func() { polled = f.source.next })
		return polled > before
	}, time.Second, time.Millisecond)
}

func TestNewLoopIsIdleWithLabeledSeries(t *testing.T) {
	f := newFixture(t, &scriptedSource{values: []float64{1}})

	all := f.series()
	require.Len(t, all, 1)
	assert.Equal(t, "Acceleration Magnitude", all[0].Label)
	assert.Zero(t, all[0].Len())

	f.run.Do(func() {
		assert.False(t, f.loop.IsCollecting())
		assert.Equal(t, interval, f.loop.Interval())
	})
}

func TestSamplesAreTimestampedFromEpoch(t *testing.T) {
	f := newFixture(t, &scriptedSource{values: []float64{1.0, 1.1, 0.9}})
	f.start()

	f.tick()
	f.tick()
	f.tick()

	s := f.series()[0]
	require.Equal(t, 3, s.Len())
	assert.InDelta(t, 0.1, s.Samples[0].Timestamp, 1e-9)
	assert.InDelta(t, 0.2, s.Samples[1].Timestamp, 1e-9)
	assert.InDelta(t, 0.3, s.Samples[2].Timestamp, 1e-9)
	assert.Equal(t, []float64{1.0, 1.1, 0.9},
		[]float64{s.Samples[0].Value, s.Samples[1].Value, s.Samples[2].Value})

	f.run.Do(func() { assert.Equal(t, 3, f.notes) })
}

func TestMissingReadingSkipsTick(t *testing.T) {
	f := newFixture(t, &scriptedSource{
		values:  []float64{2},
		missing: map[int]bool{1: true},
	})
	f.start()

	f.tick()
	f.tick()
	f.tick()

	assert.Equal(t, 2, f.samples())
	f.run.Do(func() { assert.Equal(t, 2, f.notes, "no notification for skipped tick") })
}

func TestTimestampsNonDecreasing(t *testing.T) {
	f := newFixture(t, &scriptedSource{values: []float64{1, 2, 3, 4}})
	f.start()

	for i := 0; i < 20; i++ {
		f.tick()
	}

	samples := f.series()[0].Samples
	require.Len(t, samples, 20)
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i].Timestamp, samples[i-1].Timestamp)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t, &scriptedSource{values: []float64{1}})
	f.start()
	f.start()

	f.run.Do(func() {
		assert.True(t, f.loop.IsCollecting())
		assert.Equal(t, 1, f.source.activations)
	})
}

func TestStopKeepsSamplesAndIsIdempotent(t *testing.T) {
	f := newFixture(t, &scriptedSource{values: []float64{1}})
	f.start()
	f.tick()

	f.run.Do(func() {
		f.loop.Stop()
		assert.False(t, f.loop.IsCollecting())
		f.loop.Stop()
		assert.Equal(t, 1, f.source.deactivations)
	})

	f.mock.Add(10 * interval)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, f.samples(), "no samples after stop")
}

func TestStopWhileIdleDoesNotTouchSource(t *testing.T) {
	f := newFixture(t, &scriptedSource{values: []float64{1}})

	f.run.Do(func() { f.loop.Stop() })
	f.run.Do(func() { assert.Zero(t, f.source.deactivations) })
}

func TestResetClearsSeriesKeepingLabel(t *testing.T) {
	f := newFixture(t, &scriptedSource{values: []float64{1}})
	f.start()
	f.tick()
	f.tick()

	before := f.series()[0]
	f.run.Do(func() {
		f.loop.Stop()
		f.loop.Reset()
	})

	after := f.series()[0]
	assert.Zero(t, after.Len())
	assert.Equal(t, before.Label, after.Label)
	assert.Equal(t, before.ID, after.ID)
}

func TestNonPositiveIntervalFallsBack(t *testing.T) {
	run := runloop.New(clock.NewMock())
	defer run.Close()

	run.Do(func() {
		l := acquisition.New(run, &scriptedSource{}, acquisition.Options{Label: "x"})
		assert.Equal(t, acquisition.DefaultSamplingInterval, l.Interval())
	})
}
