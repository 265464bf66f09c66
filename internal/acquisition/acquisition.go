// Package acquisition implements the periodic sampling loop that polls a
// sensor source and buffers timestamped readings.
//
// A Loop is owned by a run loop: every method must be called from a job
// running on that run loop, and the sampling task is scheduled onto it.
package acquisition

import (
	"time"

	"codeberg.org/mutker/labctl/internal/logger"
	"codeberg.org/mutker/labctl/internal/runloop"
	"codeberg.org/mutker/labctl/internal/sensor"
	"codeberg.org/mutker/labctl/internal/series"
)

// DefaultSamplingInterval is used when Options carry no positive interval.
const DefaultSamplingInterval = time.Second / 60

// Options configure a Loop.
type Options struct {
	Label            string
	SamplingInterval time.Duration
	Logger           logger.Logger
}

// Loop samples one sensor source into one series.
type Loop struct {
	runLoop  *runloop.Loop
	source   sensor.Source
	interval time.Duration
	log      logger.Logger

	data     series.Series
	epoch    runloop.Epoch
	task     *runloop.Task
	last     float64
	onSample func()
}

// New builds an idle loop.
func New(runLoop *runloop.Loop, source sensor.Source, opts Options) *Loop {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	interval := opts.SamplingInterval
	if interval <= 0 {
		interval = DefaultSamplingInterval
	}

	return &Loop{
		runLoop:  runLoop,
		source:   source,
		interval: interval,
		log:      log.With("acquisition"),
		data:     series.New(opts.Label),
	}
}

// OnSample registers the single callback invoked after each appended
// sample. Passing nil removes it.
func (l *Loop) OnSample(fn func()) {
	l.onSample = fn
}

// IsCollecting reports whether the sampling task is scheduled.
func (l *Loop) IsCollecting() bool {
	return l.task.Active()
}

// Interval returns the sampling interval.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Series returns the loop's series collection as read-only views. Later
// samples do not show up in a returned view; Reset starts new storage.
func (l *Loop) Series() []series.Series {
	return []series.Series{l.data.View()}
}

// Start activates the source and begins sampling, measuring timestamps
// from epoch. It is a no-op while already collecting.
func (l *Loop) Start(epoch runloop.Epoch) {
	if l.IsCollecting() {
		return
	}

	l.epoch = epoch
	l.source.Activate()
	l.task = l.runLoop.Every(l.interval, l.sample)

	l.log.Debug().
		Str("label", l.data.Label).
		Dur("interval", l.interval).
		Msg("Sampling started")
}

// Stop cancels the sampling task and releases the source. Buffered
// samples are kept. It is a no-op while idle.
func (l *Loop) Stop() {
	if !l.IsCollecting() {
		return
	}

	l.task.Cancel()
	l.task = nil
	l.source.Deactivate()

	l.log.Debug().
		Str("label", l.data.Label).
		Int("samples", l.data.Len()).
		Msg("Sampling stopped")
}

// Reset empties the series, keeping its label, and forgets the epoch.
// Callers stop the loop first.
func (l *Loop) Reset() {
	l.data = l.data.Cleared()
	l.epoch = runloop.Epoch{}
	l.last = 0
}

func (l *Loop) sample() {
	if l.epoch.IsZero() {
		return
	}

	value, ok := l.source.CurrentReading()
	if !ok {
		l.log.Debug().Msg("No reading available, skipping tick")
		return
	}

	elapsed := max(l.epoch.Elapsed().Seconds(), l.last)
	l.last = elapsed
	l.data.Samples = append(l.data.Samples, series.Sample{Timestamp: elapsed, Value: value})

	if l.onSample != nil {
		l.onSample()
	}
}
