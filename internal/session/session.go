// Package session implements the session controller: the state machine
// that owns the acquisition loop and the elapsed-time ticker of one
// experiment run, mirrors captured series into an observable state and
// exports them on demand.
//
// All state lives on a single run loop. Public methods hop onto it and
// return once the transition is applied, so they are safe to call from
// any goroutine, but never from a subscriber callback running on the
// loop itself.
package session

import (
	"time"

	"codeberg.org/mutker/labctl/internal/acquisition"
	"codeberg.org/mutker/labctl/internal/errors"
	"codeberg.org/mutker/labctl/internal/experiment"
	"codeberg.org/mutker/labctl/internal/export"
	"codeberg.org/mutker/labctl/internal/logger"
	"codeberg.org/mutker/labctl/internal/runloop"
	"codeberg.org/mutker/labctl/internal/sensor"
	"codeberg.org/mutker/labctl/internal/series"
	"github.com/benbjohnson/clock"
)

// DefaultTickInterval is the refresh period of elapsed and remaining time.
const DefaultTickInterval = 50 * time.Millisecond

// Controller runs one experiment session at a time.
type Controller struct {
	loop     *runloop.Loop
	clk      clock.Clock
	ownsLoop bool
	desc     experiment.Descriptor
	source   sensor.Source
	encoder  export.Encoder
	log      logger.Logger
	tick     time.Duration

	// Everything below is owned by the run loop.
	collector *acquisition.Loop
	ticker    *runloop.Task
	epoch     runloop.Epoch
	target    *time.Duration
	state     State
	subs      map[int]chan State
	nextSub   int
	closed    bool
	final     State
}

// Option configures a Controller.
type Option func(*Controller)

// WithLoop runs the controller on an existing run loop. The caller keeps
// ownership and closes it. The loop's own clock applies; WithClock is
// ignored.
func WithLoop(loop *runloop.Loop) Option {
	return func(c *Controller) {
		c.loop = loop
	}
}

// WithClock drives a controller-owned run loop from clk.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		c.clk = clk
	}
}

// WithEncoder sets the export encoder. The default writes CSV into the
// OS temp directory.
func WithEncoder(enc export.Encoder) Option {
	return func(c *Controller) {
		c.encoder = enc
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithTickInterval sets the elapsed-time refresh period.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.tick = d
		}
	}
}

// New builds an idle controller for desc reading from source. The
// source is expected to be the only handle on its sensor; the controller
// keeps at most one subscriber on it at any time.
func New(desc experiment.Descriptor, source sensor.Source, opts ...Option) (*Controller, error) {
	c := &Controller{
		desc:   desc,
		source: source,
		tick:   DefaultTickInterval,
		subs:   make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.loop == nil {
		c.loop = runloop.New(c.clk)
		c.ownsLoop = true
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	c.log = c.log.With("session")
	if c.encoder == nil {
		c.encoder = export.NewCSV("")
	}

	var err error
	c.loop.Do(func() {
		err = c.configureCollector()
	})
	if err != nil {
		if c.ownsLoop {
			c.loop.Close()
		}
		return nil, err
	}

	return c, nil
}

// Experiment returns the descriptor the controller was built for.
func (c *Controller) Experiment() experiment.Descriptor {
	return c.desc
}

// Start begins a session. In timer mode duration overrides the
// experiment's default when positive. Start is a no-op while running.
func (c *Controller) Start(mode experiment.RunMode, duration time.Duration) {
	c.loop.Do(func() {
		if c.closed {
			return
		}
		c.start(mode, duration)
	})
}

// Stop ends a running session, keeping the captured samples. It is a
// no-op unless running.
func (c *Controller) Stop() {
	c.loop.Do(func() {
		if c.closed {
			return
		}
		c.stop()
	})
}

// Reset discards captured samples and returns to Idle from any phase.
func (c *Controller) Reset() {
	c.loop.Do(func() {
		if c.closed {
			return
		}
		c.reset()
	})
}

// State returns a snapshot of the session state.
func (c *Controller) State() State {
	var st State
	if !c.loop.Do(func() {
		if c.closed {
			st = c.final.clone()
			return
		}
		st = c.snapshot()
	}) {
		return c.final.clone()
	}

	return st
}

// Subscribe returns a channel receiving a state snapshot after every
// phase transition, time refresh and mirrored sample. Only the latest
// undelivered snapshot is kept. Snapshots share sample storage with the
// controller and must not be modified; use State for a private copy. The
// cancel function closes the channel. After Close the channel is
// returned closed.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	id := -1
	closed := false

	ran := c.loop.Do(func() {
		if c.closed {
			close(ch)
			closed = true
			return
		}
		id = c.nextSub
		c.nextSub++
		c.subs[id] = ch
		ch <- c.shared()
	})
	// A closed loop never runs the job, unless it ran just before closing.
	if !ran && !closed && id < 0 {
		close(ch)
	}
	if id < 0 {
		return ch, func() {}
	}

	cancel := func() {
		c.loop.Do(func() {
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Export writes the current series snapshot through the encoder and
// returns the artifact path. Encoder failures are returned unchanged.
func (c *Controller) Export() (string, error) {
	snapshot := c.State().Series

	path, err := c.encoder.Encode(snapshot, c.desc.FileName())
	if err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			c.log.ErrorWithCode(appErr).Msg("Export failed")
		} else {
			c.log.Error().Err(err).Msg("Export failed")
		}
		return "", err
	}

	c.log.Info().
		Str("path", path).
		Int("samples", series.TotalSamples(snapshot)).
		Msg("Session exported")

	return path, nil
}

// Close stops any running session, releases the sensor and closes
// subscriber channels. Further calls are no-ops; State keeps returning
// the last snapshot.
func (c *Controller) Close() {
	c.loop.Do(func() {
		if c.closed {
			return
		}
		c.stop()
		c.teardownCollector()
		c.ticker.Cancel()
		c.ticker = nil
		c.final = c.snapshot()
		c.closed = true
		for id, ch := range c.subs {
			delete(c.subs, id)
			close(ch)
		}
	})

	if c.ownsLoop {
		c.loop.Close()
	}
}

func (c *Controller) start(mode experiment.RunMode, duration time.Duration) {
	if c.state.Phase == Running {
		return
	}

	if !c.desc.Configuration.Supports(mode) && len(c.desc.Configuration.SupportedRunModes) > 0 {
		fallback := c.desc.Configuration.SupportedRunModes[0]
		c.log.Warn().
			Str("requested", mode.String()).
			Str("using", fallback.String()).
			Msg("Run mode not supported by experiment")
		mode = fallback
	}

	// A fresh collector per run; the old one is stopped and released first
	// so only one loop ever holds the sensor.
	if err := c.configureCollector(); err != nil {
		c.log.Error().Err(err).Msg("Failed to build acquisition loop")
		return
	}
	c.collector.Reset()

	c.epoch = c.loop.NewEpoch()
	c.collector.Start(c.epoch)

	c.state.Series = c.collector.Series()
	c.state.Phase = Running
	c.state.Elapsed = 0

	switch mode {
	case experiment.RunModeTimer:
		target := c.desc.Configuration.DefaultDuration
		if duration > 0 {
			target = duration
		}
		c.target = &target
		c.state.Remaining = durationPtr(target)
	default:
		c.target = nil
		c.state.Remaining = nil
	}

	c.startTicker()

	event := c.log.Info().
		Str("experiment", c.desc.Key).
		Str("mode", mode.String())
	if c.target != nil {
		event = event.Dur("target", *c.target)
	}
	event.Msg("Session started")

	c.publish()
}

func (c *Controller) stop() {
	if c.state.Phase != Running {
		return
	}

	c.collector.Stop()
	c.ticker.Cancel()
	c.ticker = nil

	c.state.Elapsed = max(c.state.Elapsed, c.epoch.Elapsed())
	c.state.Phase = Completed
	if c.target != nil {
		c.state.Remaining = durationPtr(max(*c.target-c.state.Elapsed, 0))
	}

	c.log.Info().
		Dur("elapsed", c.state.Elapsed).
		Int("samples", series.TotalSamples(c.state.Series)).
		Msg("Session completed")

	c.publish()
}

func (c *Controller) reset() {
	c.collector.Stop()
	c.collector.Reset()
	c.ticker.Cancel()
	c.ticker = nil
	c.epoch = runloop.Epoch{}

	c.state.Phase = Idle
	c.state.Elapsed = 0
	c.state.Series = c.collector.Series()
	if c.target != nil {
		c.state.Remaining = durationPtr(*c.target)
	} else {
		c.state.Remaining = nil
	}

	c.log.Debug().Msg("Session reset")
	c.publish()
}

func (c *Controller) configureCollector() error {
	collector, err := c.desc.NewCollector(c.loop, c.source, c.log)
	if err != nil {
		return err
	}

	c.teardownCollector()
	c.collector = collector
	c.state.Series = collector.Series()
	collector.OnSample(func() {
		c.mirror(collector)
	})

	return nil
}

func (c *Controller) teardownCollector() {
	if c.collector == nil {
		return
	}
	c.collector.Stop()
	c.collector.OnSample(nil)
}

func (c *Controller) mirror(from *acquisition.Loop) {
	if from != c.collector {
		return
	}
	c.state.Series = from.Series()
	c.publish()
}

func (c *Controller) startTicker() {
	c.ticker.Cancel()
	c.ticker = c.loop.Every(c.tick, c.updateTimers)
}

func (c *Controller) updateTimers() {
	if c.state.Phase != Running || c.epoch.IsZero() {
		return
	}

	c.state.Elapsed = max(c.state.Elapsed, c.epoch.Elapsed())

	if c.target != nil {
		remaining := max(*c.target-c.state.Elapsed, 0)
		c.state.Remaining = durationPtr(remaining)
		if remaining <= 0 {
			c.stop()
			return
		}
	}

	c.publish()
}

func (c *Controller) snapshot() State {
	return c.state.clone()
}

// shared is a snapshot whose series share sample storage with the
// controller. The mirrored series are only ever replaced, never written
// to, so subscribers see a stable view without a copy per publish.
func (c *Controller) shared() State {
	st := c.state
	st.Series = append([]series.Series(nil), c.state.Series...)
	if st.Remaining != nil {
		st.Remaining = durationPtr(*st.Remaining)
	}

	return st
}

// publish offers the current snapshot to every subscriber, replacing a
// snapshot they have not consumed yet.
func (c *Controller) publish() {
	if len(c.subs) == 0 {
		return
	}

	st := c.shared()
	for _, ch := range c.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
