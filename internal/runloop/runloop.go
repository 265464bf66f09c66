// Package runloop provides a single logical execution context. Every job
// posted to a Loop runs on one goroutine, in order, so state owned by code
// running on the loop needs no locking.
package runloop

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const queueSize = 64

// Loop serializes jobs onto one goroutine.
type Loop struct {
	clk       clock.Clock
	jobs      chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a loop driven by clk. A nil clk selects the wall clock.
func New(clk clock.Clock) *Loop {
	if clk == nil {
		clk = clock.New()
	}

	l := &Loop{
		clk:  clk,
		jobs: make(chan func(), queueSize),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()

	return l
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		select {
		case job := <-l.jobs:
			job()
		case <-l.quit:
			return
		}
	}
}

// Clock returns the clock driving the loop's periodic tasks.
func (l *Loop) Clock() clock.Clock {
	return l.clk
}

// Post queues fn without waiting for it. It reports false once the loop
// is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}

	select {
	case l.jobs <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Do runs fn on the loop and waits for it to return. It reports false
// when the loop is closed; in that case fn either never runs or ran right
// before the loop shut down, so callers track completion themselves when
// it matters. Do must not be called from a job already running on the
// same loop.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}

	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Close stops the loop after the job in progress, if any. Queued jobs
// that have not started are dropped. Close is idempotent.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.quit)
	})
	<-l.done
}

// Every schedules fn to run on the loop every d until the returned task
// is cancelled. It must be called from a job running on the loop.
func (l *Loop) Every(d time.Duration, fn func()) *Task {
	t := &Task{
		loop:   l,
		ticker: l.clk.Ticker(d),
		stop:   make(chan struct{}),
		active: true,
	}
	go t.forward(fn)

	return t
}

// Task is a periodic job scheduled with Every.
type Task struct {
	loop   *Loop
	ticker *clock.Ticker
	stop   chan struct{}
	// active is only touched on the loop goroutine.
	active bool
}

func (t *Task) forward(fn func()) {
	for {
		select {
		case <-t.ticker.C:
			ok := t.loop.Post(func() {
				// A tick queued before Cancel must not run after it.
				if t.active {
					fn()
				}
			})
			if !ok {
				return
			}
		case <-t.stop:
			return
		case <-t.loop.quit:
			return
		}
	}
}

// Cancel stops the task. Once Cancel returns, fn will not run again, even
// for ticks already queued. It must be called on the loop and is
// idempotent.
func (t *Task) Cancel() {
	if t == nil || !t.active {
		return
	}
	t.active = false
	t.ticker.Stop()
	close(t.stop)
}

// Active reports whether the task is still scheduled.
func (t *Task) Active() bool {
	return t != nil && t.active
}

// Epoch is the origin of one session's clock. Every periodic task of the
// session measures elapsed time from the same Epoch so the sample axis
// and the elapsed-time axis cannot drift apart.
type Epoch struct {
	clk   clock.Clock
	start time.Time
}

// NewEpoch captures the current instant of the loop's clock.
func (l *Loop) NewEpoch() Epoch {
	return Epoch{clk: l.clk, start: l.clk.Now()}
}

// IsZero reports whether the epoch was never captured.
func (e Epoch) IsZero() bool {
	return e.clk == nil
}

// Start returns the captured instant.
func (e Epoch) Start() time.Time {
	return e.start
}

// Elapsed returns the time since the epoch, never negative.
func (e Epoch) Elapsed() time.Duration {
	if e.clk == nil {
		return 0
	}

	return max(e.clk.Since(e.start), 0)
}
