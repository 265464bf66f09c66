package sensor

import (
	"sync"

	"codeberg.org/mutker/labctl/internal/logger"
)

// Exclusive guards a process-wide sensor so that it is activated at most
// once at a time. Repeated Activate or Deactivate calls are absorbed and
// logged rather than forwarded to the underlying source.
type Exclusive struct {
	mu     sync.Mutex
	source Source
	held   bool
	log    logger.Logger
}

func NewExclusive(source Source, log logger.Logger) *Exclusive {
	if log == nil {
		log = logger.Nop()
	}

	return &Exclusive{source: source, log: log.With("sensor")}
}

func (e *Exclusive) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.held {
		e.log.Warn().Msg("Sensor already activated, ignoring second subscriber")
		return
	}
	e.held = true
	e.source.Activate()
	e.log.Debug().Msg("Sensor activated")
}

func (e *Exclusive) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.held {
		return
	}
	e.held = false
	e.source.Deactivate()
	e.log.Debug().Msg("Sensor deactivated")
}

func (e *Exclusive) CurrentReading() (float64, bool) {
	e.mu.Lock()
	held := e.held
	e.mu.Unlock()

	if !held {
		return 0, false
	}

	return e.source.CurrentReading()
}

// Held reports whether a subscriber currently holds the sensor.
func (e *Exclusive) Held() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.held
}
