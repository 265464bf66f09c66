// Package sensor defines the sensor source contract polled by acquisition
// loops and the concrete sources labctl ships with.
package sensor

// Source is an external sensor. CurrentReading reports false when no value
// is available; callers treat that as a skipped reading, not an error.
type Source interface {
	Activate()
	Deactivate()
	CurrentReading() (float64, bool)
}
