package sensor_test

import (
	"testing"

	"codeberg.org/mutker/labctl/internal/logger"
	"codeberg.org/mutker/labctl/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	activations   int
	deactivations int
}

func (c *countingSource) Activate()   { c.activations++ }
func (c *countingSource) Deactivate() { c.deactivations++ }
func (c *countingSource) CurrentReading() (float64, bool) {
	return 1.5, true
}

func TestAccelerometerMagnitude(t *testing.T) {
	acc := sensor.NewAccelerometer(1, 0.05)

	_, ok := acc.CurrentReading()
	assert.False(t, ok, "inactive accelerometer has no reading")

	acc.Activate()
	for i := 0; i < 100; i++ {
		v, ok := acc.CurrentReading()
		require.True(t, ok)
		assert.InDelta(t, 1.0, v, 0.1)
	}

	acc.Deactivate()
	_, ok = acc.CurrentReading()
	assert.False(t, ok)
}

func TestAccelerometerWithoutNoiseIsOneG(t *testing.T) {
	acc := sensor.NewAccelerometer(7, 0)
	acc.Activate()

	v, ok := acc.CurrentReading()
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestExclusiveForwardsOnce(t *testing.T) {
	src := &countingSource{}
	ex := sensor.NewExclusive(src, logger.Nop())

	_, ok := ex.CurrentReading()
	assert.False(t, ok, "unheld sensor yields nothing")

	ex.Deactivate()
	assert.Zero(t, src.deactivations)

	ex.Activate()
	ex.Activate()
	assert.Equal(t, 1, src.activations)
	assert.True(t, ex.Held())

	v, ok := ex.CurrentReading()
	require.True(t, ok)
	assert.Equal(t, 1.5, v)

	ex.Deactivate()
	ex.Deactivate()
	assert.Equal(t, 1, src.deactivations)
	assert.False(t, ex.Held())
}
