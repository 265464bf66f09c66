package sensor

import (
	"math"
	"math/rand"
	"sync"
)

const standardGravity = 1.0

// Accelerometer simulates a three-axis accelerometer at rest and reports
// the magnitude of its acceleration vector in g.
type Accelerometer struct {
	mu     sync.Mutex
	rng    *rand.Rand
	noise  float64
	active bool
}

// NewAccelerometer returns a simulated accelerometer whose axes jitter by
// up to noise g around a resting vector of (0, 0, 1g).
func NewAccelerometer(seed int64, noise float64) *Accelerometer {
	return &Accelerometer{
		rng:   rand.New(rand.NewSource(seed)),
		noise: noise,
	}
}

func (a *Accelerometer) Activate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = true
}

func (a *Accelerometer) Deactivate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = false
}

// CurrentReading returns no value until the accelerometer is activated.
func (a *Accelerometer) CurrentReading() (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return 0, false
	}

	x := a.jitter()
	y := a.jitter()
	z := standardGravity + a.jitter()

	return math.Sqrt(x*x + y*y + z*z), true
}

func (a *Accelerometer) jitter() float64 {
	return (a.rng.Float64()*2 - 1) * a.noise
}
