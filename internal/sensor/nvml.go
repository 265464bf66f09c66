package sensor

import (
	"sync"

	"codeberg.org/mutker/labctl/internal/errors"
	"codeberg.org/mutker/labctl/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// thermometer is the slice of nvml.Device the GPU source needs.
type thermometer interface {
	GetName() (string, nvml.Return)
	GetTemperature(nvml.TemperatureSensors) (uint32, nvml.Return)
}

// nvmlBackend abstracts NVML library calls for testing
type nvmlBackend interface {
	Init() nvml.Return
	Shutdown() nvml.Return
	DeviceByIndex(index int) (thermometer, nvml.Return)
}

type libNVML struct{}

func (libNVML) Init() nvml.Return {
	return nvml.Init()
}

func (libNVML) Shutdown() nvml.Return {
	return nvml.Shutdown()
}

func (libNVML) DeviceByIndex(index int) (thermometer, nvml.Return) {
	device, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		return nil, ret
	}

	return device, ret
}

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

// newNVMLError creates an error from an NVML return code
func newNVMLError(ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return &nvmlError{ret: ret}
}

// GPUTemperature reads the core temperature, in degrees Celsius, of one
// NVIDIA GPU through NVML. NVML is initialized on Activate and shut down
// on Deactivate; if either the library or the device is missing the
// source simply yields no readings.
type GPUTemperature struct {
	mu      sync.Mutex
	backend nvmlBackend
	index   int
	device  thermometer
	log     logger.Logger
}

func NewGPUTemperature(index int, log logger.Logger) *GPUTemperature {
	return newGPUTemperature(libNVML{}, index, log)
}

func newGPUTemperature(backend nvmlBackend, index int, log logger.Logger) *GPUTemperature {
	if log == nil {
		log = logger.Nop()
	}

	return &GPUTemperature{
		backend: backend,
		index:   index,
		log:     log.With("nvml"),
	}
}

func (g *GPUTemperature) Activate() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.device != nil {
		return
	}

	if err := g.open(); err != nil {
		g.log.Warn().Err(err).Int("index", g.index).Msg("GPU temperature sensor unavailable")
	}
}

func (g *GPUTemperature) open() error {
	errFactory := errors.New()

	if ret := g.backend.Init(); ret != nvml.SUCCESS {
		return errFactory.Wrap(ErrSensorInit, newNVMLError(ret))
	}

	device, ret := g.backend.DeviceByIndex(g.index)
	if ret != nvml.SUCCESS {
		g.backend.Shutdown()
		return errFactory.Wrap(ErrSensorUnavailable, newNVMLError(ret))
	}

	if name, ret := device.GetName(); ret == nvml.SUCCESS {
		g.log.Info().Msgf("Detected GPU: %v", name)
	}
	g.device = device

	return nil
}

func (g *GPUTemperature) Deactivate() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.device == nil {
		return
	}
	g.device = nil

	if ret := g.backend.Shutdown(); ret != nvml.SUCCESS {
		err := errors.New().Wrap(ErrSensorShutdown, newNVMLError(ret))
		g.log.Debug().Err(err).Msg("NVML shutdown failed")
	}
}

func (g *GPUTemperature) CurrentReading() (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.device == nil {
		return 0, false
	}

	temp, ret := g.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if ret != nvml.SUCCESS {
		g.log.Debug().Err(newNVMLError(ret)).Msg("Failed to read GPU temperature")
		return 0, false
	}

	return float64(temp), true
}
