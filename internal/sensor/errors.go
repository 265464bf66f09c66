package sensor

import "codeberg.org/mutker/labctl/internal/errors"

const (
	ErrSensorInit        = errors.ErrorCode("sensor_init_failed")
	ErrSensorUnavailable = errors.ErrorCode("sensor_unavailable")
	ErrSensorShutdown    = errors.ErrorCode("sensor_shutdown_failed")
)

func init() {
	errors.RegisterMessage(ErrSensorInit, "Failed to initialize sensor")
	errors.RegisterMessage(ErrSensorUnavailable, "Sensor unavailable")
	errors.RegisterMessage(ErrSensorShutdown, "Failed to shut down sensor")
}
