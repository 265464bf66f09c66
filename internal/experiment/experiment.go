package experiment

import (
	"strings"
	"time"
	"unicode"

	"codeberg.org/mutker/labctl/internal/acquisition"
	"codeberg.org/mutker/labctl/internal/errors"
	"codeberg.org/mutker/labctl/internal/logger"
	"codeberg.org/mutker/labctl/internal/runloop"
	"codeberg.org/mutker/labctl/internal/sensor"
	"github.com/google/uuid"
)

const defaultFileName = "ExperimentData"

// Category groups experiments in the catalog.
type Category string

const (
	CategoryMotion      Category = "Motion"
	CategoryEnvironment Category = "Environment"
	CategoryTime        Category = "Time"
)

// Categories returns all categories in display order.
func Categories() []Category {
	return []Category{CategoryMotion, CategoryEnvironment, CategoryTime}
}

// IsValid returns whether the category is known
func (c Category) IsValid() bool {
	switch c {
	case CategoryMotion, CategoryEnvironment, CategoryTime:
		return true
	default:
		return false
	}
}

// RunMode selects how a session ends.
type RunMode string

const (
	// RunModeStopwatch runs until stopped.
	RunModeStopwatch RunMode = "stopwatch"
	// RunModeTimer stops on its own once a target duration elapses.
	RunModeTimer RunMode = "timer"
)

// IsValid returns whether the run mode is known
func (m RunMode) IsValid() bool {
	return m == RunModeStopwatch || m == RunModeTimer
}

func (m RunMode) String() string {
	return string(m)
}

// Configuration holds the static run parameters of an experiment.
type Configuration struct {
	DefaultDuration   time.Duration
	SupportedRunModes []RunMode
	SamplingInterval  time.Duration
}

// Supports reports whether mode is one of the supported run modes.
func (c Configuration) Supports(mode RunMode) bool {
	for _, m := range c.SupportedRunModes {
		if m == mode {
			return true
		}
	}

	return false
}

// Kind identifies the sensor pipeline an experiment samples. Adding a
// sensor type means adding a Kind and its cases below.
type Kind int

const (
	KindAccelerometerMagnitude Kind = iota + 1
	KindGPUTemperature
)

var kindNames = map[Kind]string{
	KindAccelerometerMagnitude: "accelerometer-magnitude",
	KindGPUTemperature:         "gpu-temperature",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// ParseKind maps a kind name to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}

	return 0, false
}

// SeriesLabel is the label of the series a kind's collector produces.
func (k Kind) SeriesLabel() string {
	switch k {
	case KindAccelerometerMagnitude:
		return "Acceleration Magnitude"
	case KindGPUTemperature:
		return "GPU Temperature"
	default:
		return "Reading"
	}
}

func (k Kind) defaultConfiguration() Configuration {
	modes := []RunMode{RunModeStopwatch, RunModeTimer}

	switch k {
	case KindAccelerometerMagnitude:
		return Configuration{
			DefaultDuration:   30 * time.Second,
			SupportedRunModes: modes,
			SamplingInterval:  time.Second / 60,
		}
	case KindGPUTemperature:
		return Configuration{
			DefaultDuration:   time.Minute,
			SupportedRunModes: modes,
			SamplingInterval:  500 * time.Millisecond,
		}
	default:
		return Configuration{SupportedRunModes: modes}
	}
}

// Descriptor describes one experiment. It is read-only once built.
type Descriptor struct {
	ID            uuid.UUID
	Key           string
	Title         string
	Summary       string
	Category      Category
	Kind          Kind
	Configuration Configuration
}

// NewCollector builds a fresh acquisition loop bound to source.
func (d Descriptor) NewCollector(runLoop *runloop.Loop, source sensor.Source, log logger.Logger) (*acquisition.Loop, error) {
	switch d.Kind {
	case KindAccelerometerMagnitude, KindGPUTemperature:
		return acquisition.New(runLoop, source, acquisition.Options{
			Label:            d.Kind.SeriesLabel(),
			SamplingInterval: d.Configuration.SamplingInterval,
			Logger:           log,
		}), nil
	default:
		return nil, errors.New().WithData(ErrUnknownKind, int(d.Kind))
	}
}

// FileName derives an export file name from the title, with whitespace
// and path separators replaced by underscores.
func (d Descriptor) FileName() string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, d.Title)

	if name == "" {
		return defaultFileName
	}

	return name
}

// IDFor returns the stable identity of the experiment with the given key.
func IDFor(key string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("labctl:experiment:"+key))
}
