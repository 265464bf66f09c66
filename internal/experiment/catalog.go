package experiment

import (
	"os"
	"time"

	"codeberg.org/mutker/labctl/internal/errors"
	"gopkg.in/yaml.v3"
)

// Catalog is a read-only list of experiment descriptors.
type Catalog struct {
	experiments []Descriptor
}

// Group is the experiments of one category.
type Group struct {
	Category    Category
	Experiments []Descriptor
}

// Builtin returns the experiments labctl ships with.
func Builtin() *Catalog {
	return &Catalog{experiments: []Descriptor{
		{
			ID:            IDFor("accelerometer-magnitude"),
			Key:           "accelerometer-magnitude",
			Title:         "Accelerometer Magnitude",
			Summary:       "Measure and record the magnitude of the device's acceleration vector.",
			Category:      CategoryMotion,
			Kind:          KindAccelerometerMagnitude,
			Configuration: KindAccelerometerMagnitude.defaultConfiguration(),
		},
		{
			ID:            IDFor("gpu-temperature"),
			Key:           "gpu-temperature",
			Title:         "GPU Temperature",
			Summary:       "Record the core temperature of the first NVIDIA GPU over time.",
			Category:      CategoryEnvironment,
			Kind:          KindGPUTemperature,
			Configuration: KindGPUTemperature.defaultConfiguration(),
		},
	}}
}

// Load returns the built-in catalog extended with the experiments listed
// in the YAML file at path. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	catalog := Builtin()
	if path == "" {
		return catalog, nil
	}

	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errFactory.Wrap(ErrCatalogRead, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errFactory.WithData(ErrCatalogRead, struct {
			Path  string
			Error string
		}{
			Path:  path,
			Error: err.Error(),
		})
	}

	for _, entry := range file.Experiments {
		d, err := entry.descriptor()
		if err != nil {
			return nil, err
		}
		if _, exists := catalog.find(d.Key); exists {
			return nil, errFactory.WithData(ErrInvalidDescriptor, "duplicate key "+d.Key)
		}
		catalog.experiments = append(catalog.experiments, d)
	}

	return catalog, nil
}

// Experiments returns every descriptor in catalog order.
func (c *Catalog) Experiments() []Descriptor {
	out := make([]Descriptor, len(c.experiments))
	copy(out, c.experiments)

	return out
}

// Lookup finds an experiment by key.
func (c *Catalog) Lookup(key string) (Descriptor, error) {
	if d, ok := c.find(key); ok {
		return d, nil
	}

	return Descriptor{}, errors.New().WithData(ErrUnknownExperiment, key)
}

// ByCategory groups experiments by category in display order, leaving out
// empty categories.
func (c *Catalog) ByCategory() []Group {
	var groups []Group
	for _, category := range Categories() {
		var members []Descriptor
		for _, d := range c.experiments {
			if d.Category == category {
				members = append(members, d)
			}
		}
		if len(members) > 0 {
			groups = append(groups, Group{Category: category, Experiments: members})
		}
	}

	return groups
}

func (c *Catalog) find(key string) (Descriptor, bool) {
	for _, d := range c.experiments {
		if d.Key == key {
			return d, true
		}
	}

	return Descriptor{}, false
}

type catalogFile struct {
	Experiments []catalogEntry `yaml:"experiments"`
}

// catalogEntry is one experiment in a catalog file. Durations are in
// seconds; zero values fall back to the defaults of the kind.
type catalogEntry struct {
	Key              string   `yaml:"key"`
	Title            string   `yaml:"title"`
	Summary          string   `yaml:"summary"`
	Category         string   `yaml:"category"`
	Kind             string   `yaml:"kind"`
	DefaultDuration  float64  `yaml:"default_duration"`
	SamplingInterval float64  `yaml:"sampling_interval"`
	RunModes         []string `yaml:"run_modes"`
}

func (e catalogEntry) descriptor() (Descriptor, error) {
	errFactory := errors.New()
	invalid := func(field, reason string) error {
		return errFactory.WithData(ErrInvalidDescriptor, struct {
			Key    string
			Field  string
			Reason string
		}{
			Key:    e.Key,
			Field:  field,
			Reason: reason,
		})
	}

	if e.Key == "" {
		return Descriptor{}, invalid("key", "required")
	}
	if e.Title == "" {
		return Descriptor{}, invalid("title", "required")
	}

	kind, ok := ParseKind(e.Kind)
	if !ok {
		return Descriptor{}, errFactory.WithData(ErrUnknownKind, e.Kind)
	}

	category := Category(e.Category)
	if !category.IsValid() {
		return Descriptor{}, invalid("category", "unknown category "+e.Category)
	}

	if e.DefaultDuration < 0 {
		return Descriptor{}, invalid("default_duration", "must not be negative")
	}
	if e.SamplingInterval < 0 {
		return Descriptor{}, invalid("sampling_interval", "must not be negative")
	}

	cfg := kind.defaultConfiguration()
	if e.DefaultDuration > 0 {
		cfg.DefaultDuration = seconds(e.DefaultDuration)
	}
	if e.SamplingInterval > 0 {
		cfg.SamplingInterval = seconds(e.SamplingInterval)
	}
	if len(e.RunModes) > 0 {
		cfg.SupportedRunModes = nil
		for _, name := range e.RunModes {
			mode := RunMode(name)
			if !mode.IsValid() {
				return Descriptor{}, invalid("run_modes", "unknown run mode "+name)
			}
			cfg.SupportedRunModes = append(cfg.SupportedRunModes, mode)
		}
	}

	return Descriptor{
		ID:            IDFor(e.Key),
		Key:           e.Key,
		Title:         e.Title,
		Summary:       e.Summary,
		Category:      category,
		Kind:          kind,
		Configuration: cfg,
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
