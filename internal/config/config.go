package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/labctl/internal/errors"
	"codeberg.org/mutker/labctl/internal/experiment"
	"codeberg.org/mutker/labctl/internal/export"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultExperiment     = "accelerometer-magnitude"
	DefaultMode           = string(experiment.RunModeTimer)
	DefaultFormat         = export.FormatCSV
	DefaultLogLevel       = string(LogLevelInfo)
	DefaultStatusInterval = 1.0

	envPrefix  = "LABCTL"
	configName = "labctl"
)

// Config holds the resolved settings of one labctl invocation. Durations
// are in seconds.
type Config struct {
	Experiment     string  `mapstructure:"experiment"`
	Mode           string  `mapstructure:"mode"`
	Duration       float64 `mapstructure:"duration"`
	OutputDir      string  `mapstructure:"output_dir"`
	Format         string  `mapstructure:"format"`
	Catalog        string  `mapstructure:"catalog"`
	LogLevel       string  `mapstructure:"log_level"`
	List           bool    `mapstructure:"list"`
	StatusInterval float64 `mapstructure:"status_interval"`
}

// Load resolves configuration from defaults, the TOML config file,
// LABCTL_* environment variables and args, in increasing precedence.
// args excludes the program name.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	configFile := flags.String("config", "", "Path to the configuration file")
	flags.StringP("experiment", "e", DefaultExperiment, "Experiment to run")
	flags.StringP("mode", "m", DefaultMode, "Run mode: stopwatch or timer")
	flags.Float64P("duration", "d", 0, "Timer duration in seconds (0 uses the experiment default)")
	flags.StringP("output-dir", "o", "", "Directory for exported data (default: OS temp dir)")
	flags.StringP("format", "f", DefaultFormat, "Export format: csv or sqlite")
	flags.String("catalog", "", "YAML file with additional experiments")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	flags.BoolP("list", "l", false, "List available experiments and exit")
	flags.Float64("status-interval", DefaultStatusInterval, "Seconds between status lines")

	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}

	v := viper.New()
	v.SetDefault("experiment", DefaultExperiment)
	v.SetDefault("mode", DefaultMode)
	v.SetDefault("duration", 0.0)
	v.SetDefault("output_dir", "")
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("catalog", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("list", false)
	v.SetDefault("status_interval", DefaultStatusInterval)

	v.SetConfigType("toml")
	path := *configFile
	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
		v.AddConfigPath("/etc/" + configName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"experiment":      "experiment",
		"mode":            "mode",
		"duration":        "duration",
		"output_dir":      "output-dir",
		"format":          "format",
		"catalog":         "catalog",
		"log_level":       "log-level",
		"list":            "list",
		"status_interval": "status-interval",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every setting and returns the first violation.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Experiment == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "experiment must not be empty")
	}
	if !experiment.RunMode(c.Mode).IsValid() {
		return errFactory.WithData(ErrInvalidRunMode, c.Mode)
	}
	if c.Duration < 0 {
		return errFactory.WithData(ErrInvalidDuration, c.Duration)
	}
	switch c.Format {
	case export.FormatCSV, export.FormatSQLite:
	default:
		return errFactory.WithData(ErrInvalidFormat, c.Format)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	// Sub-nanosecond values truncate to a zero ticker period.
	if c.StatusEvery() <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.StatusInterval)
	}

	return nil
}

// RunMode returns the configured run mode.
func (c *Config) RunMode() experiment.RunMode {
	return experiment.RunMode(c.Mode)
}

// SessionDuration returns the timer duration; zero means the experiment
// default.
func (c *Config) SessionDuration() time.Duration {
	return seconds(c.Duration)
}

func (c *Config) StatusEvery() time.Duration {
	return seconds(c.StatusInterval)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
