package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/labctl/internal/config"
	"codeberg.org/mutker/labctl/internal/errors"
	"codeberg.org/mutker/labctl/internal/experiment"
	"codeberg.org/mutker/labctl/internal/export"
	"codeberg.org/mutker/labctl/internal/logger"
	"codeberg.org/mutker/labctl/internal/pid"
	"codeberg.org/mutker/labctl/internal/sensor"
	"codeberg.org/mutker/labctl/internal/series"
	"codeberg.org/mutker/labctl/internal/session"
	"github.com/spf13/pflag"
)

const accelerometerNoise = 0.05

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	os.Exit(execute())
}

func execute() int {
	errFactory := errors.New()

	catalog, err := experiment.Load(cfg.Catalog)
	if err != nil {
		logError(errFactory.Wrap(errors.ErrInitApp, err))
		return 1
	}

	if cfg.List {
		printCatalog(os.Stdout, catalog)
		return 0
	}

	desc, err := catalog.Lookup(cfg.Experiment)
	if err != nil {
		logError(err)
		return 1
	}

	// One process per physical sensor.
	lock := desc.Kind.String()
	if err := pid.Write(lock); err != nil {
		logError(err)
		return 1
	}
	defer func() {
		if err := pid.Remove(lock); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx, desc); err != nil {
		logError(err)
		return 1
	}

	logger.Info().Msg("Exiting...")
	return 0
}

func run(ctx context.Context, desc experiment.Descriptor) error {
	errFactory := errors.New()
	log := logger.Default()

	source, err := newSource(desc.Kind, log)
	if err != nil {
		return err
	}

	encoder, err := export.New(cfg.Format, cfg.OutputDir, log)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	ctrl, err := session.New(desc, sensor.NewExclusive(source, log),
		session.WithEncoder(encoder),
		session.WithLogger(log),
	)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer ctrl.Close()

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	ctrl.Start(cfg.RunMode(), cfg.SessionDuration())

	ticker := time.NewTicker(cfg.StatusEvery())
	defer ticker.Stop()

	var latest session.State
	for done := false; !done; {
		select {
		case <-ctx.Done():
			ctrl.Stop()
			done = true
		case st, ok := <-updates:
			if !ok {
				return errFactory.WithMessage(errors.ErrRunSession, "session closed unexpectedly")
			}
			latest = st
			done = st.Phase == session.Completed
		case <-ticker.C:
			logStatus(latest)
		}
	}

	logStatus(ctrl.State())

	path, err := ctrl.Export()
	if err != nil {
		return err
	}
	fmt.Println(path)

	return nil
}

// newSource returns the sensor backing an experiment kind.
func newSource(kind experiment.Kind, log logger.Logger) (sensor.Source, error) {
	switch kind {
	case experiment.KindAccelerometerMagnitude:
		return sensor.NewAccelerometer(time.Now().UnixNano(), accelerometerNoise), nil
	case experiment.KindGPUTemperature:
		return sensor.NewGPUTemperature(0, log), nil
	default:
		return nil, errors.New().WithData(experiment.ErrUnknownKind, kind.String())
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func logStatus(st session.State) {
	event := logger.Info().
		Str("phase", st.Phase.String()).
		Str("elapsed", session.FormatDuration(st.Elapsed)).
		Int("samples", series.TotalSamples(st.Series))
	if st.Remaining != nil {
		event = event.Str("remaining", session.FormatDuration(*st.Remaining))
	}
	for _, s := range st.Series {
		if last, ok := s.Last(); ok {
			event = event.Float64(strings.ToLower(strings.ReplaceAll(s.Label, " ", "_")), last.Value)
		}
	}
	event.Msg("")
}

func printCatalog(w io.Writer, catalog *experiment.Catalog) {
	for _, group := range catalog.ByCategory() {
		fmt.Fprintln(w, group.Category)
		for _, d := range group.Experiments {
			modes := make([]string, 0, len(d.Configuration.SupportedRunModes))
			for _, m := range d.Configuration.SupportedRunModes {
				modes = append(modes, m.String())
			}
			fmt.Fprintf(w, "  %-26s %s (%s; %s)\n",
				d.Key, d.Title, session.FormatDuration(d.Configuration.DefaultDuration), strings.Join(modes, ", "))
			if d.Summary != "" {
				fmt.Fprintf(w, "  %-26s %s\n", "", d.Summary)
			}
		}
	}
}

func logError(err error) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.ErrorWithCode(appErr).Msg("")
		return
	}
	logger.Error().Err(err).Msg("")
}
