package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/randalmurphal/storeflow/pkg/storeflow"
	"github.com/randalmurphal/storeflow/pkg/storeflow/snapshot"
)

// Settings is the file-level configuration of a storeflow application.
type Settings struct {
	Dispatcher DispatcherSettings `yaml:"dispatcher" json:"dispatcher"`
	Snapshot   SnapshotSettings   `yaml:"snapshot" json:"snapshot"`
}

// DispatcherSettings configures the dispatcher and its observability.
type DispatcherSettings struct {
	MaxDependencyDepth int    `yaml:"max_dependency_depth" json:"max_dependency_depth"`
	LogLevel           string `yaml:"log_level" json:"log_level"`
	LogFormat          string `yaml:"log_format" json:"log_format"`
	Metrics            bool   `yaml:"metrics" json:"metrics"`
	Tracing            bool   `yaml:"tracing" json:"tracing"`
}

// SnapshotSettings selects where store snapshots are kept.
// An empty Driver disables snapshots.
type SnapshotSettings struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

// Snapshot drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Default returns the settings used for keys a file leaves out.
func Default() Settings {
	return Settings{
		Dispatcher: DispatcherSettings{
			MaxDependencyDepth: 100,
			LogLevel:           "info",
			LogFormat:          "json",
		},
	}
}

// Validate reports every invalid setting.
func (s Settings) Validate() error {
	var errs []error
	if s.Dispatcher.MaxDependencyDepth <= 0 {
		errs = append(errs, fmt.Errorf("dispatcher.max_dependency_depth must be positive, got %d", s.Dispatcher.MaxDependencyDepth))
	}
	if _, err := parseLevel(s.Dispatcher.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(s.Dispatcher.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("dispatcher.log_format must be json or text, got %q", s.Dispatcher.LogFormat))
	}
	switch s.Snapshot.Driver {
	case "", DriverMemory:
	case DriverSQLite:
		if s.Snapshot.Path == "" {
			errs = append(errs, errors.New("snapshot.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("snapshot.driver must be memory or sqlite, got %q", s.Snapshot.Driver))
	}
	return errors.Join(errs...)
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("dispatcher.log_level: %w", err)
	}
	return l, nil
}

// Logger builds a slog logger writing to w in the configured format and level.
func (s Settings) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(s.Dispatcher.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(s.Dispatcher.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

// Options returns the dispatcher options these settings describe. Logs are
// written to w; a nil w disables logging.
//
// Example:
//
//	settings, err := config.FromFile("storeflow.yaml")
//	if err != nil {
//	    return err
//	}
//	opts, err := settings.Options(os.Stderr)
//	if err != nil {
//	    return err
//	}
//	d := storeflow.New(opts...)
func (s Settings) Options(w io.Writer) ([]storeflow.Option, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	opts := []storeflow.Option{
		storeflow.WithMaxDependencyDepth(s.Dispatcher.MaxDependencyDepth),
		storeflow.WithMetrics(s.Dispatcher.Metrics),
		storeflow.WithTracing(s.Dispatcher.Tracing),
	}
	if w != nil {
		logger, err := s.Logger(w)
		if err != nil {
			return nil, err
		}
		opts = append(opts, storeflow.WithLogger(logger))
	}
	return opts, nil
}

// OpenSink opens the configured snapshot sink. It returns nil, nil when
// snapshots are disabled.
func (s Settings) OpenSink() (snapshot.Sink, error) {
	switch s.Snapshot.Driver {
	case "":
		return nil, nil
	case DriverMemory:
		return snapshot.NewMemorySink(), nil
	case DriverSQLite:
		if s.Snapshot.Path == "" {
			return nil, errors.New("snapshot.path is required for the sqlite driver")
		}
		sink, err := snapshot.NewSQLiteSink(s.Snapshot.Path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot sink: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown snapshot driver %q", s.Snapshot.Driver)
	}
}
