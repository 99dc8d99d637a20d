package external

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultStartTimeout bounds the init handshake when Config.StartTimeout is zero.
const DefaultStartTimeout = 10 * time.Second

// DefaultStopTimeout bounds Close when Config.StopTimeout is zero.
const DefaultStopTimeout = 5 * time.Second

// Config describes one external simulator kind.
type Config struct {
	// Kind is the engine kind name the simulator is registered under.
	Kind string
	// Path is the simulator executable.
	Path string
	// Args are passed to the executable.
	Args []string
	// Env is appended to the server's environment.
	Env []string
	// LogDir receives one stderr log file per started simulator.
	LogDir string
	// StartTimeout bounds process start plus the init handshake.
	StartTimeout time.Duration
	// StopTimeout bounds Close.
	StopTimeout time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Validate reports every problem with c.
func (c Config) Validate() error {
	var errs []error
	if c.Kind == "" {
		errs = append(errs, errors.New("external engine: kind must not be empty"))
	}
	if c.Path == "" {
		errs = append(errs, fmt.Errorf("external engine %q: command must not be empty", c.Kind))
	}
	if c.LogDir == "" {
		errs = append(errs, fmt.Errorf("external engine %q: log dir must not be empty", c.Kind))
	}
	if c.StartTimeout < 0 {
		errs = append(errs, fmt.Errorf("external engine %q: start timeout must not be negative, got %v", c.Kind, c.StartTimeout))
	}
	if c.StopTimeout < 0 {
		errs = append(errs, fmt.Errorf("external engine %q: stop timeout must not be negative, got %v", c.Kind, c.StopTimeout))
	}
	return errors.Join(errs...)
}

func (c Config) withDefaults() Config {
	if c.StartTimeout == 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
