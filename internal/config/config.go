// Package config loads server configuration from defaults, a YAML file and
// SIMENV_* environment variables through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/giantswarm/simenv"
	"github.com/giantswarm/simenv/internal/external"
	"github.com/giantswarm/simenv/internal/httpapi"
)

// EnvPrefix is prepended to every environment variable, e.g.
// SIMENV_SERVER_ADDR for server.addr.
const EnvPrefix = "SIMENV"

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Registry RegistryConfig `mapstructure:"registry"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	// ExternalEngines registers simulator executables next to the built-in
	// engine kinds.
	ExternalEngines []ExternalEngineConfig `mapstructure:"external_engines"`
}

// ExternalEngineConfig describes one simulator executable.
type ExternalEngineConfig struct {
	Kind         string        `mapstructure:"kind"`
	Command      string        `mapstructure:"command"`
	Args         []string      `mapstructure:"args"`
	Env          []string      `mapstructure:"env"`
	StartTimeout time.Duration `mapstructure:"start_timeout"`
	StopTimeout  time.Duration `mapstructure:"stop_timeout"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	// ShutdownTimeout bounds graceful HTTP shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CreateRate is instance creations per second; 0 disables limiting.
	CreateRate  float64 `mapstructure:"create_rate"`
	CreateBurst int     `mapstructure:"create_burst"`
}

// RegistryConfig mirrors the simenv registry options.
type RegistryConfig struct {
	// DataDir empty means the simenv default under the system temp dir.
	DataDir              string        `mapstructure:"data_dir"`
	OperationTimeout     time.Duration `mapstructure:"operation_timeout"`
	CloseTimeout         time.Duration `mapstructure:"close_timeout"`
	ShutdownDrainTimeout time.Duration `mapstructure:"shutdown_drain_timeout"`
	LockTimeout          time.Duration `mapstructure:"lock_timeout"`
	UploadTimeout        time.Duration `mapstructure:"upload_timeout"`
}

// UploadConfig configures recording uploads. An empty endpoint disables them.
type UploadConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ValidLogLevels returns the accepted logging.level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the accepted logging.format values.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              "127.0.0.1:5000",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			CreateRate:        httpapi.DefaultCreateRate,
			CreateBurst:       httpapi.DefaultCreateBurst,
		},
		Registry: RegistryConfig{
			OperationTimeout:     simenv.DefaultOperationTimeout,
			CloseTimeout:         simenv.DefaultCloseTimeout,
			ShutdownDrainTimeout: simenv.DefaultShutdownDrainTimeout,
			LockTimeout:          simenv.DefaultLockTimeout,
			UploadTimeout:        simenv.DefaultUploadTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key with its default value on v, so that
// environment variables are honoured even for keys absent from the file.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.create_rate", d.Server.CreateRate)
	v.SetDefault("server.create_burst", d.Server.CreateBurst)

	v.SetDefault("registry.data_dir", d.Registry.DataDir)
	v.SetDefault("registry.operation_timeout", d.Registry.OperationTimeout)
	v.SetDefault("registry.close_timeout", d.Registry.CloseTimeout)
	v.SetDefault("registry.shutdown_drain_timeout", d.Registry.ShutdownDrainTimeout)
	v.SetDefault("registry.lock_timeout", d.Registry.LockTimeout)
	v.SetDefault("registry.upload_timeout", d.Registry.UploadTimeout)

	v.SetDefault("upload.endpoint", d.Upload.Endpoint)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// BindEnv makes v read SIMENV_-prefixed environment variables, with dots in
// keys replaced by underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate returns every violation found, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_header_timeout must be greater than 0, got %s", c.Server.ReadHeaderTimeout))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be greater than 0, got %s", c.Server.ShutdownTimeout))
	}
	if c.Server.CreateRate < 0 {
		errs = append(errs, fmt.Errorf("server.create_rate must not be negative, got %v", c.Server.CreateRate))
	}
	if c.Server.CreateRate > 0 && c.Server.CreateBurst < 1 {
		errs = append(errs, fmt.Errorf("server.create_burst must be at least 1 when rate limiting, got %d", c.Server.CreateBurst))
	}

	for _, f := range []struct {
		key string
		d   time.Duration
	}{
		{"registry.operation_timeout", c.Registry.OperationTimeout},
		{"registry.close_timeout", c.Registry.CloseTimeout},
		{"registry.shutdown_drain_timeout", c.Registry.ShutdownDrainTimeout},
		{"registry.lock_timeout", c.Registry.LockTimeout},
		{"registry.upload_timeout", c.Registry.UploadTimeout},
	} {
		if f.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be greater than 0, got %s", f.key, f.d))
		}
	}

	if e := c.Upload.Endpoint; e != "" && !strings.HasPrefix(e, "http://") && !strings.HasPrefix(e, "https://") {
		errs = append(errs, fmt.Errorf("upload.endpoint must be an http(s) URL, got %q", e))
	}

	builtin := simenv.DefaultCatalog().Kinds()
	seen := make(map[string]bool, len(c.ExternalEngines))
	for i, e := range c.ExternalEngines {
		key := fmt.Sprintf("external_engines[%d]", i)
		switch {
		case e.Kind == "":
			errs = append(errs, fmt.Errorf("%s.kind must not be empty", key))
		case slices.Contains(builtin, e.Kind):
			errs = append(errs, fmt.Errorf("%s.kind %q shadows a built-in engine", key, e.Kind))
		case seen[e.Kind]:
			errs = append(errs, fmt.Errorf("%s.kind %q is registered twice", key, e.Kind))
		}
		seen[e.Kind] = true
		if e.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command must not be empty", key))
		}
		if e.StartTimeout < 0 || e.StopTimeout < 0 {
			errs = append(errs, fmt.Errorf("%s timeouts must not be negative", key))
		}
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %v, got %q", ValidLogLevels(), c.Logging.Level))
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %v, got %q", ValidLogFormats(), c.Logging.Format))
	}

	return errors.Join(errs...)
}

// RegistryOptions translates the registry and upload sections into
// simenv options.
func (c *Config) RegistryOptions() []simenv.RegistryOption {
	opts := []simenv.RegistryOption{
		simenv.WithOperationTimeout(c.Registry.OperationTimeout),
		simenv.WithCloseTimeout(c.Registry.CloseTimeout),
		simenv.WithShutdownDrainTimeout(c.Registry.ShutdownDrainTimeout),
		simenv.WithLockTimeout(c.Registry.LockTimeout),
		simenv.WithUploadTimeout(c.Registry.UploadTimeout),
	}
	if c.Registry.DataDir != "" {
		opts = append(opts, simenv.WithDataDir(c.Registry.DataDir))
	}
	if c.Upload.Endpoint != "" {
		opts = append(opts, simenv.WithUploadEndpoint(c.Upload.Endpoint))
	}
	if len(c.ExternalEngines) > 0 {
		opts = append(opts, simenv.WithCatalog(c.Catalog()))
	}
	return opts
}

// Catalog returns the built-in engines plus every configured external
// engine. Simulator stderr logs go to <data dir>/engines. Panics if an
// external engine is invalid; call Validate first.
func (c *Config) Catalog() *simenv.Catalog {
	dataDir := c.Registry.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(os.TempDir(), simenv.DefaultDataDirName)
	}
	cat := simenv.DefaultCatalog()
	for _, e := range c.ExternalEngines {
		cat.MustRegister(e.Kind, external.Factory(external.Config{
			Kind:         e.Kind,
			Path:         e.Command,
			Args:         e.Args,
			Env:          e.Env,
			LogDir:       filepath.Join(dataDir, "engines"),
			StartTimeout: e.StartTimeout,
			StopTimeout:  e.StopTimeout,
		}))
	}
	return cat
}

// HTTPConfig returns the transport settings.
func (c *Config) HTTPConfig() httpapi.Config {
	return httpapi.Config{
		CreateRate:  c.Server.CreateRate,
		CreateBurst: c.Server.CreateBurst,
	}
}
