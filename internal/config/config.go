// Package config loads the process configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"

	"github.com/hazz-dev/webcheck/internal/registry"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// DefaultURLs are monitored when no snapshot exists.
var DefaultURLs = []string{
	"https://www.google.com",
	"https://www.github.com",
	"https://www.rust-lang.org",
	"https://www.wikipedia.org",
	"https://www.microsoft.com",
}

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = dur
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig selects where snapshots are written.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Dir enables rotating file output when set.
	Dir string `yaml:"dir"`
}

// ProbeConfig holds per-probe settings.
type ProbeConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// PersistConfig holds the snapshot throttle.
type PersistConfig struct {
	SaveInterval Duration `yaml:"save_interval"`
}

// DefaultsConfig seeds the registry when no snapshot can be loaded.
type DefaultsConfig struct {
	URLs            []string `yaml:"urls"`
	CheckInterval   int      `yaml:"check_interval"`
	RefreshInterval int      `yaml:"refresh_interval"`
}

// TelemetryConfig toggles the in-process metrics endpoint.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Probe     ProbeConfig     `yaml:"probe"`
	Persist   PersistConfig   `yaml:"persist"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AppConfig returns the default polling configuration.
func (c *Config) AppConfig() registry.AppConfig {
	return registry.AppConfig{
		CheckInterval:   c.Defaults.CheckInterval,
		RefreshInterval: c.Defaults.RefreshInterval,
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, parses, and validates the config file at path. A missing
// file is not an error: defaults are returned instead.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":3000"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverFile
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == DriverSQLite {
			c.Storage.Path = "webcheck.db"
		} else {
			c.Storage.Path = "webcheck_config.json"
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = LogLevelInfo
	}
	if c.Log.Format == "" {
		c.Log.Format = LogFormatJSON
	}
	if c.Probe.Timeout.Duration == 0 {
		c.Probe.Timeout = Duration{5 * time.Second}
	}
	if c.Persist.SaveInterval.Duration == 0 {
		c.Persist.SaveInterval = Duration{10 * time.Minute}
	}
	if c.Defaults.URLs == nil {
		c.Defaults.URLs = append([]string(nil), DefaultURLs...)
	}
	if c.Defaults.CheckInterval == 0 {
		c.Defaults.CheckInterval = registry.DefaultConfig.CheckInterval
	}
	if c.Defaults.RefreshInterval == 0 {
		c.Defaults.RefreshInterval = registry.DefaultConfig.RefreshInterval
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Storage),
		validation.Field(&c.Log),
		validation.Field(&c.Probe),
		validation.Field(&c.Persist),
		validation.Field(&c.Defaults),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required, validation.By(validateHostPort)),
	)
}

func (s StorageConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(DriverFile, DriverSQLite)),
		validation.Field(&s.Path, validation.Required),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
		validation.Field(&l.Format, validation.Required,
			validation.In(LogFormatJSON, LogFormatConsole)),
	)
}

func (p ProbeConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Timeout, validation.By(positiveDuration)),
	)
}

func (p PersistConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.SaveInterval, validation.By(positiveDuration)),
	)
}

func (d DefaultsConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.URLs, validation.Each(validation.By(validateResourceURL))),
		validation.Field(&d.CheckInterval, validation.Min(1)),
		validation.Field(&d.RefreshInterval, validation.Min(1)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}
	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}
	return nil
}

func positiveDuration(value interface{}) error {
	d, ok := value.(Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}
	if d.Duration <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}
	return nil
}

func validateResourceURL(value interface{}) error {
	u, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if err := registry.ValidateURL(u); err != nil {
		return validation.NewError("validation_invalid_url", "must start with http:// or https://")
	}
	return nil
}
