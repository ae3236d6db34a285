package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wandmagic/metapath/pkg/ext"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/static"
)

const (
	// ConfigEnv names the environment variable holding the config file path.
	ConfigEnv = "METAPATH_CONFIG"
	// UserConfigDir is the directory for the user-level config.
	UserConfigDir = ".config/metapath"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Config is the CLI configuration.
type Config struct {
	// Namespaces binds extra prefixes to namespace URIs.
	Namespaces map[string]string `yaml:"namespaces,omitempty"`
	// DefaultNamespace is the default model namespace.
	DefaultNamespace string `yaml:"default_namespace,omitempty"`
	// BaseURI is the static base URI. Defaults to the input document URI.
	BaseURI string `yaml:"base_uri,omitempty"`
	// Timezone is the implicit timezone, "Z" or ±hh:mm. Defaults to local.
	Timezone string `yaml:"timezone,omitempty"`
	// Extensions enables the ext: function library.
	Extensions bool `yaml:"extensions,omitempty"`
	// ScalarsAsFlags maps scalar JSON/YAML members to flags.
	ScalarsAsFlags bool `yaml:"scalars_as_flags,omitempty"`
	// Timeout bounds each evaluation.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Log configures diagnostics on stderr.
	Log LogConfig `yaml:"log"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Log:     LogConfig{Level: "warn", Format: "text"},
	}
}

// LoadFromFile reads a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Merge overlays the non-zero settings of other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	for prefix, uri := range other.Namespaces {
		if c.Namespaces == nil {
			c.Namespaces = make(map[string]string)
		}
		c.Namespaces[prefix] = uri
	}
	if other.DefaultNamespace != "" {
		c.DefaultNamespace = other.DefaultNamespace
	}
	if other.BaseURI != "" {
		c.BaseURI = other.BaseURI
	}
	if other.Timezone != "" {
		c.Timezone = other.Timezone
	}
	if other.Timeout != 0 {
		c.Timeout = other.Timeout
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
	c.Extensions = c.Extensions || other.Extensions
	c.ScalarsAsFlags = c.ScalarsAsFlags || other.ScalarsAsFlags
}

// Validate checks the settings that can be checked without evaluating.
func (c *Config) Validate() error {
	var errs []error
	if c.Timezone != "" {
		if _, err := item.ParseTimezone(c.Timezone); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	for prefix := range c.Namespaces {
		if prefix == "" || strings.ContainsAny(prefix, ": ") {
			errs = append(errs, fmt.Errorf("invalid namespace prefix %q", prefix))
		}
	}
	return errors.Join(errs...)
}

// ImplicitTimezone returns the configured timezone, or nil for the local
// zone.
func (c *Config) ImplicitTimezone() *time.Location {
	if c.Timezone == "" {
		return nil
	}
	loc, _ := item.ParseTimezone(c.Timezone)
	return loc
}

// StaticContext builds the static context described by c.
func (c *Config) StaticContext(baseURI string) *static.Context {
	b := static.NewBuilder()
	for prefix, uri := range c.Namespaces {
		b.Namespace(prefix, uri)
	}
	if c.DefaultNamespace != "" {
		b.DefaultModelNamespace(c.DefaultNamespace)
	}
	if c.BaseURI != "" {
		baseURI = c.BaseURI
	}
	if baseURI != "" {
		b.BaseURI(baseURI)
	}
	if c.Extensions {
		ext.Bind(b)
	}
	return b.Build()
}

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
	getenv func(string) string
	home   func() (string, error)
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, getenv: os.Getenv, home: os.UserHomeDir}
}

// Load loads configuration with layered precedence:
//  1. Defaults
//  2. User config (~/.config/metapath/config.yaml)
//  3. explicit, or the file named by METAPATH_CONFIG
//
// A missing user config is ignored; a missing explicit file is an error.
func (l *Loader) Load(explicit string) (*Config, error) {
	cfg := DefaultConfig()

	if path := l.userConfigPath(); path != "" {
		if user, err := LoadFromFile(path); err == nil {
			l.logger.Debug("loaded user config", slog.String("path", path))
			cfg.Merge(user)
		} else if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("failed to load user config", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	if explicit == "" {
		explicit = l.getenv(ConfigEnv)
	}
	if explicit != "" {
		file, err := LoadFromFile(explicit)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		l.logger.Debug("loaded config", slog.String("path", explicit))
		cfg.Merge(file)
	}
	return cfg, nil
}

func (l *Loader) userConfigPath() string {
	home, err := l.home()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
