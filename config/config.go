// Package config loads memfs settings from YAML, JSON or TOML files and the
// environment.
package config

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/deepnoodle-ai/memfs"
	"github.com/deepnoodle-ai/memfs/log"
	"github.com/deepnoodle-ai/memfs/toolkit"
	"github.com/deepnoodle-ai/memfs/vpath"
	"github.com/gobwas/glob"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "MEMFS"

// Environment variables that override file settings.
const (
	EnvRoot        = "MEMFS_ROOT"
	EnvPrefix      = "MEMFS_PREFIX"
	EnvLogLevel    = "MEMFS_LOG_LEVEL"
	EnvMaxFileSize = "MEMFS_MAX_FILE_SIZE"
	EnvMetricsAddr = "MEMFS_METRICS_ADDR"
)

// DefaultRoot is used when neither the file nor the environment sets a root.
const DefaultRoot = "./memories"

// Config is the on-disk configuration for a memory store.
type Config struct {
	Root        string   `yaml:"root,omitempty" json:"root,omitempty" toml:"root,omitempty"`
	Prefix      string   `yaml:"prefix,omitempty" json:"prefix,omitempty" toml:"prefix,omitempty"`
	LogLevel    string   `yaml:"log_level,omitempty" json:"log_level,omitempty" toml:"log_level,omitempty"`
	Protected   []string `yaml:"protected,omitempty" json:"protected,omitempty" toml:"protected,omitempty"`
	Ignore      []string `yaml:"ignore,omitempty" json:"ignore,omitempty" toml:"ignore,omitempty"`
	MaxFileSize int64    `yaml:"max_file_size,omitempty" json:"max_file_size,omitempty" toml:"max_file_size,omitempty"`
	MetricsAddr string   `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty" toml:"metrics_addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Root:     DefaultRoot,
		Prefix:   vpath.DefaultPrefix,
		LogLevel: "warn",
	}
}

// Load reads path, if set, applies environment overrides and defaults, and
// validates the result. path may be a single file or a directory of config
// files, which are merged in name order.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		parsed, err := parsePath(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		cfg = parsed
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOverrides holds the MEMFS_* variables. Unset or empty variables leave
// the file value in place; MEMFS_MAX_FILE_SIZE must be an integer when set.
type envOverrides struct {
	Root        string `envconfig:"ROOT"`
	Prefix      string `envconfig:"PREFIX"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	MaxFileSize int64  `envconfig:"MAX_FILE_SIZE"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// ApplyEnv overrides fields from MEMFS_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return memfs.WrapError(memfs.KindConfigurationError, err, "invalid environment configuration")
	}
	if env.Root != "" {
		c.Root = env.Root
	}
	if env.Prefix != "" {
		c.Prefix = env.Prefix
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.MaxFileSize != 0 {
		c.MaxFileSize = env.MaxFileSize
	}
	if env.MetricsAddr != "" {
		c.MetricsAddr = env.MetricsAddr
	}
	return nil
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if c.Root == "" {
		c.Root = defaults.Root
	}
	if c.Prefix == "" {
		c.Prefix = defaults.Prefix
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// Validate checks patterns, the prefix and the log level. All problems are
// reported as ConfigurationError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return memfs.Errorf(memfs.KindConfigurationError, "root is required")
	}
	if c.Prefix != "" && (!strings.HasPrefix(c.Prefix, "/") || strings.Trim(c.Prefix, "/") == "") {
		return memfs.Errorf(memfs.KindConfigurationError, "prefix %q must be an absolute path below /", c.Prefix)
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return memfs.WrapError(memfs.KindConfigurationError, err, "invalid log_level")
		}
	}
	for _, pattern := range c.Protected {
		if !doublestar.ValidatePattern(pattern) {
			return memfs.Errorf(memfs.KindConfigurationError, "invalid protected pattern %q", pattern)
		}
	}
	for _, pattern := range c.Ignore {
		if _, err := glob.Compile(pattern); err != nil {
			return memfs.WrapError(memfs.KindConfigurationError, err, fmt.Sprintf("invalid ignore pattern %q", pattern))
		}
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() log.Level {
	return log.LevelFromString(c.LogLevel)
}

// Options converts the configuration into memory tool options. The logger
// and observer are supplied by the caller; a nil logger leaves the tool
// logging through its call context.
func (c *Config) Options(logger log.Logger, observer toolkit.Observer) toolkit.MemoryToolOptions {
	return toolkit.MemoryToolOptions{
		Root:        c.Root,
		MemoryDir:   c.Prefix,
		Protected:   c.Protected,
		Ignore:      c.Ignore,
		MaxFileSize: c.MaxFileSize,
		Logger:      logger,
		Observer:    observer,
	}
}
