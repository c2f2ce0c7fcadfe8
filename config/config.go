// Package config - Configuration for the localization agents and CLI.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/nvr-ai/go-localize/images"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvImageDir = "LOCALIZE_IMAGE_DIR"
	EnvLogLevel = "LOCALIZE_LOG_LEVEL"
)

// Config holds the settings shared by the CLI subcommands.
type Config struct {
	// ImageDir is where image identifiers are resolved to files.
	ImageDir string `yaml:"image_dir"`

	// RandomStart starts search episodes from a random box.
	RandomStart bool `yaml:"random_start"`

	// MaxSteps bounds every episode.
	MaxSteps int `yaml:"max_steps"`

	// Epsilon is the exploration rate of the epsilon-greedy policy.
	Epsilon float64 `yaml:"epsilon"`

	// Seed seeds every random source; 0 picks a random seed.
	Seed uint64 `yaml:"seed"`

	// AcceptThreshold is the IoU at which the oracle estimators commit to a box.
	AcceptThreshold float64 `yaml:"accept_threshold"`

	// ContextPad is the fraction of a region added on every side before cropping.
	ContextPad float64 `yaml:"context_pad"`

	// CropSize is the side of the square region crops.
	CropSize int `yaml:"crop_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
//
// Returns:
//   - Config: Defaults for every field.
//
// @example
// cfg := config.DefaultConfig()
// cfg.ImageDir = "/data/voc/JPEGImages"
func DefaultConfig() Config {
	return Config{
		ImageDir:        ".",
		MaxSteps:        100,
		Epsilon:         0.1,
		AcceptThreshold: 0.5,
		ContextPad:      images.DefaultContextPad,
		CropSize:        images.DefaultCropSize,
		LogLevel:        "info",
	}
}

// Load reads a YAML file over DefaultConfig; omitted fields keep their defaults.
//
// Arguments:
//   - path: The YAML file path.
//
// Returns:
//   - Config: The merged configuration.
//   - error: A read, parse or validation error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the LOCALIZE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvImageDir); v != "" {
		c.ImageDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.MaxSteps <= 0:
		return errors.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	case c.Epsilon < 0 || c.Epsilon > 1:
		return errors.Errorf("epsilon must be in [0, 1], got %v", c.Epsilon)
	case c.AcceptThreshold <= 0 || c.AcceptThreshold > 1:
		return errors.Errorf("accept_threshold must be in (0, 1], got %v", c.AcceptThreshold)
	case c.ContextPad < 0:
		return errors.Errorf("context_pad must not be negative, got %v", c.ContextPad)
	case c.CropSize <= 0:
		return errors.Errorf("crop_size must be positive, got %d", c.CropSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return slog.LevelInfo, errors.Wrapf(err, "log_level %q", c.LogLevel)
	}
	return level, nil
}
