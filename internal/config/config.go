// Package config loads imgdiff settings from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/boostgo/errorx"
	"gopkg.in/yaml.v3"

	"github.com/boostgo/imgdiff"
	"github.com/boostgo/imgdiff/internal/logger"
)

var (
	ErrLoadConfig    = errorx.New("imgdiff.config.load")
	ErrInvalidConfig = errorx.New("imgdiff.config.invalid")
	ErrLoadTemplate  = errorx.New("imgdiff.config.template")
)

const (
	DefaultAddr     = ":8000"
	DefaultDebounce = 300 * time.Millisecond
)

// Config is the top-level configuration.
type Config struct {
	Tolerance      float64     `yaml:"tolerance"`
	PixelThreshold uint8       `yaml:"pixel_threshold"`
	Workers        int         `yaml:"workers"`
	Exclude        []string    `yaml:"exclude"`
	Extensions     []string    `yaml:"extensions"`
	IgnoreHidden   bool        `yaml:"ignore_hidden"`
	LogLevel       string      `yaml:"log_level"`
	Template       string      `yaml:"template"`
	Serve          ServeConfig `yaml:"serve"`
}

// ServeConfig controls the live report server.
type ServeConfig struct {
	Addr     string        `yaml:"addr"`
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file. An empty path yields Default().
// Unknown keys are rejected. A relative template path is resolved against the
// directory of the file.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newLoadConfigError(path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, newLoadConfigError(path, err)
	}

	if cfg.Template != "" && !filepath.IsAbs(cfg.Template) {
		cfg.Template = filepath.Join(filepath.Dir(path), cfg.Template)
	}

	return cfg, nil
}

// Parse decodes and validates YAML configuration
func Parse(data []byte) (*Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultAddr
	}
	if c.Serve.Debounce <= 0 {
		c.Serve.Debounce = DefaultDebounce
	}
}

// Validate checks value ranges and exclude patterns
func (c *Config) Validate() error {
	if c.Tolerance < 0 || c.Tolerance > 100 {
		return newInvalidConfigError("tolerance", fmt.Sprintf("must be within [0, 100], got %v", c.Tolerance))
	}

	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return newInvalidConfigError("exclude", fmt.Sprintf("invalid glob pattern %q", pattern))
		}
	}

	for _, ext := range c.Extensions {
		if !imgdiff.IsSupportedExtension(ext) {
			return newInvalidConfigError("extensions", fmt.Sprintf("unsupported extension %q", ext))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "err":
	default:
		return newInvalidConfigError("log_level", fmt.Sprintf("unknown level %q", c.LogLevel))
	}

	return nil
}

// ApplyLogLevel sets the process log level
func (c *Config) ApplyLogLevel() {
	logger.Level.SetByName(c.LogLevel)
}

// ScanOptions returns the scanner options described by the configuration
func (c *Config) ScanOptions() []imgdiff.ScanOption {
	var options []imgdiff.ScanOption

	if c.IgnoreHidden {
		options = append(options, imgdiff.WithIgnoreHidden())
	}
	if len(c.Exclude) > 0 {
		options = append(options, imgdiff.WithExcludePatterns(c.Exclude...))
	}
	if len(c.Extensions) > 0 {
		options = append(options, imgdiff.WithExtensions(c.Extensions...))
	}

	return options
}

// WriteOptions returns the report writer options. A configured template
// replaces the built-in index.html.
func (c *Config) WriteOptions() ([]imgdiff.WriteOption, error) {
	if c.Template == "" {
		return nil, nil
	}

	text, err := os.ReadFile(c.Template)
	if err != nil {
		return nil, newLoadTemplateError(c.Template, err)
	}

	renderer, err := imgdiff.NewHTMLRendererFromTemplate(string(text))
	if err != nil {
		return nil, newLoadTemplateError(c.Template, err)
	}

	return []imgdiff.WriteOption{imgdiff.WithRenderer(renderer)}, nil
}

// CompareOptions returns the comparison options described by the configuration
func (c *Config) CompareOptions(log *slog.Logger) ([]imgdiff.CompareOption, error) {
	writeOptions, err := c.WriteOptions()
	if err != nil {
		return nil, err
	}

	return []imgdiff.CompareOption{
		imgdiff.WithTolerance(c.Tolerance),
		imgdiff.WithPixelThreshold(c.PixelThreshold),
		imgdiff.WithWorkers(c.Workers),
		imgdiff.WithScanOptions(c.ScanOptions()...),
		imgdiff.WithWriteOptions(writeOptions...),
		imgdiff.WithLogger(log),
	}, nil
}

type configErrorContext struct {
	Path  string `json:"path"`
	Error error  `json:"error"`
}

func newLoadConfigError(path string, err error) error {
	return ErrLoadConfig.
		SetError(err).
		SetData(configErrorContext{
			Path:  path,
			Error: err,
		})
}

func newLoadTemplateError(path string, err error) error {
	return ErrLoadTemplate.
		SetError(fmt.Errorf("%s: %w", path, err)).
		SetData(configErrorContext{
			Path:  path,
			Error: err,
		})
}

func newInvalidConfigError(field, reason string) error {
	return ErrInvalidConfig.
		SetError(fmt.Errorf("%s: %s", field, reason)).
		SetData(struct {
			Field  string `json:"field"`
			Reason string `json:"reason"`
		}{
			Field:  field,
			Reason: reason,
		})
}
