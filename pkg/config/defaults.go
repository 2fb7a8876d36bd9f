// Package config defines default configuration for batch and server runs.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultThreads       = 1
	DefaultPort          = 8888
	DefaultCacheDir      = ".bubblescope/cache"
	DefaultLayoutTimeout = 2 * time.Minute
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Config is the merged view of flags, the config file and BUBBLESCOPE_* env vars.
type Config struct {
	// Graph is the GFA path, Variants the VCF path. Either may be gzipped.
	Graph    string `mapstructure:"graph"`
	Variants string `mapstructure:"variants"`

	Threads int    `mapstructure:"threads"`
	Output  string `mapstructure:"output"` // directory or s3://bucket/prefix; empty prints to stdout
	// S3Endpoint overrides the S3 endpoint (LocalStack, MinIO) and switches to path-style addressing.
	S3Endpoint string `mapstructure:"s3_endpoint"`
	Strict     bool   `mapstructure:"strict"`

	// Filter holds CEL expressions every bubble must satisfy.
	Filter    []string `mapstructure:"filter"`
	RulesFile string   `mapstructure:"rules"`

	Layout LayoutConfig `mapstructure:"layout"`
	Serve  ServeConfig  `mapstructure:"serve"`
	Log    LogConfig    `mapstructure:"log"`

	OtelEndpoint string `mapstructure:"otel_endpoint"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// DefaultConfig returns a configuration with sensible default values.
func DefaultConfig() Config {
	return Config{
		Threads: DefaultThreads,
		Layout:  DefaultLayoutConfig(),
		Serve:   DefaultServeConfig(),
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// FromViper overlays v on the defaults.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	var errs []error
	if c.Graph == "" {
		errs = append(errs, errors.New("graph (-g) is required"))
	}
	if c.Variants == "" {
		errs = append(errs, errors.New("variants (-v) is required"))
	}
	if c.Threads < 1 {
		errs = append(errs, fmt.Errorf("threads must be positive, got %d", c.Threads))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
